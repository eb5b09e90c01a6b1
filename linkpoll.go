package linkpoll

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/annai-ai/linkpoll/internal/poller"
	"github.com/annai-ai/linkpoll/protocol"
)

// Client is the entry point of the SDK: a registry of listeners sharing one
// polling endpoint.
//
// A Client is created with [New] and a polling endpoint URL, then handed
// link URLs via [Client.StartListening]. Each accepted link gets its own
// listener: an independent poll loop delivering payload, status, and error
// events to the caller's [Callbacks]. Listeners are identified by generated
// string IDs; an ID, once removed, is never reused.
//
// The typical lifecycle is:
//
//	client, err := linkpoll.New("https://backend.example.com/poll")
//	if err != nil {
//	    slog.Error("failed to create client", "error", err)
//	    os.Exit(1)
//	}
//
//	id, err := client.StartListening(linkURL, linkpoll.Callbacks{
//	    OnPayload: func(p linkpoll.Payload, d linkpoll.Descriptor) {
//	        // handle delivery
//	    },
//	})
//	// ...
//	client.StopAll()
//
// All methods are safe for concurrent use.
type Client struct {
	endpoint        string
	apiKey          string
	pingInterval    time.Duration
	webhookInterval time.Duration
	errorHandler    func(error, Descriptor)
	debug           bool
	logger          *slog.Logger
	allowedDomains  []string
	allowedKinds    []LinkKind
	requirePassword bool

	pollClient *poller.Client

	mu        sync.Mutex
	listeners map[string]*listener
	seq       int
}

// listener pairs a live poller with the descriptor it was built from.
type listener struct {
	id     string
	seq    int
	desc   Descriptor
	poller *poller.Poller
}

// New creates a [Client] polling the given backend endpoint.
//
// The endpoint is required and must be a syntactically valid http or https
// URL; construction fails before any listener can be created otherwise.
// Remaining configuration is optional:
//   - Ping cadence: 10 seconds, override with [WithPingInterval]
//   - Webhook cadence: 60 seconds, override with [WithWebhookInterval]
//   - No credential unless [WithAPIKey] is given
//
// Example:
//
//	client, err := linkpoll.New("https://backend.example.com/poll",
//	    linkpoll.WithAPIKey(os.Getenv("ANNAI_API_KEY")),
//	    linkpoll.WithPingInterval(5 * time.Second),
//	)
func New(endpoint string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		pingInterval:    defaultPingInterval,
		webhookInterval: defaultWebhookInterval,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if endpoint == "" {
		return nil, errors.New("polling endpoint is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.New("invalid polling endpoint: " + err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("polling endpoint must use http or https")
	}
	if parsed.Host == "" {
		return nil, errors.New("polling endpoint must include a host")
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint:        endpoint,
		apiKey:          cfg.apiKey,
		pingInterval:    cfg.pingInterval,
		webhookInterval: cfg.webhookInterval,
		errorHandler:    cfg.errorHandler,
		debug:           cfg.debug,
		logger:          logger,
		allowedDomains:  cfg.allowedDomains,
		allowedKinds:    cfg.allowedKinds,
		requirePassword: cfg.requirePassword,
		pollClient:      poller.NewClient(endpoint, cfg.apiKey, cfg.httpClient),
		listeners:       make(map[string]*listener),
	}, nil
}

// ValidateLink parses a link URL into a [Descriptor] without registering
// anything. Malformed input yields a Descriptor with Valid set to false;
// ValidateLink never panics.
//
// The configured validation policy is not applied here; policy checks happen
// in [Client.StartListening].
func (c *Client) ValidateLink(rawURL string) Descriptor {
	return ParseLink(rawURL)
}

// StartListening subscribes to a link and returns the new listener's ID.
//
// The URL is parsed and checked against the configured validation policy;
// any failure is rejected with an error matching [ErrInvalidLink], leaving
// the registry untouched. On success the listener is registered and its poll
// loop starts with an immediate first cycle; StartListening returns without
// waiting for that cycle's outcome, which arrives through cb.
//
// A listener stops when [Client.StopListening] or [Client.StopAll] is called
// or when the backend reports a terminal link state; it is then removed from
// the registry.
func (c *Client) StartListening(rawURL string, cb Callbacks) (string, error) {
	desc := ParseLink(rawURL)
	if !desc.Valid {
		return "", fmt.Errorf("%w: malformed link URL", ErrInvalidLink)
	}
	if err := c.checkPolicy(desc); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()
	id := fmt.Sprintf("listener-%d-%d", seq, time.Now().UnixMilli())

	p := poller.New(c.pollClient, poller.Config{
		Token:        desc.Token,
		Kind:         desc.Kind,
		Password:     desc.Password,
		BaseInterval: c.baseInterval(desc.Kind),
	}, c.buildHooks(id, desc, cb), c.logger)

	c.mu.Lock()
	c.listeners[id] = &listener{id: id, seq: seq, desc: desc, poller: p}
	c.mu.Unlock()

	if err := p.Start(); err != nil {
		// roll the registration back before surfacing the error
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
		return "", fmt.Errorf("start listener: %w", err)
	}

	if c.debug {
		c.logger.Debug("listener started",
			"listener_id", id,
			"token", redactToken(desc.Token),
			"kind", desc.Kind.String(),
		)
	}
	return id, nil
}

// StopListening stops a listener and removes it from the registry. Unknown
// identifiers are a silent no-op; callers are allowed to stop speculatively.
// A poll exchange already in flight completes, but its outcome is dropped.
func (c *Client) StopListening(id string) {
	c.mu.Lock()
	l, ok := c.listeners[id]
	if ok {
		delete(c.listeners, id)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	l.poller.Stop()
	if c.debug {
		c.logger.Debug("listener stopped", "listener_id", id)
	}
}

// StopAll stops and removes every listener. Safe to call with zero
// listeners and safe to call repeatedly; the client remains usable for new
// listeners afterwards.
func (c *Client) StopAll() {
	c.mu.Lock()
	stopped := make([]*listener, 0, len(c.listeners))
	for id, l := range c.listeners {
		stopped = append(stopped, l)
		delete(c.listeners, id)
	}
	c.mu.Unlock()

	for _, l := range stopped {
		l.poller.Stop()
	}
	if c.debug && len(stopped) > 0 {
		c.logger.Debug("all listeners stopped", "count", len(stopped))
	}
}

// ListenerStatus returns a snapshot of one listener, with ok set to false
// for unknown identifiers.
func (c *Client) ListenerStatus(id string) (ListenerStatus, bool) {
	c.mu.Lock()
	l, ok := c.listeners[id]
	c.mu.Unlock()
	if !ok {
		return ListenerStatus{}, false
	}
	return l.status(), true
}

// ListenerStatuses returns a snapshot of every registered listener, oldest
// first.
func (c *Client) ListenerStatuses() []ListenerStatus {
	c.mu.Lock()
	live := make([]*listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		live = append(live, l)
	}
	c.mu.Unlock()

	sort.Slice(live, func(i, j int) bool { return live[i].seq < live[j].seq })

	statuses := make([]ListenerStatus, len(live))
	for i, l := range live {
		statuses[i] = l.status()
	}
	return statuses
}

// ActiveListenerCount returns the number of registered listeners.
func (c *Client) ActiveListenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

// IsListening reports whether at least one listener is registered.
func (c *Client) IsListening() bool {
	return c.ActiveListenerCount() > 0
}

// Endpoint returns the polling endpoint this client was constructed with.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// PingInterval returns the base cadence for ping links.
func (c *Client) PingInterval() time.Duration {
	return c.pingInterval
}

// WebhookInterval returns the base cadence for webhook links.
func (c *Client) WebhookInterval() time.Duration {
	return c.webhookInterval
}

// checkPolicy applies the configured validation policy to a parsed link.
func (c *Client) checkPolicy(d Descriptor) error {
	if len(c.allowedDomains) > 0 && !containsString(c.allowedDomains, d.Domain) {
		return fmt.Errorf("%w: domain %q is not allowed", ErrInvalidLink, d.Domain)
	}
	if len(c.allowedKinds) > 0 && !containsKind(c.allowedKinds, d.Kind) {
		return fmt.Errorf("%w: link kind %q is not allowed", ErrInvalidLink, d.Kind)
	}
	if c.requirePassword && !d.HasPassword {
		return fmt.Errorf("%w: password required", ErrInvalidLink)
	}
	return nil
}

// baseInterval returns the configured base cadence for a link kind.
func (c *Client) baseInterval(kind LinkKind) time.Duration {
	if kind == KindWebhook {
		return c.webhookInterval
	}
	return c.pingInterval
}

// buildHooks wires a listener's callbacks into poller hooks: panic recovery
// around every handler, the client-level error fallback, and registry
// removal on self-termination.
func (c *Client) buildHooks(id string, desc Descriptor, cb Callbacks) poller.Hooks {
	hooks := poller.Hooks{
		OnTerminate: func() { c.remove(id) },
	}

	if cb.OnPayload != nil {
		onPayload := cb.OnPayload
		hooks.OnPayload = func(p protocol.Payload) {
			c.invokeCallbackSafe(id, "payload", func() { onPayload(p, desc) })
		}
	}

	if cb.OnStatusChange != nil {
		onStatus := cb.OnStatusChange
		hooks.OnStatus = func(s protocol.LinkState) {
			c.invokeCallbackSafe(id, "status", func() { onStatus(s, desc) })
		}
	}

	onError := cb.OnError
	if onError == nil {
		onError = c.errorHandler
	}
	if onError != nil {
		handler := onError
		hooks.OnError = func(err error) {
			c.invokeCallbackSafe(id, "error", func() { handler(err, desc) })
		}
	} else {
		hooks.OnError = func(err error) {
			c.logger.Warn("listener error",
				"listener_id", id,
				"token", redactToken(desc.Token),
				"error", err,
			)
		}
	}

	return hooks
}

// remove deletes a listener entry after its poller terminated itself.
func (c *Client) remove(id string) {
	c.mu.Lock()
	_, ok := c.listeners[id]
	if ok {
		delete(c.listeners, id)
	}
	c.mu.Unlock()

	if ok && c.debug {
		c.logger.Debug("listener removed after terminal state", "listener_id", id)
	}
}

// invokeCallbackSafe calls a listener callback with panic recovery.
// Panics are logged with a correlation ID but do not propagate, so one
// listener's handler can never take down another listener or the host.
func (c *Client) invokeCallbackSafe(id, callback string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			c.logger.Error("listener callback panicked",
				"correlation_id", correlationID,
				"listener_id", id,
				"callback", callback,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

// status builds the public snapshot for one listener.
func (l *listener) status() ListenerStatus {
	snap := l.poller.Snapshot()
	return ListenerStatus{
		ID:          l.id,
		Running:     snap.Running,
		Interval:    snap.Interval,
		EmptyCycles: snap.EmptyCycles,
		ClientID:    l.poller.ClientID(),
		Token:       redactToken(l.desc.Token),
		Kind:        l.desc.Kind,
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsKind(list []LinkKind, v LinkKind) bool {
	for _, k := range list {
		if k == v {
			return true
		}
	}
	return false
}
