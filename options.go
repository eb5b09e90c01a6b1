package linkpoll

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultPingInterval    = 10 * time.Second
	defaultWebhookInterval = 60 * time.Second

	// minPollInterval is the lowest cadence a caller may configure.
	minPollInterval = time.Second
)

// clientConfig holds mutable state during Client construction.
type clientConfig struct {
	apiKey          string
	pingInterval    time.Duration
	webhookInterval time.Duration
	errorHandler    func(error, Descriptor)
	logger          *slog.Logger
	debug           bool
	httpClient      *http.Client
	allowedDomains  []string
	allowedKinds    []LinkKind
	requirePassword bool
}

// Option is a function that configures a [Client] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithAPIKey], [WithPingInterval], [WithWebhookInterval],
// [WithErrorHandler], [WithLogger], [WithDebug], [WithHTTPClient],
// [WithAllowedDomains], [WithAllowedLinkKinds], [WithRequirePassword].
type Option func(*clientConfig) error

// WithAPIKey sets the credential presented to the polling endpoint as an
// Authorization bearer header on every poll request.
//
// Without this option no Authorization header is sent.
func WithAPIKey(key string) Option {
	return func(cfg *clientConfig) error {
		cfg.apiKey = key
		return nil
	}
}

// WithPingInterval overrides the base polling cadence for ping links.
//
// Ping links poll frequently; the default is 10 seconds. The cadence still
// adapts at runtime: it backs off over quiet stretches and returns to this
// base when content flows.
//
// Example:
//
//	client, err := linkpoll.New(endpoint,
//	    linkpoll.WithPingInterval(5 * time.Second),
//	)
//
// Returns an error if the interval is below one second.
func WithPingInterval(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d < minPollInterval {
			return fmt.Errorf("ping interval must be at least %v, got %v", minPollInterval, d)
		}
		cfg.pingInterval = d
		return nil
	}
}

// WithWebhookInterval overrides the base polling cadence for webhook links.
//
// Webhook links poll slowly; the default is 60 seconds.
//
// Returns an error if the interval is below one second.
func WithWebhookInterval(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d < minPollInterval {
			return fmt.Errorf("webhook interval must be at least %v, got %v", minPollInterval, d)
		}
		cfg.webhookInterval = d
		return nil
	}
}

// WithErrorHandler sets the client-level error handler.
//
// The handler receives every listener error for listeners whose [Callbacks]
// did not supply their own OnError. Without this option such errors are
// logged at WARN level.
//
// Example:
//
//	client, err := linkpoll.New(endpoint,
//	    linkpoll.WithErrorHandler(func(err error, d linkpoll.Descriptor) {
//	        metrics.CountPollError(d.Kind.String())
//	    }),
//	)
//
// Nil handlers are silently ignored.
func WithErrorHandler(handler func(error, Descriptor)) Option {
	return func(cfg *clientConfig) error {
		if handler == nil {
			return nil // nil handler is a no-op
		}
		cfg.errorHandler = handler
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the client.
//
// This allows SDK consumers to control where logs are written and in what
// format. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithDebug enables per-cycle debug logging.
//
// Debug mode logs every listener start, stop, and failed cycle through the
// configured logger at DEBUG level. The logger's handler still decides
// whether DEBUG records are emitted.
func WithDebug(debug bool) Option {
	return func(cfg *clientConfig) error {
		cfg.debug = debug
		return nil
	}
}

// WithHTTPClient replaces the transport used for poll requests.
//
// The supplied client's timeout policy governs each poll exchange; the poll
// loop itself never imposes one. Without this option a pooled client with a
// 30 second timeout is used.
//
// Returns an error if the client is nil.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *clientConfig) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		cfg.httpClient = client
		return nil
	}
}

// WithAllowedDomains restricts listening to links minted on the given hosts.
//
// Link URLs whose domain is not in the list are rejected by
// [Client.StartListening] with [ErrInvalidLink]. Without this option any
// domain is accepted.
//
// Example:
//
//	client, err := linkpoll.New(endpoint,
//	    linkpoll.WithAllowedDomains("secret.annai.ai"),
//	)
//
// Returns an error if no domain is given.
func WithAllowedDomains(domains ...string) Option {
	return func(cfg *clientConfig) error {
		if len(domains) == 0 {
			return errors.New("at least one allowed domain is required")
		}
		cfg.allowedDomains = append(cfg.allowedDomains, domains...)
		return nil
	}
}

// WithAllowedLinkKinds restricts listening to links of the given kinds.
//
// Link URLs of any other kind are rejected by [Client.StartListening] with
// [ErrInvalidLink]. Without this option both kinds are accepted.
//
// Returns an error if no kind is given or a kind is not ping or webhook.
func WithAllowedLinkKinds(kinds ...LinkKind) Option {
	return func(cfg *clientConfig) error {
		if len(kinds) == 0 {
			return errors.New("at least one allowed link kind is required")
		}
		for _, k := range kinds {
			if !k.Valid() {
				return fmt.Errorf("unknown link kind %q", k)
			}
		}
		cfg.allowedKinds = append(cfg.allowedKinds, kinds...)
		return nil
	}
}

// WithRequirePassword requires every link URL to carry a password query
// parameter.
//
// Links without one are rejected by [Client.StartListening] with
// [ErrInvalidLink]. The password itself is only forwarded to the backend;
// the client never verifies it.
func WithRequirePassword(required bool) Option {
	return func(cfg *clientConfig) error {
		cfg.requirePassword = required
		return nil
	}
}
