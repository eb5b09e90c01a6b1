package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/annai-ai/linkpoll/protocol"
)

var (
	// ErrAlreadyStarted is returned by [Poller.Start] on a running poller.
	ErrAlreadyStarted = errors.New("poller already started")

	// ErrAlreadyStopped is returned by [Poller.Start] on a stopped poller.
	// A stopped poller is never restarted.
	ErrAlreadyStopped = errors.New("poller already stopped")
)

// Hooks carries the event handlers a [Poller] invokes as cycles complete.
//
// All handlers are optional; a nil handler drops its event. Handlers run on
// the poller's own goroutine, so a cycle's side effects always finish before
// the next cycle begins. Callers needing panic safety wrap their handlers
// before constructing the poller.
type Hooks struct {
	// OnPayload receives each delivered payload.
	OnPayload func(protocol.Payload)

	// OnStatus receives every non-active link state the backend reports.
	OnStatus func(protocol.LinkState)

	// OnError receives transport failures and backend-reported errors.
	// Neither stops the poller.
	OnError func(error)

	// OnTerminate fires once, after the poller stops itself because the
	// link reached a terminal state. It does not fire on an explicit Stop.
	OnTerminate func()
}

// Config describes the link a [Poller] drives.
type Config struct {
	// Token identifies the link on the wire.
	Token string

	// Kind selects the channel kind reported in every request.
	Kind protocol.LinkKind

	// Password accompanies password-protected links. Empty otherwise.
	Password string

	// BaseInterval is the cadence the poller returns to while the link is
	// delivering content.
	BaseInterval time.Duration
}

// Status is a point-in-time snapshot of a poller's state, safe to read from
// any goroutine.
type Status struct {
	Running     bool
	Interval    time.Duration
	EmptyCycles int
}

// Poller drives the poll loop for exactly one link.
//
// A poller moves through three states: constructed, started, stopped. Start
// launches one goroutine that performs the first cycle immediately and then
// re-arms a one-shot timer after each cycle, with the delay chosen by the
// poller's [Interval]. Stop prevents any future cycle; an exchange already
// in flight completes, but its outcome is dropped. Stopped pollers are
// discarded, never restarted.
//
// Only terminal link states end the loop from the inside. Transport
// failures, malformed responses, and backend-reported errors are routed to
// [Hooks.OnError] and count as empty cycles for backoff.
type Poller struct {
	client *Client
	cfg    Config
	hooks  Hooks
	logger *slog.Logger

	clientID string
	lastSeen int64 // unix ms of the last delivery; touched only by the poll goroutine

	mu       sync.Mutex
	started  bool
	stopped  bool
	interval *Interval

	stopCh chan struct{}
	done   chan struct{}
}

// New creates a [Poller] for one link. The poller's client identifier is
// generated here and stays stable for its whole life.
func New(client *Client, cfg Config, hooks Hooks, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		client:   client,
		cfg:      cfg,
		hooks:    hooks,
		logger:   logger,
		clientID: uuid.NewString(),
		interval: NewInterval(cfg.BaseInterval),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// ClientID returns the poller's stable wire identifier.
func (p *Poller) ClientID() string {
	return p.clientID
}

// Token returns the token of the link this poller drives.
func (p *Poller) Token() string {
	return p.cfg.Token
}

// Start launches the poll loop. The first cycle begins immediately, with no
// initial delay. Start fails on a poller that is already running or was ever
// stopped.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrAlreadyStopped
	}
	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true
	p.interval.Reset()
	go p.run()
	return nil
}

// Stop prevents all future cycles. Idempotent; safe before Start, during a
// cycle, and after self-termination. Stop does not wait for an in-flight
// exchange; its outcome is dropped when it completes.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.stopCh)
}

// Running reports whether the poller has started and not stopped.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started && !p.stopped
}

// Done returns a channel closed when a started poller's goroutine has fully
// exited. For a poller that was never started it never closes.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Snapshot returns the poller's current state.
func (p *Poller) Snapshot() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		Running:     p.started && !p.stopped,
		Interval:    p.interval.Current(),
		EmptyCycles: p.interval.EmptyCycles(),
	}
}

// run is the poll loop: cycle, sleep for the current interval, repeat.
func (p *Poller) run() {
	defer close(p.done)

	for {
		if !p.cycle() {
			return
		}

		timer := time.NewTimer(p.currentInterval())
		select {
		case <-p.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// cycle performs one poll exchange and routes its outcome. It reports
// whether another cycle should be scheduled.
func (p *Poller) cycle() bool {
	req := protocol.PollRequest{
		Token:       p.cfg.Token,
		ChannelKind: p.cfg.Kind,
		Password:    p.cfg.Password,
		ClientID:    p.clientID,
		IssuedAtMs:  time.Now().UnixMilli(),
		LastSeenMs:  p.lastSeen,
	}

	// In-flight exchanges are never cancelled; Stop only prevents future
	// cycles. The transport's own timeout bounds this call.
	res, err := p.client.Poll(context.Background(), req)

	if !p.Running() {
		// stopped while the exchange was in flight; drop the outcome
		return false
	}

	if err != nil {
		p.logger.Debug("poll cycle failed", "client_id", p.clientID, "error", err)
		if p.hooks.OnError != nil {
			p.hooks.OnError(err)
		}
		p.adjust(false, 0)
		return true
	}

	if res.HasNewContent && res.Payload != nil {
		p.lastSeen = time.Now().UnixMilli()
		if p.hooks.OnPayload != nil {
			p.hooks.OnPayload(*res.Payload)
		}
	}

	if res.LinkState != protocol.StateActive {
		if p.hooks.OnStatus != nil {
			p.hooks.OnStatus(res.LinkState)
		}
		if res.LinkState.Terminal() {
			p.logger.Debug("link reached terminal state", "client_id", p.clientID, "state", res.LinkState.String())
			p.Stop()
			if p.hooks.OnTerminate != nil {
				p.hooks.OnTerminate()
			}
			return false
		}
	}

	if res.ServerError != "" {
		if p.hooks.OnError != nil {
			p.hooks.OnError(protocol.ServerError(res.ServerError))
		}
	}

	p.adjust(res.HasNewContent, res.SuggestedNextPoll())
	return true
}

func (p *Poller) adjust(hasNewContent bool, suggested time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval.Adjust(hasNewContent, suggested)
}

func (p *Poller) currentInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval.Current()
}
