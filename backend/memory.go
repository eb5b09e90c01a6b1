package backend

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annai-ai/linkpoll/protocol"
)

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore provides thread-safe link storage with a publish-subscribe
// mechanism for watching accepted payloads. Link records are keyed by token;
// tokens are reserved forever, so a deleted link leaves a tombstone behind
// and its token can never be minted again.
//
// Subscribers receive deliveries via buffered channels (buffer size 100).
// Sends are non-blocking; if a subscriber's buffer is full, the delivery is
// dropped for that subscriber to prevent blocking the publish path.
type MemoryStore struct {
	mu    sync.RWMutex
	links map[string]*linkRecord

	subMu       sync.RWMutex
	subscribers map[chan Delivery]struct{}
}

// linkRecord pairs a link with its mutable delivery state.
type linkRecord struct {
	Link
	queue     []protocol.Payload
	delivered int
	deleted   bool
}

// state derives the link state a poll at the given instant would observe.
func (r *linkRecord) state(now time.Time) protocol.LinkState {
	switch {
	case r.deleted:
		return protocol.StateDeleted
	case !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt):
		return protocol.StateExpired
	case r.MaxDeliveries > 0 && r.delivered >= r.MaxDeliveries:
		return protocol.StateExhausted
	default:
		return protocol.StateActive
	}
}

func (r *linkRecord) info(now time.Time) LinkInfo {
	return LinkInfo{
		Link:      r.Link,
		State:     r.state(now),
		Pending:   len(r.queue),
		Delivered: r.delivered,
	}
}

// NewMemoryStore creates a new in-memory [Store] implementation.
//
// The store is immediately ready for use. No cleanup is required when done.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links:       make(map[string]*linkRecord),
		subscribers: make(map[chan Delivery]struct{}),
	}
}

// CreateLink registers a new link record.
//
// The token and kind are required; CreatedAt defaults to the current time
// when unset. Tokens that were ever minted, including since-deleted ones,
// are rejected with [ErrDuplicateToken].
func (m *MemoryStore) CreateLink(link Link) (LinkInfo, error) {
	if link.Token == "" {
		return LinkInfo{}, errors.New("create link: token is required")
	}
	if !link.Kind.Valid() {
		return LinkInfo{}, fmt.Errorf("create link: unknown kind %q", link.Kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.links[link.Token]; exists {
		return LinkInfo{}, ErrDuplicateToken
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	rec := &linkRecord{Link: link}
	m.links[link.Token] = rec
	return rec.info(time.Now()), nil
}

// Info returns a snapshot of one link. Deleted links still report, with
// State set to deleted; only never-minted tokens return ok = false.
func (m *MemoryStore) Info(token string) (LinkInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.links[token]
	if !ok {
		return LinkInfo{}, false
	}
	return rec.info(time.Now()), true
}

// DeleteLink tombstones a link and drops its pending payloads.
//
// Returns false if the token was never minted or is already deleted.
func (m *MemoryStore) DeleteLink(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.links[token]
	if !ok || rec.deleted {
		return false
	}
	rec.deleted = true
	rec.queue = nil
	return true
}

// Publish queues a payload for delivery and notifies all subscribers.
//
// Returns the queue depth after the append. Unknown and deleted tokens fail
// with [ErrUnknownLink].
func (m *MemoryStore) Publish(token string, payload protocol.Payload) (int, error) {
	m.mu.Lock()
	rec, ok := m.links[token]
	if !ok || rec.deleted {
		m.mu.Unlock()
		return 0, ErrUnknownLink
	}
	rec.queue = append(rec.queue, payload)
	pending := len(rec.queue)
	kind := rec.Kind
	m.mu.Unlock()

	m.notifySubscribers(Delivery{
		Token:   token,
		Kind:    kind,
		Payload: payload,
		Pending: pending,
	})
	return pending, nil
}

// Poll answers one poll request against the link's current state.
//
// The outcome order mirrors what clients expect: terminal states first,
// then the password check, then content. The final payload of a budgeted
// link ships together with the exhausted state.
func (m *MemoryStore) Poll(req protocol.PollRequest) protocol.PollResult {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.links[req.Token]
	if !ok || rec.deleted {
		// unknown tokens are indistinguishable from deleted ones
		return protocol.PollResult{LinkState: protocol.StateDeleted}
	}

	switch rec.state(now) {
	case protocol.StateExpired:
		return protocol.PollResult{LinkState: protocol.StateExpired}
	case protocol.StateExhausted:
		return protocol.PollResult{LinkState: protocol.StateExhausted}
	}

	if rec.Password != "" && req.Password != rec.Password {
		return protocol.PollResult{
			LinkState:   protocol.StateActive,
			ServerError: "invalid password",
		}
	}

	res := protocol.PollResult{
		LinkState:           protocol.StateActive,
		SuggestedNextPollMs: rec.SuggestedPollMs,
	}
	if len(rec.queue) == 0 {
		return res
	}

	payload := rec.queue[0]
	rec.queue = rec.queue[1:]
	rec.delivered++

	res.HasNewContent = true
	res.Payload = &payload
	if rec.MaxDeliveries > 0 && rec.delivered >= rec.MaxDeliveries {
		res.LinkState = protocol.StateExhausted
	}
	return res
}

// Subscribe creates a new subscription and returns a channel for receiving
// deliveries.
//
// The returned channel has a buffer of 100 messages. If the buffer fills
// (slow consumer), new deliveries are dropped for this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource
// leaks.
func (m *MemoryStore) Subscribe() <-chan Delivery {
	ch := make(chan Delivery, 100)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// After calling Unsubscribe, the channel will be closed and no further
// deliveries will be sent. Safe to call multiple times or with an unknown
// channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Delivery) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// find and delete the channel (need to convert to the right type)
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the delivery to all active subscribers.
//
// This is non-blocking: if a subscriber's channel buffer is full, the
// delivery is dropped for that subscriber rather than blocking the publish
// path.
func (m *MemoryStore) notifySubscribers(d Delivery) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- d:
		default:
			// subscriber is slow, drop the delivery
		}
	}
}
