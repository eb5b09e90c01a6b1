package backend

import (
	"errors"
	"time"

	"github.com/annai-ai/linkpoll/protocol"
)

// Errors returned by [Store] implementations.
var (
	// ErrUnknownLink is returned when an operation names a token that was
	// never minted or was already deleted.
	ErrUnknownLink = errors.New("unknown link")

	// ErrDuplicateToken is returned when a link is created with a token
	// that already exists. Tokens are never reused, deleted ones included.
	ErrDuplicateToken = errors.New("duplicate token")
)

// Link is the server-side record of a minted link.
//
// A Link carries the delivery policy the backend enforces during polling:
// optional expiry, an optional delivery budget, an optional password, and
// an optional polling cadence hint forwarded to clients.
type Link struct {
	// Token identifies the link on the wire.
	Token string `json:"token"`

	// Kind is the link's channel kind.
	Kind protocol.LinkKind `json:"kind"`

	// Password, when non-empty, must accompany every poll request for
	// this link. Mismatches produce an application-level server error,
	// not a terminal state.
	Password string `json:"-"`

	// CreatedAt is when the link was minted.
	CreatedAt time.Time `json:"createdAt"`

	// ExpiresAt, when non-zero, is the instant the link stops serving
	// content. The zero value means the link never expires.
	ExpiresAt time.Time `json:"expiresAt"`

	// MaxDeliveries, when positive, caps how many payloads the link hands
	// out before reporting itself exhausted. Zero means unlimited.
	MaxDeliveries int `json:"maxDeliveries,omitempty"`

	// SuggestedPollMs, when positive, is forwarded to polling clients as
	// the suggested next poll interval.
	SuggestedPollMs int64 `json:"suggestedPollMs,omitempty"`
}

// LinkInfo is a point-in-time snapshot of a link's server-side state.
type LinkInfo struct {
	Link

	// State is the link state a poll request would observe right now.
	State protocol.LinkState `json:"state"`

	// Pending is the number of queued payloads not yet delivered.
	Pending int `json:"pending"`

	// Delivered is the number of payloads handed out so far.
	Delivered int `json:"delivered"`
}

// Delivery is the event published to [Store.Subscribe] watchers when a
// payload is accepted for a link.
type Delivery struct {
	// Token is the link the payload was queued for.
	Token string `json:"token"`

	// Kind is the link's channel kind.
	Kind protocol.LinkKind `json:"kind"`

	// Payload is the queued payload.
	Payload protocol.Payload `json:"payload"`

	// Pending is the queue depth after this payload was added.
	Pending int `json:"pending"`
}

// Store defines the backend's link storage and poll state machine.
//
// Store implementations must be safe for concurrent access: the HTTP server
// serves poll and publish traffic from many goroutines at once. The pub/sub
// mechanism lets operators watch accepted payloads in real time.
type Store interface {
	// CreateLink registers a new link record and returns its snapshot.
	// The token must be unique across the store's lifetime; creating a
	// link with a known token fails with [ErrDuplicateToken] even after
	// the original was deleted.
	CreateLink(link Link) (LinkInfo, error)

	// Info returns a snapshot of one link, with ok set to false for
	// tokens that were never minted. Deleted links still report, with
	// State set to deleted.
	Info(token string) (LinkInfo, bool)

	// DeleteLink tombstones a link. Subsequent polls observe the deleted
	// state; the token is never handed out again. Returns false if the
	// token was never minted or is already deleted.
	DeleteLink(token string) bool

	// Publish queues a payload for delivery and notifies subscribers.
	// Returns the queue depth after the append, or [ErrUnknownLink] for
	// tokens that were never minted or are deleted.
	Publish(token string, payload protocol.Payload) (int, error)

	// Poll answers one poll request, applying the link's delivery policy
	// and advancing its queue. Poll never fails; every outcome, unknown
	// tokens included, is expressed in the returned result.
	Poll(req protocol.PollRequest) protocol.PollResult

	// Subscribe returns a channel that receives a [Delivery] for every
	// accepted payload. The channel is buffered; slow consumers miss
	// deliveries rather than block publishing. Caller must call
	// Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Delivery

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Delivery)
}
