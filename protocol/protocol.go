// Package protocol defines the wire contract spoken between a linkpoll
// client and a polling backend.
//
// A client repeatedly POSTs a [PollRequest] as JSON to a single polling
// endpoint and receives a [PollResult] on any 2xx response. The contract is
// deliberately small: one request shape, one response shape, and an opaque
// [Payload] envelope whose data field is never interpreted by the client.
//
// All timestamps cross the wire as milliseconds since the Unix epoch.
// Helpers such as [Payload.ProducedAt] and [PollResult.SuggestedNextPoll]
// convert to time.Time and time.Duration at the boundary so the rest of the
// code never handles raw millisecond counts.
package protocol

import (
	"encoding/json"
	"time"
)

// LinkKind identifies the delivery style of a link.
//
// LinkKind is a string type that can hold one of two predefined values:
// [KindPing] or [KindWebhook]. The kind decides the default polling cadence:
// ping links poll frequently, webhook links poll slowly.
type LinkKind string

const (
	// KindPing is a link intended for frequent, lightweight notifications.
	KindPing LinkKind = "ping"

	// KindWebhook is a link intended for structured data delivery.
	KindWebhook LinkKind = "webhook"
)

// String returns the string representation of the kind.
// This implements the fmt.Stringer interface.
func (k LinkKind) String() string {
	return string(k)
}

// Valid reports whether k is one of the defined link kinds.
func (k LinkKind) Valid() bool {
	return k == KindPing || k == KindWebhook
}

// LinkState is the lifecycle state a backend reports for a link.
//
// Every [PollResult] carries a LinkState. [StateActive] means the link keeps
// accepting and delivering content. The remaining states are terminal: once a
// backend reports one, the link will never deliver again and clients must
// stop polling it.
type LinkState string

const (
	// StateActive indicates the link is live and pollable.
	StateActive LinkState = "active"

	// StateExpired indicates the link passed its expiry time.
	StateExpired LinkState = "expired"

	// StateExhausted indicates the link consumed its delivery budget.
	StateExhausted LinkState = "exhausted"

	// StateDeleted indicates the link was removed, or never existed.
	// Backends report deleted for unknown tokens rather than leaking
	// which tokens are real.
	StateDeleted LinkState = "deleted"
)

// String returns the string representation of the state.
// This implements the fmt.Stringer interface.
func (s LinkState) String() string {
	return string(s)
}

// Terminal reports whether the state permanently ends a link's life.
// Unrecognized states are non-terminal so that newer backends can introduce
// informational states without stranding older clients.
func (s LinkState) Terminal() bool {
	switch s {
	case StateExpired, StateExhausted, StateDeleted:
		return true
	default:
		return false
	}
}

// PollRequest is the JSON body a client POSTs to the polling endpoint.
//
// A fresh request is built for every cycle. ClientID stays stable for the
// lifetime of one poller so backends can correlate a polling session;
// LastSeenMs advances only after a cycle that yielded new content.
type PollRequest struct {
	// Token identifies the link being polled.
	Token string `json:"token"`

	// ChannelKind is the client's view of the link kind.
	ChannelKind LinkKind `json:"channelKind"`

	// Password accompanies password-protected links. Omitted otherwise.
	Password string `json:"password,omitempty"`

	// ClientID is a stable, per-poller identifier.
	ClientID string `json:"clientId"`

	// IssuedAtMs is when the client built this request.
	IssuedAtMs int64 `json:"issuedAtMs"`

	// LastSeenMs is when the client last received content for this link.
	// Zero (omitted) until the first delivery.
	LastSeenMs int64 `json:"lastSeenMs,omitempty"`
}

// PollResult is the JSON body a backend returns from the polling endpoint.
//
// A result is consumed exactly once by the cycle that received it; clients
// never retain one across cycles.
type PollResult struct {
	// HasNewContent reports whether Payload carries a fresh delivery.
	HasNewContent bool `json:"hasNewContent"`

	// Payload is the delivered content when HasNewContent is true.
	Payload *Payload `json:"payload,omitempty"`

	// SuggestedNextPollMs lets the backend steer the client's cadence.
	// Zero means no suggestion.
	SuggestedNextPollMs int64 `json:"suggestedNextPollMs,omitempty"`

	// LinkState is the link's lifecycle state as of this poll.
	LinkState LinkState `json:"linkState"`

	// ServerError carries a non-fatal, link-level error message, such as a
	// rejected password. The link remains pollable.
	ServerError string `json:"serverError,omitempty"`
}

// SuggestedNextPoll returns the backend's cadence suggestion as a duration,
// or zero when the backend made none.
func (r PollResult) SuggestedNextPoll() time.Duration {
	return time.Duration(r.SuggestedNextPollMs) * time.Millisecond
}

// Payload is one delivered item from a link.
//
// Data is opaque to the client; it is handed to the application exactly as
// the backend produced it.
type Payload struct {
	ChannelKind  LinkKind        `json:"channelKind"`
	ProducedAtMs int64           `json:"producedAtMs"`
	Data         json.RawMessage `json:"data"`
	Metadata     *PayloadMeta    `json:"metadata,omitempty"`
}

// ProducedAt returns the payload's production time.
func (p Payload) ProducedAt() time.Time {
	return time.UnixMilli(p.ProducedAtMs)
}

// PayloadMeta describes where a payload came from.
type PayloadMeta struct {
	Source    string `json:"source"`
	UserAgent string `json:"userAgent,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
}

// ServerError is a non-fatal error a backend reported inside an otherwise
// successful [PollResult]. It implements the error interface so it can flow
// through ordinary error handling.
type ServerError string

// Error implements the error interface.
func (e ServerError) Error() string {
	return "server error: " + string(e)
}
