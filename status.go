package linkpoll

import (
	"time"

	"github.com/annai-ai/linkpoll/protocol"
)

// The wire types are defined in [protocol] and aliased here so SDK users
// import a single package.
type (
	// LinkKind identifies the delivery style of a link.
	LinkKind = protocol.LinkKind

	// LinkState is the lifecycle state a backend reports for a link.
	LinkState = protocol.LinkState

	// Payload is one delivered item from a link.
	Payload = protocol.Payload

	// PayloadMeta describes where a payload came from.
	PayloadMeta = protocol.PayloadMeta

	// ServerError is a non-fatal error reported by the backend inside an
	// otherwise successful poll response.
	ServerError = protocol.ServerError
)

const (
	// KindPing is a link intended for frequent, lightweight notifications.
	KindPing = protocol.KindPing

	// KindWebhook is a link intended for structured data delivery.
	KindWebhook = protocol.KindWebhook
)

const (
	// StateActive indicates the link is live and pollable.
	StateActive = protocol.StateActive

	// StateExpired indicates the link passed its expiry time. Terminal.
	StateExpired = protocol.StateExpired

	// StateExhausted indicates the link consumed its delivery budget.
	// Terminal.
	StateExhausted = protocol.StateExhausted

	// StateDeleted indicates the link was removed or never existed.
	// Terminal.
	StateDeleted = protocol.StateDeleted
)

// ListenerStatus is a point-in-time snapshot of one listener.
//
// Snapshots are read-only copies; holding one does not pin the listener, and
// the listener's state keeps moving after the snapshot is taken. The token
// is redacted to a short prefix so statuses can be logged or displayed
// without leaking the link.
type ListenerStatus struct {
	// ID is the listener identifier returned by [Client.StartListening].
	ID string

	// Running reports whether the listener's poll loop is still scheduled.
	Running bool

	// Interval is the current delay between poll cycles.
	Interval time.Duration

	// EmptyCycles is the number of consecutive cycles without content.
	EmptyCycles int

	// ClientID is the stable wire identifier of this listener's poller.
	ClientID string

	// Token is the redacted link token prefix.
	Token string

	// Kind is the link's channel kind.
	Kind LinkKind
}
