package linkpoll

import "errors"

// ErrInvalidLink is returned by [Client.StartListening] when a link URL is
// malformed or rejected by the configured validation policy. Callers match
// it with [errors.Is]; the wrapped message carries the specific reason.
var ErrInvalidLink = errors.New("invalid link")
