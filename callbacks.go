package linkpoll

// Callbacks carries the event handlers for one listener.
//
// Every handler is optional; a nil handler silently drops its events, except
// OnError, whose events fall back to the client-level handler configured via
// [WithErrorHandler], or to a log line when neither exists.
//
// Handlers run on the listener's own polling goroutine: within one listener
// events arrive in order and never concurrently, but handlers of different
// listeners may run at the same time. A handler that blocks delays only its
// own listener's next cycle.
//
// Panics inside handlers are recovered and logged with a correlation ID;
// they never stop the listener or affect other listeners.
type Callbacks struct {
	// OnPayload receives each payload delivered through the link.
	OnPayload func(Payload, Descriptor)

	// OnStatusChange receives every non-active link state the backend
	// reports. A terminal state (expired, exhausted, deleted) arrives
	// exactly once and is the listener's last event before removal.
	OnStatusChange func(LinkState, Descriptor)

	// OnError receives transport failures and backend-reported errors.
	// Backend-reported errors are of type [ServerError]. Errors never stop
	// the listener by themselves.
	OnError func(error, Descriptor)
}
