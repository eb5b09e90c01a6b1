// Package linkpoll lets an application receive payloads from remote Annai
// links by polling a backend endpoint.
//
// A link is an opaque token embedded in a URL such as
// https://secret.annai.ai/link/abc123def456ghi789, representing a ping or
// webhook channel. The SDK never talks to the upstream service directly:
// every listener polls one caller-supplied backend endpoint, which proxies
// and authorizes access to the links.
//
// # Quick Start
//
// Create a client and start listening to a link:
//
//	client, err := linkpoll.New("https://backend.example.com/poll")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	id, err := client.StartListening("https://secret.annai.ai/link/abc123def456ghi789",
//	    linkpoll.Callbacks{
//	        OnPayload: func(p linkpoll.Payload, d linkpoll.Descriptor) {
//	            fmt.Printf("payload from %s: %s\n", d.Domain, p.Data)
//	        },
//	    })
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.StopListening(id)
//
// # Configuration
//
// The client uses the functional options pattern for configuration:
//
//	client, err := linkpoll.New("https://backend.example.com/poll",
//	    linkpoll.WithAPIKey("key"),
//	    linkpoll.WithPingInterval(5 * time.Second),
//	    linkpoll.WithAllowedDomains("secret.annai.ai"),
//	    linkpoll.WithRequirePassword(true),
//	)
//
// # Polling Behavior
//
// Each listener polls independently, starting with an immediate first cycle.
// The cadence adapts to traffic: quiet links back off multiplicatively (up
// to five minutes between cycles), content snaps the cadence back to its
// per-kind base, and a backend cadence suggestion overrides both. Transport
// failures and backend-reported errors are delivered to error handlers and
// never stop a listener; only a terminal link state (expired, exhausted,
// deleted) does.
//
// # Architecture
//
// linkpoll consists of several packages:
//
//   - protocol: the poll wire contract shared with backends
//   - internal/poller: per-link poll loops and adaptive interval control
//   - backend: an in-memory reference backend for tests and development
//   - config: YAML configuration for the bundled CLI
//
// The internal packages are not part of the public API and may change
// without notice.
package linkpoll
