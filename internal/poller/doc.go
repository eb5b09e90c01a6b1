// Package poller drives the per-link poll loops for linkpoll.
//
// This package is internal to linkpoll and handles the repeated polling of
// one backend endpoint on behalf of many links. Each link gets its own
// [Poller] goroutine; pollers share nothing but the [Client] they poll
// through, so one link's traffic or failure never affects another's loop.
//
// The main components are:
//
//   - [Client]: HTTP transport speaking the poll wire contract
//   - [Poller]: one link's poll loop with timer re-arm and stop semantics
//   - [Interval]: adaptive cadence control for one link
//   - [Hooks]: event handlers wired in by the public package
//
// Users of the linkpoll library should not need to interact with this
// package directly. Configuration is done through the main linkpoll package.
package poller
