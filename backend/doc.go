// Package backend provides a reference implementation of the link polling
// backend the client SDK talks to.
//
// The package exists for three audiences: the linkpoll serve command, which
// runs it as a standalone process; integration tests and demos, which embed
// it in-process; and backend implementers, who can read it as an executable
// description of the wire contract.
//
// The main components are:
//
//   - [Store]: Interface defining link storage and the poll state machine
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Server]: HTTP server exposing the poll and link management routes
//
// Links are minted with [Server] management routes or directly through a
// [Store], fed payloads via publish, and drained by polling clients. A
// link's delivery policy (expiry, delivery budget, password, cadence hint)
// lives in its [Link] record; every poll outcome, terminal states included,
// is derived from that record.
//
// Applications that only consume links do not need this package; the SDK in
// the repository root speaks to any backend implementing the same contract.
package backend
