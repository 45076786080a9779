// Package poller fetches the pump status endpoint on a fixed cadence.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with optional timeout and a body size limit
//   - [Scheduler]: ticker that starts one independent fetch per tick
//   - [Result]: raw outcome of a single fetch, numbered in start order
//
// Fetches are fire-and-forget: a slow response does not delay the next tick,
// and responses may resolve out of order. Interpretation of the body is left
// to the caller.
package poller
