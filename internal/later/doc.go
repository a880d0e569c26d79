// Package later provides Later, a single-assignment result cell that bridges
// a worker goroutine completing a unit of work and the application goroutines
// waiting on it.
//
// A Later moves through exactly one transition:
//
//	pending -> completed | failed | cancelled
//
// The transition is claimed with a compare-and-swap on an atomic state, so a
// second Set or Fail is detected and panics. Waiters block on a channel that
// is closed once the transition is published; closing the channel is what
// makes the stored value visible to every waiter.
//
// Cancellation is cooperative. Cancel only succeeds while the wrapped unit of
// work is still queued. Once the work has started the Later always completes
// normally.
package later
