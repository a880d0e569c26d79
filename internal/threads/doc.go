// Package threads implements the dedicated worker queues that sit in front of
// the database.
//
// ARCHITECTURE:
//
// Each Queue owns exactly one goroutine for its whole lifetime. Units of work
// are appended to a FIFO and run one at a time, to completion, in submission
// order. Threads bundles the two queues the database layer needs:
//
//   - writer: every mutating operation and every transaction body
//   - reader: every query
//
// SQLite allows a single writer. Funnelling every write through one goroutine
// makes that constraint hold by construction, with no locking around the
// engine handle. The reader queue is a single goroutine as well; widening it
// only changes this package, not the submit-and-wait contract callers see.
//
// The two queues are independent: a long read never delays a write and a long
// write never delays a read. There is no ordering between queues.
//
// FAILURE HANDLING:
//
// A panic inside a unit of work is recovered at the unit boundary and logged.
// The queue goroutine keeps draining. Callers that need the failure surfaced
// (the database facade) recover inside their own unit of work first and route
// the error to the waiting Later.
package threads
