// Package sqldb is an asynchronous API over a single SQLite database.
//
// Every operation returns immediately with a *later.Later. The work itself
// runs on one of two dedicated worker goroutines:
//
//   - writer: Insert, Update, Delete, Replace, Exec and RunInTransaction
//   - reader: Query, QueryTable and RawQuery
//
// SQLite supports a single writer, so serialising every write on one
// goroutine enforces that constraint without locks. The reader goroutine is
// independent: a slow query never delays a write and vice versa.
//
// When a unit of work finishes, its result is stored in the Later (waking any
// goroutine blocked in Get) and the optional callback is handed to the
// application's dispatch.Executor. Callbacks never run on a worker goroutine.
//
// Callers choose per call between fire-and-forget (ignore the Later, use the
// callback) and synchronous style (call Get on the Later).
//
// ORDERING:
//
// Units submitted to the same queue run in submission order. There is no
// ordering between the writer and the reader queue: a query submitted right
// after an insert may run before the insert commits. Wait on the insert's
// Later, or do both inside RunInTransaction, when the read must observe the
// write.
//
// ERRORS:
//
// Engine errors and panics inside a unit of work are caught at the unit
// boundary. They fail the Later with an *OpError, are reported to the
// ErrorHandler (if any) on the executor, and never stop the worker goroutine.
// Nothing is retried.
package sqldb
