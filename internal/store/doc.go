// Package store is the SQLite engine behind the asynchronous database layer.
//
// It is a thin synchronous adapter over database/sql and mattn/go-sqlite3
// exposing the primitives the worker queues need: filtered and raw queries,
// insert/update/delete/replace with a conflict algorithm, and nestable atomic
// units (transactions).
//
// # Connections
//
//   - Writer: one pinned *sql.Conn. Every mutation and every atomic unit goes
//     through it, so it must only be used from a single goroutine (the
//     writer queue).
//   - Reader: a separate *sql.DB limited to one connection, used by Query
//     and RawQuery from the reader queue. It is read-only by convention.
//
// With WAL enabled, the reader sees the last committed state while the
// writer holds an open atomic unit.
//
// # Atomic Units
//
// Units nest. Begin/BeginNonExclusive on an open unit only push a level. The
// outermost End commits if every level called MarkSuccessful and rolls back
// otherwise. Unit state is not synchronised: begin, the enclosed writes and
// end must all happen on the writer goroutine.
//
// # Database Configuration
//
//   - WAL mode (default on): concurrent reads during writes
//   - synchronous=NORMAL, or OFF with WithDisableSync
//   - busy_timeout (default 5s): wait for locks instead of failing
//   - foreign_keys=ON
package store
