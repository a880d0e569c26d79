package sqldb

import (
	"context"

	"github.com/roach88/sqldb/internal/querysql"
	"github.com/roach88/sqldb/internal/store"
)

// Engine is the synchronous storage engine driven by the worker queues.
// *store.Store is the SQLite implementation.
//
// Mutations, UnitQuery and the atomic-unit methods are only ever called from
// the writer goroutine. Query and RawQuery are only called from the reader
// goroutine.
type Engine interface {
	Query(ctx context.Context, q querysql.Select) (store.Cursor, error)
	RawQuery(ctx context.Context, query string, args ...any) (store.Cursor, error)
	UnitQuery(ctx context.Context, query string, args ...any) (store.Cursor, error)

	Insert(ctx context.Context, table, nullColumnHack string, values *store.Values, conflict querysql.Conflict) (int64, error)
	Update(ctx context.Context, table string, values *store.Values, where string, whereArgs []any, conflict querysql.Conflict) (int64, error)
	Delete(ctx context.Context, table, where string, whereArgs []any) (int64, error)
	Replace(ctx context.Context, table, nullColumnHack string, values *store.Values) (int64, error)
	Exec(ctx context.Context, query string, args ...any) (int64, error)

	Begin(ctx context.Context) error
	BeginNonExclusive(ctx context.Context) error
	MarkSuccessful() error
	End(ctx context.Context) error
	SupportsNonExclusive() bool

	Close() error
}

var _ Engine = (*store.Store)(nil)

// Re-exported so callers only need this package.
type (
	Values   = store.Values
	Cursor   = store.Cursor
	Select   = querysql.Select
	Conflict = querysql.Conflict
)

// Conflict algorithms.
const (
	ConflictNone     = querysql.ConflictNone
	ConflictRollback = querysql.ConflictRollback
	ConflictAbort    = querysql.ConflictAbort
	ConflictFail     = querysql.ConflictFail
	ConflictIgnore   = querysql.ConflictIgnore
	ConflictReplace  = querysql.ConflictReplace
)

// NewValues returns an empty column value set.
func NewValues() *Values {
	return store.NewValues()
}
