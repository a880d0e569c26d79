package sqldb

import (
	"context"
	"log/slog"

	"github.com/roach88/sqldb/internal/later"
)

// CursorHandler turns a query's cursor into a result and receives it later.
//
// Handle runs exactly once on the reader goroutine, before the Later
// completes; the cursor is closed when it returns. Callback runs exactly once
// on the executor after the Later completes, and only on success.
type CursorHandler[R any] interface {
	Handle(c Cursor) (R, error)
	Callback(result R)
}

type handlerFuncs[R any] struct {
	handle   func(Cursor) (R, error)
	callback func(R)
}

func (h handlerFuncs[R]) Handle(c Cursor) (R, error) {
	return h.handle(c)
}

func (h handlerFuncs[R]) Callback(result R) {
	if h.callback != nil {
		h.callback(result)
	}
}

// Handler builds a CursorHandler from functions. callback may be nil.
func Handler[R any](handle func(Cursor) (R, error), callback func(R)) CursorHandler[R] {
	return handlerFuncs[R]{handle: handle, callback: callback}
}

// RawQuery runs query on the reader goroutine and transforms the cursor with h.
func RawQuery[R any](db *DB, query string, args []any, h CursorHandler[R]) *later.Later[R] {
	slog.Debug("scheduling raw query", "sql", query)
	return submit(db, db.threads.Reader, "raw query", "", func(ctx context.Context) (R, error) {
		c, err := db.eng.RawQuery(ctx, query, args...)
		if err != nil {
			var zero R
			return zero, err
		}
		return handleCursor(c, h)
	}, h.Callback)
}

// Query runs a filtered query (projection, selection, grouping, ordering,
// limit) on the reader goroutine and transforms the cursor with h.
func Query[R any](db *DB, q Select, h CursorHandler[R]) *later.Later[R] {
	q.WhereArgs = append([]any(nil), q.WhereArgs...)
	q.Columns = append([]string(nil), q.Columns...)

	return submit(db, db.threads.Reader, "query", q.Table, func(ctx context.Context) (R, error) {
		c, err := db.eng.Query(ctx, q)
		if err != nil {
			var zero R
			return zero, err
		}
		return handleCursor(c, h)
	}, h.Callback)
}

// QueryTable is Query without grouping, ordering or limit.
func QueryTable[R any](db *DB, table string, columns []string, where string, whereArgs []any, h CursorHandler[R]) *later.Later[R] {
	return Query(db, Select{
		Table:     table,
		Columns:   columns,
		Where:     where,
		WhereArgs: whereArgs,
	}, h)
}

func handleCursor[R any](c Cursor, h CursorHandler[R]) (R, error) {
	defer func() {
		if err := c.Close(); err != nil {
			slog.Warn("closing cursor failed", "error", err)
		}
	}()
	return h.Handle(c)
}
