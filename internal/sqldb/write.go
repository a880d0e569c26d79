package sqldb

import (
	"context"

	"github.com/roach88/sqldb/internal/later"
)

// DBCallback receives the numeric result of a write: a rowid for inserts and
// replaces, an affected-row count for updates, deletes and Exec.
type DBCallback func(n int64)

func (cb DBCallback) fn() func(int64) {
	if cb == nil {
		return nil
	}
	return cb
}

// InsertWithOnConflict inserts one row on the writer goroutine and resolves
// to its rowid (-1 if an IGNORE conflict skipped it). values is copied before
// the call returns.
func (db *DB) InsertWithOnConflict(table, nullColumnHack string, values *Values, conflict Conflict, cb DBCallback) *later.Later[int64] {
	v := values.Clone()
	return submit(db, db.threads.Writer, "insert", table, func(ctx context.Context) (int64, error) {
		return db.eng.Insert(ctx, table, nullColumnHack, v, conflict)
	}, cb.fn())
}

// Insert is InsertWithOnConflict with ConflictNone.
func (db *DB) Insert(table, nullColumnHack string, values *Values, cb DBCallback) *later.Later[int64] {
	return db.InsertWithOnConflict(table, nullColumnHack, values, ConflictNone, cb)
}

// UpdateWithOnConflict updates the rows matching where on the writer
// goroutine and resolves to the number of rows changed.
func (db *DB) UpdateWithOnConflict(table string, values *Values, where string, whereArgs []any, conflict Conflict, cb DBCallback) *later.Later[int64] {
	v := values.Clone()
	args := append([]any(nil), whereArgs...)
	return submit(db, db.threads.Writer, "update", table, func(ctx context.Context) (int64, error) {
		return db.eng.Update(ctx, table, v, where, args, conflict)
	}, cb.fn())
}

// Update is UpdateWithOnConflict with ConflictNone.
func (db *DB) Update(table string, values *Values, where string, whereArgs []any, cb DBCallback) *later.Later[int64] {
	return db.UpdateWithOnConflict(table, values, where, whereArgs, ConflictNone, cb)
}

// Delete removes the rows matching where (all rows if empty) on the writer
// goroutine and resolves to the number removed.
func (db *DB) Delete(table, where string, whereArgs []any, cb DBCallback) *later.Later[int64] {
	args := append([]any(nil), whereArgs...)
	return submit(db, db.threads.Writer, "delete", table, func(ctx context.Context) (int64, error) {
		return db.eng.Delete(ctx, table, where, args)
	}, cb.fn())
}

// Replace inserts a row, replacing any conflicting row, and resolves to its
// rowid.
func (db *DB) Replace(table, nullColumnHack string, values *Values, cb DBCallback) *later.Later[int64] {
	v := values.Clone()
	return submit(db, db.threads.Writer, "replace", table, func(ctx context.Context) (int64, error) {
		return db.eng.Replace(ctx, table, nullColumnHack, v)
	}, cb.fn())
}

// Exec runs a statement (DDL, PRAGMA, bulk DML) on the writer goroutine and
// resolves to the number of rows it changed.
func (db *DB) Exec(query string, args []any, cb DBCallback) *later.Later[int64] {
	a := append([]any(nil), args...)
	return submit(db, db.threads.Writer, "exec", "", func(ctx context.Context) (int64, error) {
		return db.eng.Exec(ctx, query, a...)
	}, cb.fn())
}
