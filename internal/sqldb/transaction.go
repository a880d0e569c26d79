package sqldb

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/sqldb/internal/later"
)

// TransactionCompleteCallback learns whether a transaction committed.
type TransactionCompleteCallback func(success bool)

// Tx runs statements synchronously inside the open atomic unit. It is only
// valid inside the body passed to RunInTransaction, on the writer goroutine;
// it must not be handed to other goroutines. After the body returns every
// method fails with ErrTxDone. If the engine rolled the unit back on its own,
// every method fails with ErrUnitAborted and the transaction reports false.
type Tx struct {
	db   *DB
	ctx  context.Context
	done atomic.Bool
}

// RunInTransaction runs work inside an atomic unit on the writer goroutine.
//
// The unit is opened non-exclusively when the engine supports it and
// exclusively otherwise. If work returns nil it is marked successful; the
// unit is always ended, which commits or rolls back. The Later resolves to
// true on commit and false on rollback, and cb (if non-nil) is called
// exactly once with the same value on the executor.
//
// WARNING: work must never block on a Later returned by this DB. The writer
// goroutine running work is the only goroutine that can complete writer
// Laters, so waiting on one from inside work deadlocks forever. Use the Tx
// methods for reads and writes that must happen inside the unit.
func (db *DB) RunInTransaction(work func(tx *Tx) error, cb TransactionCompleteCallback) *later.Later[bool] {
	l := later.New[bool]()

	unit := func() {
		ok := db.runTx(l.ID(), work)
		l.Set(ok)
		if cb != nil {
			db.deliver(func() { cb(ok) })
		}
	}

	h, err := db.threads.ScheduleOnWriter(unit)
	if err != nil {
		opErr := &OpError{Op: "transaction", LaterID: l.ID(), Err: ErrClosed}
		l.Fail(opErr)
		db.reportError(opErr)
		if cb != nil {
			db.deliver(func() { cb(false) })
		}
		return l
	}
	l.Wrap(h)

	return l
}

func (db *DB) runTx(id string, work func(tx *Tx) error) (ok bool) {
	ctx := db.ctx

	var err error
	if db.eng.SupportsNonExclusive() {
		err = db.eng.BeginNonExclusive(ctx)
	} else {
		err = db.eng.Begin(ctx)
	}
	if err != nil {
		db.txFailed(id, "begin", err)
		return false
	}

	tx := &Tx{db: db, ctx: ctx}
	defer func() {
		tx.done.Store(true)
		endErr := db.eng.End(ctx)
		switch {
		case endErr != nil && ok:
			db.txFailed(id, "end", endErr)
			ok = false
		case endErr != nil:
			// Already reported; the engine may have ended the unit itself
			slog.Debug("transaction end after failure", "id", id, "error", endErr)
		case ok:
			slog.Debug("transaction committed", "id", id)
		}
	}()

	if _, err := guard(func() (struct{}, error) { return struct{}{}, work(tx) }); err != nil {
		db.txFailed(id, "body", err)
		return false
	}

	if err := db.eng.MarkSuccessful(); err != nil {
		db.txFailed(id, "mark successful", err)
		return false
	}

	return true
}

func (db *DB) txFailed(id, stage string, err error) {
	slog.Warn("transaction rolled back",
		"id", id,
		"stage", stage,
		"error", err,
	)
	db.reportError(&OpError{Op: "transaction", LaterID: id, Err: err})
}

// Insert inserts one row with ConflictNone and returns its rowid.
func (tx *Tx) Insert(table, nullColumnHack string, values *Values) (int64, error) {
	return tx.InsertWithOnConflict(table, nullColumnHack, values, ConflictNone)
}

// InsertWithOnConflict inserts one row and returns its rowid.
func (tx *Tx) InsertWithOnConflict(table, nullColumnHack string, values *Values, conflict Conflict) (int64, error) {
	if tx.done.Load() {
		return 0, ErrTxDone
	}
	return tx.db.eng.Insert(tx.ctx, table, nullColumnHack, values, conflict)
}

// Update changes the rows matching where with ConflictNone.
func (tx *Tx) Update(table string, values *Values, where string, whereArgs []any) (int64, error) {
	return tx.UpdateWithOnConflict(table, values, where, whereArgs, ConflictNone)
}

// UpdateWithOnConflict changes the rows matching where.
func (tx *Tx) UpdateWithOnConflict(table string, values *Values, where string, whereArgs []any, conflict Conflict) (int64, error) {
	if tx.done.Load() {
		return 0, ErrTxDone
	}
	return tx.db.eng.Update(tx.ctx, table, values, where, whereArgs, conflict)
}

// Delete removes the rows matching where.
func (tx *Tx) Delete(table, where string, whereArgs []any) (int64, error) {
	if tx.done.Load() {
		return 0, ErrTxDone
	}
	return tx.db.eng.Delete(tx.ctx, table, where, whereArgs)
}

// Replace inserts or replaces one row.
func (tx *Tx) Replace(table, nullColumnHack string, values *Values) (int64, error) {
	if tx.done.Load() {
		return 0, ErrTxDone
	}
	return tx.db.eng.Replace(tx.ctx, table, nullColumnHack, values)
}

// Exec runs a statement inside the unit.
func (tx *Tx) Exec(query string, args ...any) (int64, error) {
	if tx.done.Load() {
		return 0, ErrTxDone
	}
	return tx.db.eng.Exec(tx.ctx, query, args...)
}

// Query reads through the writer connection, so it sees the unit's own
// uncommitted writes. The caller must close the cursor before returning.
func (tx *Tx) Query(query string, args ...any) (Cursor, error) {
	if tx.done.Load() {
		return nil, ErrTxDone
	}
	return tx.db.eng.UnitQuery(tx.ctx, query, args...)
}
