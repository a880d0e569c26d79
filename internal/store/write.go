package store

import (
	"context"
	"fmt"

	"github.com/roach88/sqldb/internal/querysql"
)

// Insert adds one row and returns its rowid. When the conflict algorithm is
// IGNORE and the row was skipped, Insert returns -1 and no error.
//
// Writes run on the writer connection and join the open atomic unit, if any.
func (s *Store) Insert(ctx context.Context, table, nullColumnHack string, values *Values, conflict querysql.Conflict) (int64, error) {
	if err := s.checkUnit(); err != nil {
		return 0, err
	}

	cols, args := values.columnsAndArgs()
	query, params, err := querysql.CompileInsert(querysql.Insert{
		Table:          table,
		NullColumnHack: nullColumnHack,
		Columns:        cols,
		Values:         args,
		Conflict:       conflict,
	})
	if err != nil {
		return 0, err
	}

	res, err := s.writer.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, s.noteFailure(err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("insert into %s: rows affected: %w", table, err)
	}
	if affected == 0 {
		return -1, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert into %s: last insert id: %w", table, err)
	}
	return id, nil
}

// Replace inserts a row, replacing any row it conflicts with.
func (s *Store) Replace(ctx context.Context, table, nullColumnHack string, values *Values) (int64, error) {
	return s.Insert(ctx, table, nullColumnHack, values, querysql.ConflictReplace)
}

// Update sets values on every row matching where and returns the number of
// rows changed.
func (s *Store) Update(ctx context.Context, table string, values *Values, where string, whereArgs []any, conflict querysql.Conflict) (int64, error) {
	cols, args := values.columnsAndArgs()
	query, params, err := querysql.CompileUpdate(querysql.Update{
		Table:     table,
		Columns:   cols,
		Values:    args,
		Where:     where,
		WhereArgs: whereArgs,
		Conflict:  conflict,
	})
	if err != nil {
		return 0, err
	}

	return s.execAffected(ctx, "update "+table, query, params)
}

// Delete removes every row matching where and returns the number removed.
// An empty where removes every row.
func (s *Store) Delete(ctx context.Context, table, where string, whereArgs []any) (int64, error) {
	query, params, err := querysql.CompileDelete(table, where, whereArgs)
	if err != nil {
		return 0, err
	}

	return s.execAffected(ctx, "delete from "+table, query, params)
}

// Exec runs an arbitrary statement on the writer connection and returns the
// number of rows it changed.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return s.execAffected(ctx, "exec", query, args)
}

func (s *Store) execAffected(ctx context.Context, op, query string, args []any) (int64, error) {
	if err := s.checkUnit(); err != nil {
		return 0, err
	}
	res, err := s.writer.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, s.noteFailure(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}
