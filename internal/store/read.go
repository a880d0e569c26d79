package store

import (
	"context"
	"fmt"

	"github.com/roach88/sqldb/internal/querysql"
)

// Query runs a filtered query on the reader connection.
// Callers are responsible for closing the returned cursor.
func (s *Store) Query(ctx context.Context, q querysql.Select) (Cursor, error) {
	query, params, err := querysql.CompileSelect(q)
	if err != nil {
		return nil, err
	}
	return s.RawQuery(ctx, query, params...)
}

// RawQuery runs a SQL query on the reader connection.
// Callers are responsible for closing the returned cursor.
func (s *Store) RawQuery(ctx context.Context, query string, args ...any) (Cursor, error) {
	rows, err := s.readerDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return newCursor(rows), nil
}

// UnitQuery runs a SQL query on the writer connection, so it observes the
// uncommitted writes of the open atomic unit. Writer goroutine only.
func (s *Store) UnitQuery(ctx context.Context, query string, args ...any) (Cursor, error) {
	if err := s.checkUnit(); err != nil {
		return nil, err
	}
	rows, err := s.writer.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unit query: %w", s.noteFailure(err))
	}
	return newCursor(rows), nil
}
