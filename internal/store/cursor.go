package store

import (
	"database/sql"
	"fmt"
)

// Cursor iterates the rows of a query. The database layer closes it once the
// result handler returns, so handlers must not keep it.
type Cursor interface {
	Next() bool
	Columns() ([]string, error)
	Scan(dest ...any) error
	// Row scans the current row into a column-name keyed map.
	Row() (map[string]any, error)
	Err() error
	Close() error
}

type rowsCursor struct {
	rows *sql.Rows
	cols []string
}

func newCursor(rows *sql.Rows) *rowsCursor {
	return &rowsCursor{rows: rows}
}

func (c *rowsCursor) Next() bool {
	return c.rows.Next()
}

func (c *rowsCursor) Columns() ([]string, error) {
	if c.cols != nil {
		return c.cols, nil
	}
	cols, err := c.rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("cursor columns: %w", err)
	}
	c.cols = cols
	return cols, nil
}

func (c *rowsCursor) Scan(dest ...any) error {
	return c.rows.Scan(dest...)
}

func (c *rowsCursor) Row() (map[string]any, error) {
	cols, err := c.Columns()
	if err != nil {
		return nil, err
	}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("cursor scan: %w", err)
	}

	row := make(map[string]any, len(cols))
	for i, col := range cols {
		row[col] = vals[i]
	}
	return row, nil
}

func (c *rowsCursor) Err() error {
	return c.rows.Err()
}

func (c *rowsCursor) Close() error {
	return c.rows.Close()
}

// Rows drains c into maps. It does not close c.
func Rows(c Cursor) ([]map[string]any, error) {
	rows := []map[string]any{}
	for c.Next() {
		row, err := c.Row()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := c.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return rows, nil
}
