package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore opens a store in a temp dir with a notes table.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := s.Exec(context.Background(), `
		CREATE TABLE notes (
			id INTEGER PRIMARY KEY,
			body TEXT,
			owner TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	return s
}

// countRows counts notes through the reader connection.
func countRows(t *testing.T, s *Store) int {
	t.Helper()
	c, err := s.RawQuery(context.Background(), "SELECT COUNT(*) FROM notes")
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	defer c.Close()

	var n int
	if !c.Next() {
		t.Fatalf("count query returned no rows")
	}
	if err := c.Scan(&n); err != nil {
		t.Fatalf("scan count failed: %v", err)
	}
	return n
}
