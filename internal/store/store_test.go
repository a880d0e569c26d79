package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if _, err := s1.Exec(t.Context(), "CREATE TABLE kept (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	c, err := s2.RawQuery(t.Context(), "SELECT name FROM sqlite_master WHERE type='table' AND name='kept'")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	defer c.Close()
	if !c.Next() {
		t.Error("table created before reopen is missing")
	}
}

func TestOpen_RejectsBadPaths(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := Open(":memory:"); !errors.Is(err, ErrInMemory) {
		t.Errorf("expected ErrInMemory, got %v", err)
	}
	if _, err := Open("/nonexistent/dir/test.db"); err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}

func TestClose_RollsBackOpenUnit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s.Exec(t.Context(), "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)"); err != nil {
		t.Fatalf("create table failed: %v", err)
	}

	if err := s.BeginNonExclusive(t.Context()); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if _, err := s.Insert(t.Context(), "notes", "", NewValues().Put("body", "lost"), 0); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()
	c, err := s2.RawQuery(t.Context(), "SELECT COUNT(*) FROM notes")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	defer c.Close()
	var n int
	c.Next()
	if err := c.Scan(&n); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if n != 0 {
		t.Errorf("uncommitted row survived Close: count = %d", n)
	}
}

// Pragma tests

func TestPragma_Defaults(t *testing.T) {
	s := createTestStore(t)

	tests := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1", // NORMAL
		"busy_timeout": "5000",
		"foreign_keys": "1",
	}
	for name, want := range tests {
		got, err := s.pragma(name)
		if err != nil {
			t.Errorf("pragma %s: %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("pragma %s = %q, want %q", name, got, want)
		}
	}
}

func TestPragma_Options(t *testing.T) {
	s := createTestStore(t,
		WithDisableSync(true),
		WithWAL(false),
		WithBusyTimeout(250*time.Millisecond),
	)

	checks := map[string]string{
		"journal_mode": "delete",
		"synchronous":  "0", // OFF
		"busy_timeout": "250",
	}
	for name, want := range checks {
		got, err := s.pragma(name)
		if err != nil {
			t.Errorf("pragma %s: %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("pragma %s = %q, want %q", name, got, want)
		}
	}
}
