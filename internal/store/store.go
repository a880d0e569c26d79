package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// DefaultBusyTimeout is how long a connection waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// ErrInMemory is returned by Open for ":memory:" paths. The writer and reader
// connections must share one database file.
var ErrInMemory = errors.New("store: in-memory databases are not supported")

// Option configures Open.
type Option func(*options)

type options struct {
	disableSync bool
	wal         bool
	busyTimeout time.Duration
}

// WithDisableSync sets synchronous=OFF. Writes no longer wait for the disk,
// which is much faster and loses durability on power failure.
func WithDisableSync(disable bool) Option {
	return func(o *options) {
		o.disableSync = disable
	}
}

// WithWAL turns write-ahead logging on or off. Default: on.
func WithWAL(enabled bool) Option {
	return func(o *options) {
		o.wal = enabled
	}
}

// WithBusyTimeout overrides DefaultBusyTimeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		o.busyTimeout = d
	}
}

// Store is the SQLite engine: one writer connection and one reader pool.
type Store struct {
	path string
	opts options

	writerDB *sql.DB
	writer   *sql.Conn
	readerDB *sql.DB

	// unit is only touched from the writer goroutine.
	unit unitState
}

// Open creates or opens the database at path and applies pragmas.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store: empty database path")
	}
	if path == ":memory:" {
		return nil, ErrInMemory
	}

	o := options{wal: true, busyTimeout: DefaultBusyTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()

	writerDB, err := sql.Open("sqlite3", dsn(path, o))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// All writes go through one connection
	writerDB.SetMaxOpenConns(1)
	writerDB.SetMaxIdleConns(1)

	writer, err := writerDB.Conn(ctx)
	if err != nil {
		writerDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(ctx, writer, o); err != nil {
		writer.Close()
		writerDB.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	readerDB, err := sql.Open("sqlite3", dsn(path, o))
	if err != nil {
		writer.Close()
		writerDB.Close()
		return nil, fmt.Errorf("failed to open reader: %w", err)
	}
	readerDB.SetMaxOpenConns(1)
	readerDB.SetMaxIdleConns(1)

	if err := readerDB.PingContext(ctx); err != nil {
		readerDB.Close()
		writer.Close()
		writerDB.Close()
		return nil, fmt.Errorf("failed to connect reader: %w", err)
	}

	slog.Debug("store opened",
		"path", path,
		"wal", o.wal,
		"disable_sync", o.disableSync,
		"busy_timeout", o.busyTimeout,
	)

	return &Store{
		path:     path,
		opts:     o,
		writerDB: writerDB,
		writer:   writer,
		readerDB: readerDB,
	}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close rolls back any open atomic unit and closes both connections.
// Safe to call more than once.
func (s *Store) Close() error {
	var errs []error

	switch {
	case s.unit.aborted:
		s.unit = unitState{}
	case s.unit.open():
		slog.Warn("closing store with an open atomic unit, rolling back", "path", s.path)
		if err := s.finishUnit(context.Background(), false); err != nil {
			errs = append(errs, err)
		}
	}

	if s.writer != nil {
		if err := s.writer.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			errs = append(errs, err)
		}
		s.writer = nil
	}
	if s.writerDB != nil {
		errs = append(errs, s.writerDB.Close())
		s.writerDB = nil
	}
	if s.readerDB != nil {
		errs = append(errs, s.readerDB.Close())
		s.readerDB = nil
	}

	return errors.Join(errs...)
}

func dsn(path string, o options) string {
	return fmt.Sprintf("file:%s?_busy_timeout=%d", path, o.busyTimeout.Milliseconds())
}

// applyPragmas sets required SQLite configuration on the writer connection.
func applyPragmas(ctx context.Context, conn *sql.Conn, o options) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	if o.wal {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	if o.disableSync {
		pragmas = append(pragmas, "PRAGMA synchronous = OFF")
	} else {
		pragmas = append(pragmas, "PRAGMA synchronous = NORMAL")
	}

	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// pragma reads a pragma value through the writer connection.
// Used for testing.
func (s *Store) pragma(name string) (string, error) {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.writer.QueryRowContext(context.Background(), query).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
