package sqldb

import (
	"context"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sqldb/internal/dispatch"
	"github.com/roach88/sqldb/internal/store"
)

const notesSchema = `
	CREATE TABLE notes (
		id INTEGER PRIMARY KEY,
		body TEXT NOT NULL,
		owner TEXT NOT NULL DEFAULT ''
	)
`

// newTestStore opens a SQLite store in a temp dir.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return st
}

// newTestDB wraps eng (or a fresh store) with a serial executor and creates
// the notes table.
func newTestDB(t *testing.T, eng Engine, opts ...Option) *DB {
	t.Helper()
	if eng == nil {
		eng = newTestStore(t)
	}
	app := dispatch.NewSerial()
	db := New(eng, app, opts...)
	t.Cleanup(func() {
		db.Close()
		app.Close()
	})

	_, err := db.Exec(notesSchema, nil, nil).GetTimeout(5 * time.Second)
	require.NoError(t, err)
	return db
}

func note(body string) *Values {
	return NewValues().Put("body", body)
}

// countHandler returns the first column of the first row as an int.
func countHandler() CursorHandler[int] {
	return Handler(func(c Cursor) (int, error) {
		var n int
		if c.Next() {
			if err := c.Scan(&n); err != nil {
				return 0, err
			}
		}
		return n, c.Err()
	}, nil)
}

func countNotes(t *testing.T, db *DB) int {
	t.Helper()
	n, err := RawQuery(db, "SELECT COUNT(*) FROM notes", nil, countHandler()).GetTimeout(5 * time.Second)
	require.NoError(t, err)
	return n
}

// rowsHandler drains the cursor into maps.
func rowsHandler(callback func([]map[string]any)) CursorHandler[[]map[string]any] {
	return Handler(store.Rows, callback)
}

// blockWriter parks the writer goroutine until the returned release func is
// called. It returns once the writer is actually parked.
func blockWriter(t *testing.T, db *DB) (release func()) {
	t.Helper()
	return blockQueue(t, db.threads.ScheduleOnWriter)
}

// blockReader parks the reader goroutine, see blockWriter.
func blockReader(t *testing.T, db *DB) (release func()) {
	t.Helper()
	return blockQueue(t, db.threads.ScheduleOnReader)
}

func blockQueue[H any](t *testing.T, schedule func(func()) (H, error)) func() {
	t.Helper()
	started := make(chan struct{})
	gate := make(chan struct{})
	_, err := schedule(func() {
		close(started)
		<-gate
	})
	require.NoError(t, err)
	waitClosed(t, started)

	var once sync.Once
	release := func() { once.Do(func() { close(gate) }) }
	t.Cleanup(release)
	return release
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

// goroutineID parses the current goroutine's id from its stack header
// ("goroutine 123 [running]:").
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))
	id, _ := strconv.ParseUint(fields[0], 10, 64)
	return id
}

// queueGoroutine returns the goroutine id of a worker queue.
func queueGoroutine[H any](t *testing.T, schedule func(func()) (H, error)) uint64 {
	t.Helper()
	ids := make(chan uint64, 1)
	_, err := schedule(func() { ids <- goroutineID() })
	require.NoError(t, err)
	select {
	case id := <-ids:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("queue never ran")
		return 0
	}
}

// recordingEngine wraps an Engine and records atomic-unit calls.
type recordingEngine struct {
	Engine

	nonExclusive bool

	mu    sync.Mutex
	calls []string
}

func (e *recordingEngine) record(call string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, call)
}

func (e *recordingEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *recordingEngine) SupportsNonExclusive() bool {
	return e.nonExclusive
}

func (e *recordingEngine) Begin(ctx context.Context) error {
	e.record("begin")
	return e.Engine.Begin(ctx)
}

func (e *recordingEngine) BeginNonExclusive(ctx context.Context) error {
	e.record("begin non-exclusive")
	return e.Engine.BeginNonExclusive(ctx)
}

func (e *recordingEngine) End(ctx context.Context) error {
	e.record("end")
	return e.Engine.End(ctx)
}
