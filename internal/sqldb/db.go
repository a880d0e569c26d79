package sqldb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/sqldb/internal/config"
	"github.com/roach88/sqldb/internal/dispatch"
	"github.com/roach88/sqldb/internal/later"
	"github.com/roach88/sqldb/internal/store"
	"github.com/roach88/sqldb/internal/threads"
)

// ErrorHandler receives every failed operation. It runs on the executor.
type ErrorHandler func(err *OpError)

// DB is the asynchronous database facade. It exclusively owns its Engine and
// worker goroutines for its lifetime.
//
// Thread-safety: every method is safe from any goroutine.
type DB struct {
	eng     Engine
	threads *threads.Threads
	app     dispatch.Executor
	ownsApp bool
	onError ErrorHandler
	ctx     context.Context

	closeOnce sync.Once
	closeErr  error
}

// Option configures a DB.
type Option func(*dbOptions)

type dbOptions struct {
	onError  ErrorHandler
	registry prometheus.Registerer
	ctx      context.Context
}

// WithErrorHandler reports failed operations to h on the executor.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *dbOptions) {
		o.onError = h
	}
}

// WithMetrics registers worker queue metrics on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *dbOptions) {
		o.registry = reg
	}
}

// WithContext sets the context passed to every engine call.
// Default: context.Background().
func WithContext(ctx context.Context) Option {
	return func(o *dbOptions) {
		o.ctx = ctx
	}
}

// New starts the worker goroutines in front of eng. Callbacks run on app; a
// nil app gets a private dispatch.Serial that Close stops.
func New(eng Engine, app dispatch.Executor, opts ...Option) *DB {
	o := &dbOptions{ctx: context.Background()}
	for _, opt := range opts {
		opt(o)
	}

	var threadOpts []threads.Option
	if o.registry != nil {
		threadOpts = append(threadOpts, threads.WithMetrics(threads.NewMetrics(o.registry)))
	}

	db := &DB{
		eng:     eng,
		threads: threads.New(threadOpts...),
		app:     app,
		onError: o.onError,
		ctx:     o.ctx,
	}
	if app == nil {
		db.app = dispatch.NewSerial()
		db.ownsApp = true
	}
	return db
}

// Open opens the SQLite store and callback executor described by cfg.
func Open(cfg config.Config, opts ...Option) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Path,
		store.WithDisableSync(cfg.DisableSync),
		store.WithWAL(cfg.WAL),
		store.WithBusyTimeout(cfg.BusyTimeout),
	)
	if err != nil {
		return nil, err
	}

	app, err := dispatch.New(cfg.Callbacks.Executor, cfg.Callbacks.PoolSize)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("callback executor: %w", err)
	}

	db := New(st, app, opts...)
	db.ownsApp = true

	slog.Info("database ready",
		"path", cfg.Path,
		"executor", cfg.Callbacks.Executor,
	)
	return db, nil
}

// Close lets both queues drain, stops an owned executor after its queued
// callbacks ran, and closes the engine. Operations submitted afterwards fail
// with ErrClosed. Safe to call more than once.
func (db *DB) Close() error {
	db.closeOnce.Do(func() {
		db.threads.Close()
		if db.ownsApp {
			if c, ok := db.app.(dispatch.Closer); ok {
				c.Close()
			}
		}
		db.closeErr = db.eng.Close()
		slog.Debug("database closed")
	})
	return db.closeErr
}

// deliver hands fn to the executor. A panicking callback is logged and
// dropped so it cannot take down an executor goroutine.
func (db *DB) deliver(fn func()) {
	db.app.Submit(func() {
		defer func() {
			if p := recover(); p != nil {
				slog.Error("callback panicked", "panic", p)
			}
		}()
		fn()
	})
}

func (db *DB) reportError(err *OpError) {
	if db.onError == nil {
		return
	}
	db.deliver(func() { db.onError(err) })
}

// submit wraps work in a unit of work on q. The unit completes the returned
// Later exactly once and, on success, delivers callback(result).
func submit[R any](db *DB, q *threads.Queue, op, table string, work func(ctx context.Context) (R, error), callback func(R)) *later.Later[R] {
	l := later.New[R]()

	unit := func() {
		result, err := guard(func() (R, error) { return work(db.ctx) })
		if err != nil {
			opErr := &OpError{Op: op, Table: table, LaterID: l.ID(), Err: err}
			slog.Error("database operation failed",
				"id", l.ID(),
				"queue", q.Name(),
				"op", op,
				"table", table,
				"error", err,
			)
			l.Fail(opErr)
			db.reportError(opErr)
			return
		}

		l.Set(result)
		slog.Debug("database operation completed",
			"id", l.ID(),
			"queue", q.Name(),
			"op", op,
			"table", table,
		)

		if callback != nil {
			db.deliver(func() { callback(result) })
		}
	}

	h, err := q.Submit(unit)
	if err != nil {
		opErr := &OpError{Op: op, Table: table, LaterID: l.ID(), Err: ErrClosed}
		l.Fail(opErr)
		db.reportError(opErr)
		return l
	}
	l.Wrap(h)

	return l
}
