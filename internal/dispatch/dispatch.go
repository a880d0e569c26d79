package dispatch

import (
	"fmt"
	"log/slog"

	"github.com/alitto/pond/v2"

	"github.com/roach88/sqldb/internal/threads"
)

// Executor runs submitted callbacks somewhere other than the caller's
// goroutine. Submit must not block for long: it is called from worker queues.
type Executor interface {
	Submit(fn func())
}

// ExecutorFunc adapts a function to Executor. The function must hand fn to
// another goroutine: calling fn inline runs callbacks on the worker queue
// that completed the operation, stalling every unit queued behind it.
type ExecutorFunc func(fn func())

// Submit calls f(fn).
func (f ExecutorFunc) Submit(fn func()) {
	f(fn)
}

// Closer is implemented by executors that own goroutines.
type Closer interface {
	Close()
}

// Executor kinds accepted by New.
const (
	KindSerial = "serial"
	KindPool   = "pool"
	KindGo     = "go"
)

// New builds an executor by kind. size is only used by KindPool.
func New(kind string, size int) (Executor, error) {
	switch kind {
	case "", KindSerial:
		return NewSerial(), nil
	case KindPool:
		if size <= 0 {
			return nil, fmt.Errorf("pool executor needs a positive size, got %d", size)
		}
		return NewPool(size), nil
	case KindGo:
		return Go{}, nil
	default:
		return nil, fmt.Errorf("unknown executor kind %q", kind)
	}
}

// Serial runs callbacks one at a time, in submission order, on a single
// long-lived goroutine. This is the closest match to a UI main loop.
type Serial struct {
	q *threads.Queue
}

// NewSerial starts the callback goroutine.
func NewSerial() *Serial {
	return &Serial{q: threads.NewQueue("callbacks", nil)}
}

// Submit queues fn. Callbacks submitted after Close are dropped and logged.
func (s *Serial) Submit(fn func()) {
	if _, err := s.q.Submit(fn); err != nil {
		slog.Warn("callback dropped", "executor", KindSerial, "error", err)
	}
}

// Close runs every queued callback and stops the goroutine.
func (s *Serial) Close() {
	s.q.Close()
}

// Pool runs callbacks concurrently on a bounded set of goroutines.
// No ordering is guaranteed between callbacks.
type Pool struct {
	pool pond.Pool
}

// NewPool creates a pool with at most size concurrent callbacks.
func NewPool(size int) *Pool {
	return &Pool{pool: pond.NewPool(size)}
}

// Submit queues fn on the pool.
func (p *Pool) Submit(fn func()) {
	if p.pool.Stopped() {
		slog.Warn("callback dropped", "executor", KindPool, "error", "pool stopped")
		return
	}
	p.pool.Submit(fn)
}

// Close waits for queued callbacks and stops the pool.
func (p *Pool) Close() {
	p.pool.StopAndWait()
}

// Go runs each callback on its own goroutine.
type Go struct{}

// Submit starts fn on a new goroutine.
func (Go) Submit(fn func()) {
	go fn()
}
