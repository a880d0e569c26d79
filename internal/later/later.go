package later

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrCancelled is returned by Get when the unit of work was cancelled
	// before it started.
	ErrCancelled = errors.New("later: cancelled before start")

	// ErrTimeout is returned by GetTimeout when the deadline passes before
	// the Later completes. The unit of work keeps running.
	ErrTimeout = errors.New("later: timed out waiting for result")
)

// Cancellable is a handle to queued work that can be withdrawn before it runs.
// Cancel reports whether the work was withdrawn.
type Cancellable interface {
	Cancel() bool
}

type state int32

const (
	statePending state = iota
	stateCompleting
	stateCompleted
	stateFailed
	stateCancelled
)

// Later holds the result of a unit of work that has not necessarily run yet.
//
// Thread-safety: Set, Fail and Cancel may race with any number of Get calls
// from any goroutine. Exactly one of Set, Fail or a successful Cancel may
// complete a Later.
type Later[T any] struct {
	id    string
	state atomic.Int32
	done  chan struct{}

	// value and err are written once before done is closed and only read
	// after done is closed.
	value T
	err   error

	mu     sync.Mutex
	handle Cancellable
}

// New creates a pending Later with a fresh UUIDv7 correlation id.
func New[T any]() *Later[T] {
	return &Later[T]{
		id:   uuid.Must(uuid.NewV7()).String(),
		done: make(chan struct{}),
	}
}

// ID returns the correlation id used in logs.
func (l *Later[T]) ID() string {
	return l.id
}

// Wrap associates the handle of the queued unit of work with this Later so
// that Cancel can withdraw it.
func (l *Later[T]) Wrap(h Cancellable) {
	l.mu.Lock()
	l.handle = h
	l.mu.Unlock()
}

// Set completes the Later with v. Panics if the Later was already completed.
func (l *Later[T]) Set(v T) {
	l.complete(stateCompleted, v, nil)
}

// Fail completes the Later with err. Panics if the Later was already completed.
func (l *Later[T]) Fail(err error) {
	if err == nil {
		panic(fmt.Sprintf("later %s: Fail called with nil error", l.id))
	}
	var zero T
	l.complete(stateFailed, zero, err)
}

func (l *Later[T]) complete(final state, v T, err error) {
	if !l.state.CompareAndSwap(int32(statePending), int32(stateCompleting)) {
		panic(fmt.Sprintf("later %s: result already set", l.id))
	}
	l.value = v
	l.err = err
	l.state.Store(int32(final))
	close(l.done)
}

// Cancel withdraws the unit of work if it has not started yet. On success the
// Later completes with ErrCancelled and Cancel returns true. If the work has
// already started or finished, or no handle was wrapped, Cancel is a no-op.
func (l *Later[T]) Cancel() bool {
	l.mu.Lock()
	h := l.handle
	l.mu.Unlock()

	if h == nil || !h.Cancel() {
		return false
	}

	var zero T
	l.complete(stateCancelled, zero, ErrCancelled)
	return true
}

// Done returns a channel that is closed once the Later completes.
func (l *Later[T]) Done() <-chan struct{} {
	return l.done
}

// IsDone reports whether the Later has completed in any way.
func (l *Later[T]) IsDone() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// IsCancelled reports whether the Later completed through Cancel.
func (l *Later[T]) IsCancelled() bool {
	return state(l.state.Load()) == stateCancelled
}

// Get blocks until the Later completes and returns its outcome.
func (l *Later[T]) Get() (T, error) {
	<-l.done
	return l.value, l.err
}

// GetTimeout is Get bounded by d. Returns ErrTimeout if d elapses first.
func (l *Later[T]) GetTimeout(d time.Duration) (T, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-l.done:
		return l.value, l.err
	case <-timer.C:
		var zero T
		return zero, ErrTimeout
	}
}

// GetContext is Get bounded by ctx. Returns ctx.Err() if ctx ends first.
func (l *Later[T]) GetContext(ctx context.Context) (T, error) {
	select {
	case <-l.done:
		return l.value, l.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
