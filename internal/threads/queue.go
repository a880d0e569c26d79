package threads

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrQueueClosed is returned by Submit after Close has been called.
var ErrQueueClosed = errors.New("threads: queue closed")

type handleState int32

const (
	handleQueued handleState = iota
	handleRunning
	handleDone
	handleCancelled
)

// Handle refers to one submitted unit of work.
type Handle struct {
	state atomic.Int32
	queue *Queue
}

// Cancel withdraws the unit of work if it has not started. Returns true only
// if the work will never run.
func (h *Handle) Cancel() bool {
	if !h.state.CompareAndSwap(int32(handleQueued), int32(handleCancelled)) {
		return false
	}
	h.queue.metrics.cancelled(h.queue.name)
	return true
}

// Started reports whether the unit of work has begun running.
func (h *Handle) Started() bool {
	s := handleState(h.state.Load())
	return s == handleRunning || s == handleDone
}

// Finished reports whether the unit of work has run to completion.
func (h *Handle) Finished() bool {
	return handleState(h.state.Load()) == handleDone
}

type task struct {
	fn     func()
	handle *Handle
}

// Queue is a FIFO of units of work drained by a single dedicated goroutine.
//
// The pending list is unbounded so Submit never blocks the caller; the
// signal channel (buffer of 1) coalesces wake-ups for the worker.
type Queue struct {
	name    string
	metrics *Metrics

	mu     sync.Mutex
	tasks  []task
	closed bool
	signal chan struct{}

	running atomic.Bool
	exited  chan struct{}
}

// NewQueue creates a queue and starts its worker goroutine.
// metrics may be nil.
func NewQueue(name string, metrics *Metrics) *Queue {
	q := &Queue{
		name:    name,
		metrics: metrics,
		tasks:   make([]task, 0, 64),
		signal:  make(chan struct{}, 1),
		exited:  make(chan struct{}),
	}
	go q.loop()
	return q
}

// Name returns the queue name used in logs and metrics.
func (q *Queue) Name() string {
	return q.name
}

// Submit appends fn to the queue. Safe from any goroutine.
func (q *Queue) Submit(fn func()) (*Handle, error) {
	h := &Handle{queue: q}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	q.tasks = append(q.tasks, task{fn: fn, handle: h})
	q.metrics.submitted(q.name, len(q.tasks))

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return h, nil
}

// Len returns the number of units still waiting, including cancelled ones
// that have not been skipped yet.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Running reports whether a unit of work is executing right now.
func (q *Queue) Running() bool {
	return q.running.Load()
}

// Close stops accepting work, lets the worker drain everything already
// queued, and waits for it to exit. Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.signal)
	}
	q.mu.Unlock()

	<-q.exited
}

func (q *Queue) tryDequeue() (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return task{}, false
	}

	t := q.tasks[0]
	// Drop the reference so the closure can be collected
	q.tasks[0] = task{}
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}
	q.metrics.depth(q.name, len(q.tasks))

	return t, true
}

func (q *Queue) drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.tasks) == 0
}

func (q *Queue) loop() {
	defer close(q.exited)
	slog.Debug("worker queue started", "queue", q.name)

	for {
		if t, ok := q.tryDequeue(); ok {
			q.run(t)
			continue
		}
		if q.drained() {
			slog.Debug("worker queue stopped", "queue", q.name)
			return
		}
		// The signal channel is closed on Close, so this never blocks
		// once the queue is shutting down.
		<-q.signal
	}
}

func (q *Queue) run(t task) {
	if !t.handle.state.CompareAndSwap(int32(handleQueued), int32(handleRunning)) {
		// Cancelled while waiting
		return
	}

	q.running.Store(true)
	defer func() {
		if p := recover(); p != nil {
			q.metrics.panicked(q.name)
			slog.Error("unit of work panicked",
				"queue", q.name,
				"panic", p,
			)
		}
		q.running.Store(false)
		t.handle.state.Store(int32(handleDone))
		q.metrics.completed(q.name)
	}()

	t.fn()
}
