package threads

import "log/slog"

// Queue names used in logs and metric labels.
const (
	WriterName = "writer"
	ReaderName = "reader"
)

// Threads is the fixed pair of worker queues used by the database layer.
type Threads struct {
	Writer *Queue
	Reader *Queue
}

// Option configures Threads.
type Option func(*options)

type options struct {
	metrics *Metrics
}

// WithMetrics records queue activity on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New starts the writer and reader goroutines.
func New(opts ...Option) *Threads {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	return &Threads{
		Writer: NewQueue(WriterName, o.metrics),
		Reader: NewQueue(ReaderName, o.metrics),
	}
}

// ScheduleOnWriter submits fn to the writer queue.
func (t *Threads) ScheduleOnWriter(fn func()) (*Handle, error) {
	return t.Writer.Submit(fn)
}

// ScheduleOnReader submits fn to the reader queue.
func (t *Threads) ScheduleOnReader(fn func()) (*Handle, error) {
	return t.Reader.Submit(fn)
}

// Close drains and stops both queues, writer first.
func (t *Threads) Close() {
	t.Writer.Close()
	t.Reader.Close()
	slog.Debug("worker threads stopped")
}
