package threads

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for unit of work")
	}
}

func TestQueue_RunsSubmittedWork(t *testing.T) {
	q := NewQueue("test", nil)
	defer q.Close()

	done := make(chan struct{})
	h, err := q.Submit(func() { close(done) })
	require.NoError(t, err)

	waitFor(t, done)
	assert.True(t, h.Started())
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue("test", nil)

	var got []int
	for i := 1; i <= 100; i++ {
		_, err := q.Submit(func() { got = append(got, i) })
		require.NoError(t, err)
	}

	// Close drains, and got is only touched by the worker goroutine
	q.Close()

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i+1, v)
	}
}

func TestQueue_OneAtATime(t *testing.T) {
	q := NewQueue("test", nil)

	var mu sync.Mutex
	active, maxActive := 0, 0

	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_, _ = q.Submit(func() {
					mu.Lock()
					active++
					if active > maxActive {
						maxActive = active
					}
					mu.Unlock()

					time.Sleep(100 * time.Microsecond)

					mu.Lock()
					active--
					mu.Unlock()
				})
			}
		}()
	}
	wg.Wait()
	q.Close()

	assert.Equal(t, 1, maxActive, "at most one unit of work may run at a time")
}

func TestQueue_CancelBeforeStart(t *testing.T) {
	q := NewQueue("test", nil)
	defer q.Close()

	// Block the worker so the next unit stays queued
	release := make(chan struct{})
	started := make(chan struct{})
	_, err := q.Submit(func() {
		close(started)
		<-release
	})
	require.NoError(t, err)
	waitFor(t, started)

	ran := false
	h, err := q.Submit(func() { ran = true })
	require.NoError(t, err)

	assert.True(t, h.Cancel(), "queued work should be cancellable")
	assert.False(t, h.Cancel(), "second cancel is a no-op")

	close(release)

	// A trailing unit proves the cancelled one was skipped, not delayed
	tail := make(chan struct{})
	_, err = q.Submit(func() { close(tail) })
	require.NoError(t, err)
	waitFor(t, tail)

	assert.False(t, ran)
	assert.False(t, h.Started())
}

func TestQueue_CancelAfterStartFails(t *testing.T) {
	q := NewQueue("test", nil)
	defer q.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	h, err := q.Submit(func() {
		close(started)
		<-release
	})
	require.NoError(t, err)
	waitFor(t, started)

	assert.False(t, h.Cancel())
	assert.True(t, q.Running())
	close(release)
}

func TestQueue_PanicDoesNotKillWorker(t *testing.T) {
	q := NewQueue("test", nil)
	defer q.Close()

	h, err := q.Submit(func() { panic("boom") })
	require.NoError(t, err)

	done := make(chan struct{})
	_, err = q.Submit(func() { close(done) })
	require.NoError(t, err)

	waitFor(t, done)
	assert.True(t, h.Finished())
}

func TestQueue_SubmitAfterClose(t *testing.T) {
	q := NewQueue("test", nil)
	q.Close()

	_, err := q.Submit(func() {})
	assert.ErrorIs(t, err, ErrQueueClosed)

	// Idempotent
	q.Close()
}

func TestQueue_CloseDrainsPending(t *testing.T) {
	q := NewQueue("test", nil)

	count := 0
	for i := 0; i < 50; i++ {
		_, err := q.Submit(func() {
			time.Sleep(50 * time.Microsecond)
			count++
		})
		require.NoError(t, err)
	}

	q.Close()
	assert.Equal(t, 50, count)
	assert.Equal(t, 0, q.Len())
}

func TestThreads_QueuesAreIndependent(t *testing.T) {
	th := New()
	defer th.Close()

	// Park the reader
	release := make(chan struct{})
	readerStarted := make(chan struct{})
	_, err := th.ScheduleOnReader(func() {
		close(readerStarted)
		<-release
	})
	require.NoError(t, err)
	waitFor(t, readerStarted)

	// The writer must still make progress
	writeDone := make(chan struct{})
	_, err = th.ScheduleOnWriter(func() { close(writeDone) })
	require.NoError(t, err)
	waitFor(t, writeDone)

	close(release)

	// And the other way around
	release = make(chan struct{})
	writerStarted := make(chan struct{})
	_, err = th.ScheduleOnWriter(func() {
		close(writerStarted)
		<-release
	})
	require.NoError(t, err)
	waitFor(t, writerStarted)

	readDone := make(chan struct{})
	_, err = th.ScheduleOnReader(func() { close(readDone) })
	require.NoError(t, err)
	waitFor(t, readDone)

	close(release)
}

func TestThreads_Names(t *testing.T) {
	th := New()
	defer th.Close()

	assert.Equal(t, WriterName, th.Writer.Name())
	assert.Equal(t, ReaderName, th.Reader.Name())
}

func TestMetrics_CountsQueueActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	q := NewQueue("writer", m)

	release := make(chan struct{})
	started := make(chan struct{})
	_, err := q.Submit(func() {
		close(started)
		<-release
	})
	require.NoError(t, err)
	waitFor(t, started)

	h, err := q.Submit(func() {})
	require.NoError(t, err)
	require.True(t, h.Cancel())

	_, err = q.Submit(func() { panic("boom") })
	require.NoError(t, err)

	close(release)
	q.Close()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.submittedTotal.WithLabelValues("writer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cancelledTotal.WithLabelValues("writer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.panicsTotal.WithLabelValues("writer")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.completedTotal.WithLabelValues("writer")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.queueDepth.WithLabelValues("writer")))
}
