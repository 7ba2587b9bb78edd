package queue

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by LocalQueue.Enqueue when the buffer is full.
var ErrQueueFull = errors.New("notification queue full")

// ErrQueueClosed is returned by LocalQueue.Enqueue after Close.
var ErrQueueClosed = errors.New("notification queue closed")

// LocalQueue runs jobs on in-process workers.  Jobs still buffered when the
// process dies are lost; the retry sweep recovers them from the bookings
// table.
type LocalQueue struct {
	jobs    chan NotificationJob
	handler Handler
	log     *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewLocalQueue starts workers goroutines draining a buffer of the given
// size.
func NewLocalQueue(handler Handler, workers, buffer int, log *zap.Logger) *LocalQueue {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	q := &LocalQueue{jobs: make(chan NotificationJob, buffer), handler: handler, log: log.Named("local-queue")}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

// Enqueue buffers job without blocking.
func (q *LocalQueue) Enqueue(_ context.Context, job NotificationJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for buffered ones to finish.
func (q *LocalQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *LocalQueue) work() {
	defer q.wg.Done()
	for job := range q.jobs {
		if err := q.handler(context.Background(), job); err != nil {
			q.log.Error("handle job failed", zap.String("job_id", job.ID), zap.String("kind", job.Kind), zap.Error(err))
		}
	}
}
