// Package queue hands accepted submissions from request handlers to the
// recording workers.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/castform/internal/domain/model"
	"github.com/okian/castform/pkg/metrics"
)

const defaultQueueCapacity = 1_000

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds s to the queue. It returns ErrFull when the queue is at
	// capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, s model.Submission) error

	// Dequeue returns a channel of submissions. The channel is closed when
	// the queue is closed and drained, or when ctx is done.
	Dequeue(ctx context.Context) <-chan model.Submission

	Len(ctx context.Context) int

	// Close stops accepting submissions. Queued submissions can still be dequeued.
	Close() error

	IsClosed() bool
}

type envelope struct {
	sub        model.Submission
	enqueuedAt time.Time
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan envelope
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan envelope, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds s to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s model.Submission) error { //nolint:gocritic // hugeParam: copied into the channel anyway
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.items <- envelope{sub: s, enqueuedAt: time.Now()}:
		metrics.RecordQueueEnqueue()
		q.observeSize()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that receives submissions as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.Submission {
	out := make(chan model.Submission)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case env, ok := <-q.items:
				if !ok {
					return
				}
				select {
				case out <- env.sub:
					metrics.RecordQueueDequeue()
					metrics.RecordQueueProcessingLatency(float64(time.Since(env.enqueuedAt).Milliseconds()))
					q.observeSize()
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the number of queued submissions.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.observeSize()
}

func (q *InMemoryQueue) observeSize() int {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close stops the queue. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
