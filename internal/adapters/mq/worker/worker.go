// Package worker drains the submission queue into a Recorder.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/castform/internal/domain/model"
	"github.com/okian/castform/pkg/logger"
	"github.com/okian/castform/pkg/metrics"
)

// Recorder persists an accepted submission.
type Recorder interface {
	Record(ctx context.Context, s model.Submission) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, s model.Submission) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, s model.Submission) error { //nolint:gocritic // hugeParam: mirrors Recorder
	return f(ctx, s)
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Submission
}

// InMemoryWorker records submissions until its queue channel closes or ctx is done.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	name     string
	logger   logger.Logger

	done     chan struct{}
	doneOnce sync.Once
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, r Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		recorder: r,
		name:     "worker",
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes submissions and returns when the queue is closed and drained
// or ctx is canceled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer w.doneOnce.Do(func() { close(w.done) })

	for s := range w.queue.Dequeue(ctx) {
		if err := w.process(ctx, s); err != nil {
			w.logger.Error(ctx, "error recording submission", logger.Error(err))
		}
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, s model.Submission) error { //nolint:gocritic // hugeParam: received by value from the channel
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.recorder.Record(ctx, s); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "record_error")
		metrics.RecordErrorByType("record_error", "high")
		return fmt.Errorf("record submission %s: %w", s.ID, err)
	}

	metrics.RecordSubmissionRecorded()
	w.logger.Debug(ctx, "submission recorded",
		logger.String("submission_id", s.ID),
		logger.String("session_id", s.SessionID),
	)
	return nil
}

// Pool manages a fixed set of workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool. A workerCount below one uses runtime.NumCPU().
func NewPool(workerCount int, q Queue, r Recorder) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, r, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
