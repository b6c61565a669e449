package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	jobs "github.com/joseph-ayodele/contract-extractor/internal/async"
)

// ProcessorQueue is a bounded in-process worker pool. Jobs lost on crash are
// recovered from the record store at startup, so the channel needs no durability.
type ProcessorQueue struct {
	handler jobs.Handler
	logger  *slog.Logger
	workers int
	size    int
	timeout time.Duration

	pending chan jobs.Job
	quit    chan struct{}
	wg      sync.WaitGroup

	// senders hold the read lock while sending; Shutdown takes the write lock to close pending.
	sendMu   sync.RWMutex
	stopping atomic.Bool
	inFlight atomic.Int64
}

var _ jobs.Queue = (*ProcessorQueue)(nil)

type Option func(*ProcessorQueue)

// WithWorkers sets the number of concurrent handlers. Default 4.
func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithQueueSize sets the buffer size. Default 256.
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.size = n
		}
	}
}

// WithProcessTimeout bounds a single Handle call. Default 3m.
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewProcessorQueue starts the workers immediately.
func NewProcessorQueue(handler jobs.Handler, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		handler: handler,
		logger:  logger,
		workers: 4,
		size:    256,
		timeout: 3 * time.Minute,
		quit:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.pending = make(chan jobs.Job, q.size)
	q.wg.Add(q.workers)
	for id := 1; id <= q.workers; id++ {
		go q.worker(id)
	}
	q.logger.Info("queue.start", "workers", q.workers, "size", q.size, "timeout", q.timeout.String())
	return q
}

func (q *ProcessorQueue) worker(id int) {
	defer q.wg.Done()
	for job := range q.pending {
		q.inFlight.Add(1)
		q.handle(id, job)
		q.inFlight.Add(-1)
	}
	q.logger.Debug("queue.worker.exit", "worker_id", id)
}

// handle runs one job with its own deadline; a handler panic is logged, not propagated.
func (q *ProcessorQueue) handle(workerID int, job jobs.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	attrs := []any{"worker_id", workerID, "analysis_id", job.AnalysisID, "recovered", job.Recovered}
	if !job.SubmittedAt.IsZero() {
		attrs = append(attrs, "wait_ms", time.Since(job.SubmittedAt).Milliseconds())
	}
	start := time.Now()
	err := q.safeHandle(ctx, job)
	attrs = append(attrs, "elapsed_ms", time.Since(start).Milliseconds())
	if err != nil {
		q.logger.Error("queue.job.failed", append(attrs, "error", err)...)
		return
	}
	q.logger.Info("queue.job.ok", attrs...)
}

func (q *ProcessorQueue) safeHandle(ctx context.Context, job jobs.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return q.handler.Handle(ctx, job)
}

// Enqueue blocks while the buffer is full, until ctx is done or Shutdown starts.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job jobs.Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.stopping.Load() {
		q.logger.Warn("queue.enqueue.closed", "analysis_id", job.AnalysisID)
		return jobs.ErrQueueClosed
	}

	select {
	case q.pending <- job:
		return nil
	default:
		q.logger.Warn("queue.enqueue.full", "analysis_id", job.AnalysisID, "size", q.size)
	}
	select {
	case q.pending <- job:
		return nil
	case <-q.quit:
		return jobs.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len reports the number of buffered jobs.
func (q *ProcessorQueue) Len() int { return len(q.pending) }

// InFlight reports the number of jobs currently being handled.
func (q *ProcessorQueue) InFlight() int { return int(q.inFlight.Load()) }

// Shutdown stops accepting jobs and waits for buffered and running ones to finish, or for ctx.
// Safe to call more than once.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	if !q.stopping.CompareAndSwap(false, true) {
		return
	}
	close(q.quit) // releases senders blocked on a full buffer
	q.sendMu.Lock()
	close(q.pending)
	q.sendMu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		q.logger.Info("queue.shutdown.ok")
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted", "buffered", q.Len(), "in_flight", q.InFlight())
	}
}
