// Package worker drains the ingestion queue and commits each job through
// an Ingestor.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/royale/internal/adapters/mq/queue"
	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/pkg/logger"
	"github.com/okian/royale/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Ingestor commits one match telemetry against a schedule.
type Ingestor interface {
	IngestMatch(ctx context.Context, tel model.Telemetry, scheduleID string) model.IngestStatus
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its context ends or the queue closes.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for queued ingestion jobs.
type InMemoryWorker struct {
	queue    Queue
	ingestor Ingestor
	name     string

	shutdown chan struct{}
	done     chan struct{}

	processed atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, ingestor Ingestor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		ingestor: ingestor,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Processed returns the number of jobs this worker has handled.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Shutdown signals the worker and waits for its loop to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) { //nolint:gocritic // hugeParam: Job travels by value over the channel
	start := time.Now()
	st := w.ingestor.IngestMatch(ctx, j.Telemetry, j.ScheduleID)
	metrics.RecordWorkerProcessingLatency(time.Since(start))
	w.processed.Add(1)

	fields := []logger.Field{
		logger.String("job_id", j.JobID),
		logger.String("schedule_id", j.ScheduleID),
		logger.String("game_id", j.Telemetry.GameID.String()),
		logger.String("status", st.Status),
	}
	switch st.Status {
	case model.StatusSuccess:
		w.logger.Debug(ctx, "job ingested", fields...)
	case model.StatusError:
		metrics.RecordErrorByComponent("worker", "ingest_error")
		w.logger.Error(ctx, "job failed", append(fields, logger.String("message", st.Message))...)
	default:
		w.logger.Warn(ctx, "job rejected", append(fields, logger.String("message", st.Message))...)
	}

	if j.Reply != nil {
		select {
		case j.Reply <- st:
		default:
			w.logger.Warn(ctx, "reply channel full, dropping status", logger.String("job_id", j.JobID))
		}
	}
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses one worker per CPU.
func NewPool(workerCount int, q Queue, ingestor Ingestor) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, ingestor, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the total number of jobs handled by the pool.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
