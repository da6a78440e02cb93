package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfchat/internal/domain"
	"github.com/kailas-cloud/pdfchat/internal/metrics"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("ingest queue closed")

// Queue is a bounded in-process job queue served by a fixed worker pool.
// Progress is observable through the document status, not through the queue.
type Queue struct {
	ingester Ingester
	jobs     chan Request
	workers  int
	logger   *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewQueue creates a queue with the given worker count and capacity.
func NewQueue(ingester Ingester, workers, size int, logger *zap.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		ingester: ingester,
		jobs:     make(chan Request, size),
		workers:  workers,
		logger:   logger,
	}
}

// Start launches the workers. Jobs run under ctx (detached from any request).
func (q *Queue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	for i := range q.workers {
		q.wg.Add(1)
		go q.work(ctx, i)
	}
	q.logger.Info("Ingest queue started", zap.Int("workers", q.workers), zap.Int("capacity", cap(q.jobs)))
}

// Enqueue schedules a job without waiting for it.
func (q *Queue) Enqueue(req Request) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- req:
		metrics.IngestQueueDepth.Inc()
		return nil
	default:
		return fmt.Errorf("%w: %d jobs pending", domain.ErrQueueFull, cap(q.jobs))
	}
}

// Depth returns the number of jobs waiting for a worker.
func (q *Queue) Depth() int {
	return len(q.jobs)
}

// Shutdown stops accepting jobs and waits for queued ones to drain.
// When ctx ends first, running jobs are cancelled.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if q.cancel != nil {
			q.cancel()
		}
		return nil
	case <-ctx.Done():
		if q.cancel != nil {
			q.cancel()
		}
		<-done
		return fmt.Errorf("ingest queue drain: %w", ctx.Err())
	}
}

func (q *Queue) work(ctx context.Context, id int) {
	defer q.wg.Done()
	log := q.logger.With(zap.Int("worker", id))

	for req := range q.jobs {
		metrics.IngestQueueDepth.Dec()
		if ctx.Err() != nil {
			log.Warn("Dropping job after shutdown", zap.String("document_id", req.DocumentID))
			continue
		}

		res, err := q.ingester.Ingest(ctx, req)
		if err != nil {
			log.Warn("Queued ingestion failed",
				zap.String("document_id", req.DocumentID),
				zap.String("kind", res.ErrorKind),
			)
			continue
		}
		log.Debug("Queued ingestion finished",
			zap.String("document_id", req.DocumentID),
			zap.Int("chunks", res.ChunkCount),
		)
	}
}
