// Package worker runs queued review jobs in the background. The pool
// backs the async submission path: handlers enqueue and return 202,
// workers run the review and persist the outcome.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Job is one unit of background work.
type Job func(ctx context.Context) error

// ErrQueueFull is returned when the job queue is at capacity.
var ErrQueueFull = errors.New("worker pool queue is full")

// Pool is a fixed-size worker pool over a bounded queue.
type Pool struct {
	queue    chan Job
	workers  int
	wg       sync.WaitGroup
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewPool(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		queue:   make(chan Job, queueSize),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	slog.Info("starting worker pool", "workers", p.workers, "queue_size", cap(p.queue))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit enqueues a job without blocking. The job must not be nil.
func (p *Pool) Submit(job Job) error {
	select {
	case p.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue, lets workers drain queued jobs, and waits up
// to timeout for them to finish. In-flight jobs past the deadline are
// cancelled through the pool context. Safe to call more than once.
func (p *Pool) Stop(timeout time.Duration) {
	p.stopOnce.Do(func() {
		slog.Info("stopping worker pool")
		close(p.queue)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			slog.Info("worker pool drained")
		case <-time.After(timeout):
			slog.Warn("worker pool stop timed out, cancelling in-flight jobs")
		}
		p.cancel()
	})
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for job := range p.queue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic in worker", "worker_id", id, "panic", r)
				}
			}()
			if err := job(p.ctx); err != nil {
				slog.Error("background job failed", "worker_id", id, "error", err)
			}
		}()
	}
}
