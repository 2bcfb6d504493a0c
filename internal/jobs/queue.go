package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Job func(ctx context.Context)

type task struct {
	ctx context.Context
	job Job
}

// Queue runs jobs from a fixed worker pool. Submit never blocks.
type Queue struct {
	queue   chan task
	log     *slog.Logger
	timeout time.Duration

	wg   sync.WaitGroup
	mu   sync.RWMutex
	once sync.Once
	done bool
}

type Option func(*Queue)

func WithTimeout(d time.Duration) Option {
	return func(q *Queue) { q.timeout = d }
}

func NewQueue(size int, log *slog.Logger, opts ...Option) *Queue {
	if size <= 0 {
		size = 64
	}
	if log == nil {
		log = slog.Default()
	}
	q := &Queue{
		queue:   make(chan task, size),
		log:     log.With("svc", "jobs"),
		timeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

func (q *Queue) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for t := range q.queue {
				q.run(t)
			}
		}()
	}
}

func (q *Queue) run(t task) {
	ctx, cancel := context.WithTimeout(t.ctx, q.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("job_panicked", "panic", r)
		}
	}()
	t.job(ctx)
}

// Submit reports false when the job was dropped. The job keeps the values of
// ctx but not its cancellation.
func (q *Queue) Submit(ctx context.Context, job Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.done {
		return false
	}
	select {
	case q.queue <- task{ctx: context.WithoutCancel(ctx), job: job}:
		return true
	default:
		q.log.Warn("job_dropped", "reason", "queue full")
		return false
	}
}

// Close stops accepting jobs and waits for the queued ones to finish.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.done = true
		close(q.queue)
		q.mu.Unlock()
		q.wg.Wait()
	})
}
