// Package worker runs analysis jobs on a bounded pool.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RyanBlaney/cry-sonar/logging"
)

var (
	// ErrQueueFull is returned when the pending queue has no room
	ErrQueueFull = errors.New("worker queue is full")
	// ErrStopped is returned after Stop
	ErrStopped = errors.New("worker pool is stopped")
)

// Task is one unit of work. ctx carries the per-task timeout.
type Task = func(ctx context.Context) error

// Config sizes the pool
type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration // per task; 0 disables the limit
}

// Pool executes submitted tasks on a fixed number of goroutines
type Pool struct {
	cfg    Config
	tasks  chan Task
	logger logging.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewPool creates a pool; call Start before submitting
func NewPool(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 4
	}

	return &Pool{
		cfg:   cfg,
		tasks: make(chan Task, cfg.QueueSize),
		logger: logging.WithFields(logging.Fields{
			"component": "worker_pool",
		}),
	}
}

// Start launches the workers. Cancelling ctx aborts running tasks.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := range p.cfg.Workers {
		p.wg.Add(1)
		go p.work(i)
	}

	p.logger.Info("Worker pool started", logging.Fields{
		"workers":    p.cfg.Workers,
		"queue_size": p.cfg.QueueSize,
		"timeout":    p.cfg.Timeout.String(),
	})
}

// Submit queues a task without blocking
func (p *Pool) Submit(task func(ctx context.Context) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop rejects new tasks, lets queued ones finish and waits for the workers
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	p.logger.Info("Worker pool stopped")
}

func (p *Pool) work(id int) {
	defer p.wg.Done()

	for task := range p.tasks {
		p.run(id, task)
	}
}

func (p *Pool) run(id int, task Task) {
	ctx := p.ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("Task panicked", logging.Fields{"worker": id, "panic": r})
		}
	}()

	started := time.Now()
	if err := task(ctx); err != nil {
		p.logger.Error(err, "Task failed", logging.Fields{
			"worker":  id,
			"elapsed": time.Since(started).String(),
		})
		return
	}

	p.logger.Debug("Task completed", logging.Fields{
		"worker":  id,
		"elapsed": time.Since(started).String(),
	})
}
