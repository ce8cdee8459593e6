package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"solana-pump-radar/internal/logging"
	"solana-pump-radar/internal/observability"
)

// ErrPoolClosed is returned by Submit after Close has been called.
var ErrPoolClosed = errors.New("pool closed")

// Task is a unit of work run by the pool.
type Task func(ctx context.Context) error

type job struct {
	name string
	run  Task
}

// Pool runs tasks on a fixed number of workers with an unbounded FIFO queue.
// Task errors and panics are logged and counted, never retried.
type Pool struct {
	logger *zap.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []job
	inFlight int
	closed   bool
	idle     chan struct{} // closed while nothing is queued or running

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool starts a pool with the given number of workers.
func NewPool(workers int, logger *zap.Logger) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("workers must be >= 1, got %d", workers)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		logger: logging.OrNop(logger).With(zap.String("component", "pool")),
		idle:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	p.cond = sync.NewCond(&p.mu)
	close(p.idle)

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p, nil
}

// Submit queues a task and returns immediately.
func (p *Pool) Submit(name string, task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if p.isIdleLocked() {
		p.idle = make(chan struct{})
	}
	p.queue = append(p.queue, job{name: name, run: task})
	p.recordLocked()
	p.cond.Signal()
	return nil
}

// Pending returns the number of tasks currently running.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Size returns the number of queued tasks not yet started.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Idle reports whether no task is queued or running.
func (p *Pool) Idle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isIdleLocked()
}

// WaitIdle blocks until the pool is idle or ctx is done.
func (p *Pool) WaitIdle(ctx context.Context) error {
	p.mu.Lock()
	idle := p.idle
	p.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
// If ctx expires first, queued tasks are dropped, running tasks see their
// context cancelled and Close returns without waiting for them.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
	}

	p.mu.Lock()
	dropped := len(p.queue)
	p.queue = nil
	p.recordLocked()
	running := p.inFlight
	if p.isIdleLocked() {
		p.markIdleLocked()
	}
	p.mu.Unlock()

	p.cancel()
	p.logger.Warn("pool closed before drain",
		zap.Int("dropped", dropped),
		zap.Int("running", running))
	return ctx.Err()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			// closed and drained
			p.mu.Unlock()
			return
		}

		j := p.queue[0]
		p.queue[0] = job{}
		p.queue = p.queue[1:]
		p.inFlight++
		p.recordLocked()
		p.mu.Unlock()

		p.run(j)

		p.mu.Lock()
		p.inFlight--
		p.recordLocked()
		if p.isIdleLocked() {
			p.markIdleLocked()
		}
		p.mu.Unlock()
	}
}

// run executes one job, converting panics into a logged failure.
func (p *Pool) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			observability.RecordTask("panic")
			p.logger.Error("task panicked",
				zap.String("task", j.name),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	if err := j.run(p.ctx); err != nil {
		observability.RecordTask("error")
		p.logger.Error("task failed", zap.String("task", j.name), zap.Error(err))
		return
	}
	observability.RecordTask("ok")
}

func (p *Pool) isIdleLocked() bool {
	return len(p.queue) == 0 && p.inFlight == 0
}

func (p *Pool) markIdleLocked() {
	select {
	case <-p.idle:
	default:
		close(p.idle)
	}
}

func (p *Pool) recordLocked() {
	observability.RecordQueueState(len(p.queue), p.inFlight)
}
