package world

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool runs generation and meshing work on a bounded number of goroutines.
// Work is admitted in spawn order.
type Pool struct {
	ctx     context.Context
	cancel  context.CancelFunc
	sem     *semaphore.Weighted
	workers int
	wg      sync.WaitGroup
}

// NewPool creates a pool with the given parallelism; workers <= 0 uses
// GOMAXPROCS.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		ctx:     ctx,
		cancel:  cancel,
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: workers,
	}
}

// Workers returns the pool's parallelism.
func (p *Pool) Workers() int {
	return p.workers
}

// Close stops admitting work and waits for running work to finish. Tasks
// still waiting for a worker never complete.
func (p *Pool) Close() {
	p.cancel()
	p.wg.Wait()
}

// Task is the handle of a value being computed on a Pool.
type Task[T any] struct {
	done chan T
}

// Spawn schedules fn on the pool and returns immediately.
func Spawn[T any](p *Pool, fn func() T) *Task[T] {
	t := &Task[T]{done: make(chan T, 1)}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			return
		}
		defer p.sem.Release(1)
		t.done <- fn()
	}()
	return t
}

// TryComplete returns the result if it is ready. It never blocks, and
// reports true at most once.
func (t *Task[T]) TryComplete() (T, bool) {
	select {
	case v := <-t.done:
		return v, true
	default:
		var zero T
		return zero, false
	}
}
