// Package parallel provides the bounded worker pool used to solve
// independent machines concurrently. Each task owns its own solver, so the
// pool only has to bound concurrency and track completion.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrPoolShutdown is returned when trying to submit tasks to a shutdown pool.
var ErrPoolShutdown = errors.New("worker pool has been shutdown")

// WorkerPool manages a fixed set of goroutines draining a task queue.
// The buffered queue provides backpressure: Submit blocks once every worker
// is busy and the buffer is full.
type WorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	pending      sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If maxWorkers is 0 or negative, it defaults to the number of CPU cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}

	return pool
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int { return wp.maxWorkers }

// worker runs tasks until shutdown, then drains whatever is still queued so
// that Wait never blocks on an accepted task.
func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()

	for {
		select {
		case task := <-wp.taskChan:
			wp.run(task)
		case <-wp.shutdownChan:
			for {
				select {
				case task := <-wp.taskChan:
					wp.run(task)
				default:
					return
				}
			}
		}
	}
}

func (wp *WorkerPool) run(task func()) {
	defer wp.pending.Done()
	if task != nil {
		task()
	}
}

// Submit queues a task. It blocks while the queue is full and returns
// ctx.Err() or ErrPoolShutdown if the task could not be queued. An accepted
// task always runs provided Submit does not race with Shutdown.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	default:
	}

	wp.pending.Add(1)
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		wp.pending.Done()
		return ctx.Err()
	case <-wp.shutdownChan:
		wp.pending.Done()
		return ErrPoolShutdown
	}
}

// Wait blocks until every accepted task has finished.
func (wp *WorkerPool) Wait() {
	wp.pending.Wait()
}

// Shutdown stops accepting tasks, lets the workers finish everything already
// queued, and waits for them to exit. It is safe to call more than once.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		close(wp.shutdownChan)
		wp.workerWg.Wait()
	})
}
