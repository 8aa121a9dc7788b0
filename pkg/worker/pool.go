package worker

import (
	"errors"
	"sync"
)

// WorkerPool supervises a set of workers, running each on its own
// goroutine. Workers are attached up-front; once the pool is started
// the membership is fixed and the pool only wakes, and eventually
// closes, the workers it holds.
type WorkerPool struct {
	attached []Worker
	wg       sync.WaitGroup
	started  bool
}

func NewWorkerPool() *WorkerPool {
	return &WorkerPool{}
}

// PushWorker attaches the given workers to the pool. Attaching to a
// pool that has already been started is an error.
func (pool *WorkerPool) PushWorker(workers ...Worker) error {
	if pool.started {
		return errors.New("cannot push worker to already started worker pool")
	}

	pool.attached = append(pool.attached, workers...)
	return nil
}

// Start launches one goroutine per attached worker and returns
// without blocking. Close stops the workers and waits for these
// goroutines to finish.
func (pool *WorkerPool) Start() error {
	if pool.started {
		return errors.New("cannot start an already started worker pool")
	}

	pool.started = true
	for _, w := range pool.attached {
		pool.wg.Add(1)
		go func() {
			defer pool.wg.Done()
			w.Start()
		}()
	}

	return nil
}

// WakeupWorkers nudges every sleeping worker in the pool. Busy workers
// are left alone, and a sleeping worker with a wakeup already pending
// is not sent another.
func (pool *WorkerPool) WakeupWorkers() error {
	if !pool.started {
		return errors.New("cannot wakeup workers on worker pool that is not started")
	}

	for _, w := range pool.attached {
		if w.Status() != SLEEPING {
			continue
		}

		select {
		case w.WakeupChan() <- 1:
		default:
		}
	}

	return nil
}

// Close closes each worker and blocks until all of their goroutines
// have returned.
func (pool *WorkerPool) Close() {
	if !pool.started {
		return
	}

	for _, w := range pool.attached {
		w.Close()
	}

	pool.wg.Wait()
	pool.started = false
}
