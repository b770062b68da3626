package arcflow

import (
	"errors"

	"github.com/panjf2000/ants/v2"
)

// ErrWorkerPoolClosed is returned by Submit once Release has been
// called on the pool.
var ErrWorkerPoolClosed = errors.New("arcflow: worker pool is closed")

// WorkerPool runs handler-submitted work off the event-loop goroutine.
// It exists for exactly the case spec'd for Defer/Finish: a handler
// that needs to do something slow (a database call, a blocking
// library) calls Ctx.Defer, submits a closure here that eventually
// calls Ctx.Finish, and returns immediately so the event loop stays
// free to service other connections.
type WorkerPool struct {
	pool *ants.Pool
}

// NewWorkerPool wraps an ants.Pool capped at size concurrent
// goroutines. A size <= 0 falls back to ants' own default pool size.
func NewWorkerPool(size int) (*WorkerPool, error) {
	if size <= 0 {
		size = ants.DefaultAntsPoolSize
	}
	p, err := ants.NewPool(size, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	return &WorkerPool{pool: p}, nil
}

// Submit queues fn to run on a pooled goroutine. fn must not touch the
// Ctx, Request, Response, or Arena it closed over until after calling
// Ctx.Defer on the event-loop goroutine first - none of that state is
// safe for concurrent access.
func (wp *WorkerPool) Submit(fn func()) error {
	if wp.pool.IsClosed() {
		return ErrWorkerPoolClosed
	}
	return wp.pool.Submit(fn)
}

// Running returns the number of goroutines currently executing
// submitted work.
func (wp *WorkerPool) Running() int {
	return wp.pool.Running()
}

// Release waits for running work to finish and tears the pool down.
func (wp *WorkerPool) Release() {
	wp.pool.Release()
}
