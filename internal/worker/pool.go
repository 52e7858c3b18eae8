// Package worker provides the fixed goroutine pool that runs backend fetches
// and bundle decodes off the driving goroutine.
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker: pool is closed")

// Pool manages a fixed set of goroutines executing submitted closures.
type Pool struct {
	numWorkers int
	workCh     chan func()
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool
	submitMu   sync.RWMutex
}

// NewPool creates a pool with numWorkers goroutines.
// Fetches are IO-bound, so numWorkers <= 0 defaults to 2x GOMAXPROCS.
func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 2 * runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		workCh:     make(chan func(), numWorkers*2),
		stopCh:     make(chan struct{}),
	}

	p.wg.Add(numWorkers)
	for range numWorkers {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			// Drain what was accepted before Close.
			for {
				select {
				case fn, ok := <-p.workCh:
					if !ok {
						return
					}
					fn()
				default:
					return
				}
			}
		case fn, ok := <-p.workCh:
			if !ok {
				return
			}
			fn()
		}
	}
}

// Submit enqueues task. It blocks while the queue is full.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if p.closed.Load() {
		return ErrPoolClosed
	}

	select {
	case p.workCh <- task:
		return nil
	case <-p.stopCh:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.numWorkers
}

// Close stops accepting work, runs what was already queued and waits for
// the workers to exit. It is idempotent.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	p.submitMu.Lock()
	close(p.stopCh)
	close(p.workCh)
	p.submitMu.Unlock()

	p.wg.Wait()
}
