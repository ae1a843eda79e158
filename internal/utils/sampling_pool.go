package utils

import (
	"context"
	"sync"
	"time"
)

// SamplingPool runs per-device sampling jobs on a fixed set of workers so
// one tick can fan out across devices without spawning a goroutine per
// device. Jobs are not queued past the worker count; Submit blocks until a
// worker is free or the caller's context is cancelled.
type SamplingPool struct {
	jobs chan func()
	quit chan struct{}
	once sync.Once
	busy sync.WaitGroup
}

// NewSamplingPool starts workers goroutines pulling jobs off the queue.
func NewSamplingPool(workers int) *SamplingPool {
	p := &SamplingPool{
		jobs: make(chan func(), workers),
		quit: make(chan struct{}),
	}

	p.busy.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

func (p *SamplingPool) worker() {
	defer p.busy.Done()
	for {
		select {
		case job := <-p.jobs:
			job()
		case <-p.quit:
			// Run anything already accepted before exiting, so a tick
			// that queued jobs past a shutdown still completes its fan-in.
			for {
				select {
				case job := <-p.jobs:
					job()
				default:
					return
				}
			}
		}
	}
}

// Submit hands task to a worker. It reports false, without running the task,
// when ctx is cancelled or the pool is shut down before a worker frees up.
func (p *SamplingPool) Submit(ctx context.Context, task func()) bool {
	select {
	case p.jobs <- task:
		return true
	case <-p.quit:
		return false
	case <-ctx.Done():
		return false
	}
}

// Shutdown signals the workers to exit and waits up to timeout for them. A
// worker stuck inside a job past the bound is abandoned; it exits on its own
// once the job returns. Reports whether every worker exited in time.
func (p *SamplingPool) Shutdown(timeout time.Duration) bool {
	p.once.Do(func() { close(p.quit) })

	idle := make(chan struct{})
	go func() {
		p.busy.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		return true
	case <-time.After(timeout):
		return false
	}
}
