package starlark

import (
	"context"
	"sync"

	"go.starlark.net/starlark"
)

const defaultPoolSize = 10

// ThreadPool reuses Starlark threads across script evaluations, which
// may run concurrently.
type ThreadPool struct {
	mu      sync.Mutex
	threads []*starlark.Thread
	maxSize int
}

// NewThreadPool creates a pool holding at most maxSize idle threads.
func NewThreadPool(maxSize int) *ThreadPool {
	if maxSize <= 0 {
		maxSize = defaultPoolSize
	}
	return &ThreadPool{
		threads: make([]*starlark.Thread, 0, maxSize),
		maxSize: maxSize,
	}
}

func discardPrint(*starlark.Thread, string) {}

// Get takes an idle thread or creates one. The name is used for error
// reporting.
func (p *ThreadPool) Get(name string) *starlark.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.threads); n > 0 {
		thread := p.threads[n-1]
		p.threads = p.threads[:n-1]
		thread.Name = name
		return thread
	}
	return &starlark.Thread{Name: name, Print: discardPrint}
}

// Put returns a thread to the pool. It is dropped when the pool is full.
func (p *ThreadPool) Put(thread *starlark.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.threads) >= p.maxSize {
		return
	}
	// hooks belong to the previous evaluation
	thread.Name = ""
	thread.Load = nil
	thread.Print = discardPrint
	p.threads = append(p.threads, thread)
}

// Run calls fn with a pooled thread that is cancelled when ctx is done.
// A cancelled thread cannot run again and is not returned to the pool.
func (p *ThreadPool) Run(ctx context.Context, name string, fn func(*starlark.Thread) error) error {
	thread := p.Get(name)
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	err := fn(thread)
	if stop() {
		p.Put(thread)
	}
	return err
}

// Size returns the number of idle threads.
func (p *ThreadPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.threads)
}
