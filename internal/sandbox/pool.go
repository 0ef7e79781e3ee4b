package sandbox

import (
	"context"
	"sync"
	"time"
)

// Pool manages reusable sandbox runtimes. A released runtime is reset to a
// fresh VM before reuse, so no state survives between widgets.
type Pool struct {
	config    Config
	sandboxes chan *Runtime
	size      int
	mu        sync.RWMutex
	closed    bool
}

// NewPool creates a sandbox pool.
func NewPool(config Config, size int) (*Pool, error) {
	if size <= 0 {
		size = 4
	}

	pool := &Pool{
		config:    config,
		sandboxes: make(chan *Runtime, size),
		size:      size,
	}

	for i := 0; i < size; i++ {
		runtime, err := New(config)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.sandboxes <- runtime
	}

	return pool, nil
}

// Acquire gets a runtime from the pool with a bounded wait.
func (p *Pool) Acquire(ctx context.Context) (*Runtime, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	select {
	case runtime := <-p.sandboxes:
		return runtime, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return nil, ErrTimeout
	}
}

// Release returns a runtime to the pool after wiping it.
func (p *Pool) Release(runtime *Runtime) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return runtime.Close()
	}

	if err := runtime.Reset(); err != nil {
		runtime.Close()
		if fresh, err := New(p.config); err == nil {
			p.sandboxes <- fresh
		}
		return err
	}

	select {
	case p.sandboxes <- runtime:
		return nil
	default:
		return runtime.Close()
	}
}

// Execute runs a program using a pooled runtime.
func (p *Pool) Execute(ctx context.Context, program Program) (*Result, error) {
	runtime, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(runtime)

	return runtime.Execute(ctx, program)
}

// Close closes the pool and all runtimes.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	close(p.sandboxes)

	for runtime := range p.sandboxes {
		runtime.Close()
	}

	return nil
}

// Stats returns pool statistics.
func (p *Pool) Stats() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]any{
		"size":      p.size,
		"available": len(p.sandboxes),
		"in_use":    p.size - len(p.sandboxes),
		"closed":    p.closed,
	}
}
