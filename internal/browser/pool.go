package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrPoolClosed is returned by Acquire after the pool has been shut down
var ErrPoolClosed = errors.New("browser pool is closed")

// Pool is a bounded pool of reusable browser execution contexts. It is
// the only resource shared across concurrent checks; all access goes
// through Acquire/Release and in-use contexts never exceed MaxContexts.
// The pool is an explicitly owned object: constructed at startup,
// disposed at shutdown, never a process-wide singleton.
type Pool struct {
	browser Browser
	max     int
	idleTTL time.Duration

	slots chan struct{} // capacity tokens, one per in-use context

	mu     sync.Mutex
	idle   []idleEntry // LIFO, most recently used last
	closed bool

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type idleEntry struct {
	ctx   Context
	since time.Time
}

// PoolConfig holds pool configuration
type PoolConfig struct {
	MaxContexts int           // maximum concurrently usable contexts (default: 2)
	IdleTTL     time.Duration // idle contexts older than this are closed (default: 5m)
}

// DefaultPoolConfig returns the default pool configuration
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxContexts: 2,
		IdleTTL:     5 * time.Minute,
	}
}

// NewPool creates a pool on top of an already-launched browser
func NewPool(b Browser, cfg *PoolConfig) *Pool {
	if cfg == nil {
		cfg = DefaultPoolConfig()
	}
	max := cfg.MaxContexts
	if max <= 0 {
		max = 2
	}
	idleTTL := cfg.IdleTTL
	if idleTTL <= 0 {
		idleTTL = 5 * time.Minute
	}

	p := &Pool{
		browser:    b,
		max:        max,
		idleTTL:    idleTTL,
		slots:      make(chan struct{}, max),
		reaperStop: make(chan struct{}),
		reaperDone: make(chan struct{}),
	}
	for i := 0; i < max; i++ {
		p.slots <- struct{}{}
	}
	go p.reaperLoop()
	return p
}

// Lease is an acquired context handle. Exactly one Release call is
// required; further calls are no-ops.
type Lease struct {
	Context Context

	pool        *Pool
	releaseOnce sync.Once
}

// Acquire returns a context lease, reusing an idle context when one is
// available and creating a new one otherwise. When all contexts are in
// use the caller waits until a lease is released or ctx is canceled.
// Creation failures propagate as tagged resource errors, never silently.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, NewError(KindResource, "acquire", ErrPoolClosed)
	}
	p.mu.Unlock()

	select {
	case <-p.slots:
	case <-ctx.Done():
		return nil, NewError(KindResource, "acquire", fmt.Errorf("waiting for browser context: %w", ctx.Err()))
	}

	// Reuse the most recently used idle context if there is one
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.slots <- struct{}{}
		return nil, NewError(KindResource, "acquire", ErrPoolClosed)
	}
	if n := len(p.idle); n > 0 {
		entry := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return &Lease{Context: entry.ctx, pool: p}, nil
	}
	p.mu.Unlock()

	bctx, err := p.browser.NewContext(ctx)
	if err != nil {
		p.slots <- struct{}{}
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	return &Lease{Context: bctx, pool: p}, nil
}

// Release returns the context to the pool, or discards it when a
// liveness probe shows it crashed or closed so the pool can lazily
// recreate on the next acquire.
func (l *Lease) Release() {
	l.releaseOnce.Do(func() {
		p := l.pool

		probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		alive := l.Context.Alive(probeCtx)
		cancel()

		p.mu.Lock()
		if p.closed || !alive {
			p.mu.Unlock()
			if err := l.Context.Close(); err != nil {
				fmt.Printf("Pool: error closing browser context: %v\n", err)
			}
			if !alive {
				fmt.Printf("Pool: discarded dead browser context\n")
			}
			p.slots <- struct{}{}
			return
		}
		p.idle = append(p.idle, idleEntry{ctx: l.Context, since: time.Now()})
		p.mu.Unlock()
		p.slots <- struct{}{}
	})
}

// reaperLoop proactively closes idle contexts beyond the TTL to bound
// browser memory between scheduler runs
func (p *Pool) reaperLoop() {
	defer close(p.reaperDone)

	interval := p.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.reaperStop:
			return
		case <-ticker.C:
			p.reapIdle(time.Now())
		}
	}
}

func (p *Pool) reapIdle(now time.Time) {
	p.mu.Lock()
	var keep, expired []idleEntry
	for _, entry := range p.idle {
		if now.Sub(entry.since) > p.idleTTL {
			expired = append(expired, entry)
		} else {
			keep = append(keep, entry)
		}
	}
	p.idle = keep
	p.mu.Unlock()

	for _, entry := range expired {
		if err := entry.ctx.Close(); err != nil {
			fmt.Printf("Pool: error closing idle browser context: %v\n", err)
		}
	}
	if len(expired) > 0 {
		fmt.Printf("Pool: closed %d idle browser context(s) past TTL\n", len(expired))
	}
}

// InUse returns the number of currently leased contexts
func (p *Pool) InUse() int {
	return p.max - len(p.slots)
}

// Close shuts down the reaper and closes all idle contexts. In-flight
// leases stay valid; their contexts are closed on release.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	close(p.reaperStop)
	<-p.reaperDone

	var firstErr error
	for _, entry := range idle {
		if err := entry.ctx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
