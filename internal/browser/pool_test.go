package browser

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeContext is a minimal Context for pool tests
type fakeContext struct {
	alive  atomic.Bool
	closed atomic.Bool
}

func newFakeContext() *fakeContext {
	c := &fakeContext{}
	c.alive.Store(true)
	return c
}

func (c *fakeContext) Navigate(ctx context.Context, url string, mode WaitMode) (int, error) {
	return 200, nil
}
func (c *fakeContext) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}
func (c *fakeContext) WaitAttached(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}
func (c *fakeContext) ScrollIntoView(ctx context.Context, selector string) error { return nil }
func (c *fakeContext) Text(ctx context.Context, selector string) (string, error) { return "", nil }
func (c *fakeContext) HTML(ctx context.Context) (string, error)                  { return "", nil }
func (c *fakeContext) Exists(ctx context.Context, selector string) (bool, error) {
	return false, nil
}
func (c *fakeContext) Screenshot(ctx context.Context) ([]byte, error)      { return nil, nil }
func (c *fakeContext) Click(ctx context.Context, selector string) error    { return nil }
func (c *fakeContext) Type(ctx context.Context, sel, text string) error    { return nil }
func (c *fakeContext) PressKey(ctx context.Context, key string) error      { return nil }
func (c *fakeContext) ScrollToBottom(ctx context.Context) error            { return nil }
func (c *fakeContext) Alive(ctx context.Context) bool                      { return c.alive.Load() }
func (c *fakeContext) Close() error                                        { c.closed.Store(true); return nil }

// fakeBrowser creates fakeContexts and counts them
type fakeBrowser struct {
	created atomic.Int32
	failing atomic.Bool
	last    atomic.Pointer[fakeContext]
}

func (b *fakeBrowser) NewContext(ctx context.Context) (Context, error) {
	if b.failing.Load() {
		return nil, errors.New("launch failed")
	}
	b.created.Add(1)
	c := newFakeContext()
	b.last.Store(c)
	return c, nil
}

func (b *fakeBrowser) Close() error { return nil }

func TestPoolAcquireRelease(t *testing.T) {
	b := &fakeBrowser{}
	pool := NewPool(b, &PoolConfig{MaxContexts: 2, IdleTTL: time.Minute})
	defer pool.Close()

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pool.InUse())

	lease.Release()
	assert.Equal(t, 0, pool.InUse())

	// Double release is a no-op
	lease.Release()
	assert.Equal(t, 0, pool.InUse())
}

func TestPoolReusesIdleContext(t *testing.T) {
	b := &fakeBrowser{}
	pool := NewPool(b, &PoolConfig{MaxContexts: 2, IdleTTL: time.Minute})
	defer pool.Close()

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	first := lease.Context
	lease.Release()

	lease, err = pool.Acquire(context.Background())
	require.NoError(t, err)
	defer lease.Release()

	assert.Same(t, first, lease.Context)
	assert.Equal(t, int32(1), b.created.Load(), "idle context should be reused, not recreated")
}

func TestPoolDiscardsDeadContext(t *testing.T) {
	b := &fakeBrowser{}
	pool := NewPool(b, &PoolConfig{MaxContexts: 1, IdleTTL: time.Minute})
	defer pool.Close()

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	dead := lease.Context.(*fakeContext)
	dead.alive.Store(false)
	lease.Release()

	assert.True(t, dead.closed.Load(), "dead context should be closed on release")

	lease, err = pool.Acquire(context.Background())
	require.NoError(t, err)
	defer lease.Release()
	assert.NotSame(t, dead, lease.Context)
	assert.Equal(t, int32(2), b.created.Load())
}

func TestPoolBlocksAtCapacity(t *testing.T) {
	b := &fakeBrowser{}
	pool := NewPool(b, &PoolConfig{MaxContexts: 1, IdleTTL: time.Minute})
	defer pool.Close()

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	// Second acquire must wait; give it a short deadline and expect a
	// tagged resource error
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	require.Error(t, err)
	assert.Equal(t, KindResource, KindOf(err))

	lease.Release()

	// Capacity is available again
	lease2, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	lease2.Release()
}

func TestPoolCreationFailureReleasesSlot(t *testing.T) {
	b := &fakeBrowser{}
	b.failing.Store(true)
	pool := NewPool(b, &PoolConfig{MaxContexts: 1, IdleTTL: time.Minute})
	defer pool.Close()

	_, err := pool.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, pool.InUse(), "failed creation must not leak the slot")

	b.failing.Store(false)
	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	lease.Release()
}

func TestPoolClose(t *testing.T) {
	b := &fakeBrowser{}
	pool := NewPool(b, &PoolConfig{MaxContexts: 2, IdleTTL: time.Minute})

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	idle := lease.Context.(*fakeContext)
	lease.Release()

	require.NoError(t, pool.Close())
	assert.True(t, idle.closed.Load(), "idle contexts close with the pool")

	_, err = pool.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolReapsExpiredIdle(t *testing.T) {
	b := &fakeBrowser{}
	pool := NewPool(b, &PoolConfig{MaxContexts: 1, IdleTTL: time.Minute})
	defer pool.Close()

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	idle := lease.Context.(*fakeContext)
	lease.Release()

	pool.reapIdle(time.Now().Add(2 * time.Minute))
	assert.True(t, idle.closed.Load())
}
