package checker

import "sync"

// inflightGuard ensures at most one check runs per monitor at a time.
// Interval arithmetic alone cannot prevent an externally triggered
// manual check from racing a scheduled one for the same monitor id, so
// the guard is explicit.
type inflightGuard struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{ids: make(map[string]struct{})}
}

// tryAcquire reports whether the monitor id was free and is now held
func (g *inflightGuard) tryAcquire(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.ids[id]; busy {
		return false
	}
	g.ids[id] = struct{}{}
	return true
}

func (g *inflightGuard) release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.ids, id)
}
