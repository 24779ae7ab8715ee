package service

import (
	"context"
	"sync"
)

// ExportedRunningGuard is an exported alias so _test packages can test the guard.
type ExportedRunningGuard = runningGuard

// ─────────────────────────────────────────────────────────────
// runningGuard: keeps a named task from overlapping itself
// ─────────────────────────────────────────────────────────────

// runningGuard ensures only one instance of a named task (for example the
// retry pass) is in flight at a time, and lets shutdown wait for all of them.
type runningGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks name as running. It returns false when name is already in flight.
func (g *runningGuard) TryLock(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, busy := g.running[name]; busy {
		return false
	}
	g.running[name] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases name. Must be called after a successful TryLock.
func (g *runningGuard) Unlock(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, name)
	g.wg.Done()
}

// Running reports whether name is in flight.
func (g *runningGuard) Running(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.running[name]
	return busy
}

// WaitAll blocks until every running task completes or ctx is cancelled.
func (g *runningGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
