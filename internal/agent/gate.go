package agent

import "sync"

// Gate admits at most one deployment per target at a time. It never blocks:
// a second caller gets ErrDeployInProgress.
type Gate struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewGate() *Gate {
	return &Gate{held: make(map[string]struct{})}
}

// Acquire claims target. The returned release func is safe to call more
// than once.
func (g *Gate) Acquire(target string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[target]; busy {
		return nil, ErrDeployInProgress
	}
	g.held[target] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, target)
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether target is currently held.
func (g *Gate) Busy(target string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.held[target]
	return busy
}
