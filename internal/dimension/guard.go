package dimension

import (
	"context"
	"sync"
)

// Guard wraps a Resolver so that, within one process, concurrent first
// sightings of the same natural key are serialized while different keys
// resolve in parallel. Resolved ids are cached; dimensions are never deleted
// while a Guard is in use.
type Guard struct {
	next Resolver

	mu       sync.RWMutex
	keyLocks map[memKey]*sync.Mutex
	cache    map[memKey]int64
}

func NewGuard(next Resolver) *Guard {
	return &Guard{
		next:     next,
		keyLocks: make(map[memKey]*sync.Mutex),
		cache:    make(map[memKey]int64),
	}
}

func (g *Guard) Resolve(ctx context.Context, kind Kind, key string, attrs Attributes) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	k := memKey{kind, key}
	if id, ok := g.cached(k); ok {
		return id, nil
	}

	lock := g.keyLock(k)
	lock.Lock()
	defer lock.Unlock()

	// Another goroutine may have resolved it while we waited.
	if id, ok := g.cached(k); ok {
		return id, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	id, err := g.next.Resolve(ctx, kind, key, attrs)
	if err != nil {
		return 0, err
	}
	g.mu.Lock()
	g.cache[k] = id
	g.mu.Unlock()
	return id, nil
}

func (g *Guard) cached(k memKey) (int64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.cache[k]
	return id, ok
}

// keyLock returns the lock for a key, creating one if needed.
func (g *Guard) keyLock(k memKey) *sync.Mutex {
	g.mu.RLock()
	if lock, ok := g.keyLocks[k]; ok {
		g.mu.RUnlock()
		return lock
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	if lock, ok := g.keyLocks[k]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	g.keyLocks[k] = lock
	return lock
}
