package dimension

import (
	"context"
	"sync"
)

type memKey struct {
	kind Kind
	key  string
}

// Memory is an in-process Resolver. Ids are allocated per kind starting at 1.
type Memory struct {
	mu    sync.Mutex
	ids   map[memKey]int64
	attrs map[memKey]Attributes
	next  map[Kind]int64
}

func NewMemory() *Memory {
	return &Memory{
		ids:   make(map[memKey]int64),
		attrs: make(map[memKey]Attributes),
		next:  make(map[Kind]int64),
	}
}

func (m *Memory) Resolve(ctx context.Context, kind Kind, key string, attrs Attributes) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	k := memKey{kind, key}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.ids[k]; ok {
		return id, nil
	}
	m.next[kind]++
	id := m.next[kind]
	m.ids[k] = id
	m.attrs[k] = attrs
	return id, nil
}

// Attributes returns what was stored when the key was first resolved.
func (m *Memory) Attributes(kind Kind, key string) (Attributes, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attrs[memKey{kind, key}]
	return a, ok
}

// Len returns the number of distinct keys resolved for kind.
func (m *Memory) Len(kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.next[kind])
}
