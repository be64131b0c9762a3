// Package keylock serializes work per string key.
package keylock

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultShards = 64

type entry struct {
	mu   sync.Mutex
	refs int
}

type shard struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// Manager hands out one mutex per key. Entries are reference counted and
// dropped when the last holder or waiter unlocks, so idle keys cost nothing.
type Manager struct {
	shards []shard
}

// New creates a manager with n shards (64 if n <= 0).
func New(n int) *Manager {
	if n <= 0 {
		n = defaultShards
	}
	m := &Manager{shards: make([]shard, n)}
	for i := range m.shards {
		m.shards[i].locks = make(map[string]*entry)
	}
	return m
}

func (m *Manager) shard(key string) *shard {
	return &m.shards[xxhash.Sum64String(key)%uint64(len(m.shards))]
}

// Lock blocks until key is free and returns its unlock function.
func (m *Manager) Lock(key string) (unlock func()) {
	s := m.shard(key)

	s.mu.Lock()
	e, ok := s.locks[key]
	if !ok {
		e = &entry{}
		s.locks[key] = e
	}
	e.refs++
	s.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()

			s.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(s.locks, key)
			}
			s.mu.Unlock()
		})
	}
}

// Len returns the number of keys currently held or waited on.
func (m *Manager) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		n += len(s.locks)
		s.mu.Unlock()
	}
	return n
}
