package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/rimmartin/loom/session"
)

var ErrSessionNotFound = errors.New("session store: session not found")

const MemorySessionStoreName = "memory"

type memoryEntry struct {
	attributes   map[string]any
	lastAccessed time.Time
}

// MemorySessionStore holds sessions in a plain map guarded by a mutex,
// since sessions are attached from SessionUse on whatever goroutine is
// serving that connection — one goroutine per connection, but many
// connections share one store.
type MemorySessionStore struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
}

func NewMemorySessionStore() SessionStore {
	return &MemorySessionStore{
		data: make(map[string]memoryEntry),
	}
}

func (m *MemorySessionStore) Close() error {
	return nil
}

func (m *MemorySessionStore) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, found := m.data[id]
	return found
}

func (m *MemorySessionStore) Get(id string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, found := m.data[id]
	if !found {
		return nil, ErrSessionNotFound
	}

	return entry.attributes, nil
}

func (m *MemorySessionStore) Save(sess session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sess.GetId()] = memoryEntry{
		attributes:   sess.All(),
		lastAccessed: sess.LastAccessed(),
	}
	return nil
}

func (m *MemorySessionStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

// Prune removes every session whose lastAccessed is older than idleFor.
func (m *MemorySessionStore) Prune(idleFor time.Duration) int {
	cutoff := time.Now().Add(-idleFor)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, entry := range m.data {
		if entry.lastAccessed.Before(cutoff) {
			delete(m.data, id)
			removed++
		}
	}
	return removed
}
