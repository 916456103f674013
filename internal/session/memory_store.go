package session

import (
	"sync"
	"time"
)

type memoryStore struct {
	ttl           time.Duration
	maxSize       int
	sessions      map[string]*entry
	evictionQueue []string
	mu            sync.Mutex

	nowFunc func() time.Time
}

type entry struct {
	data      *Data
	expiresAt time.Time
}

// NewMemoryStore returns a process-local Store. Sessions expire ttl after
// their last access and the oldest sessions are evicted beyond maxSize.
func NewMemoryStore(ttl time.Duration, maxSize int) *memoryStore {
	return &memoryStore{
		ttl:      ttl,
		maxSize:  maxSize,
		sessions: make(map[string]*entry),
		nowFunc:  time.Now,
	}
}

func (m *memoryStore) Load(id string) (*Data, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(id)
	if !ok {
		return nil, false
	}
	e.expiresAt = m.nowFunc().Add(m.ttl)
	return e.data.clone(), true
}

func (m *memoryStore) Update(id string, fn func(d *Data) error) error {
	m.mu.Lock()
	defer func() { m.collectGarbage(); m.mu.Unlock() }()

	e, ok := m.live(id)
	var work *Data
	if ok {
		work = e.data.clone()
	} else {
		work = &Data{}
	}
	if err := fn(work); err != nil {
		return err
	}

	expiresAt := m.nowFunc().Add(m.ttl)
	if ok {
		e.data = work
		e.expiresAt = expiresAt
		return nil
	}

	// Enforce maximum size.
	for len(m.sessions) >= m.maxSize && len(m.evictionQueue) > 0 {
		oldest := m.evictionQueue[0]
		m.evictionQueue = m.evictionQueue[1:]
		delete(m.sessions, oldest)
	}

	m.sessions[id] = &entry{data: work, expiresAt: expiresAt}
	m.evictionQueue = append(m.evictionQueue, id)
	return nil
}

func (m *memoryStore) Destroy(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *memoryStore) live(id string) (*entry, bool) {
	e, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if !m.nowFunc().Before(e.expiresAt) {
		delete(m.sessions, id)
		return nil, false
	}
	return e, true
}

// collectGarbage drops expired sessions and queue entries of sessions
// that no longer exist.
func (m *memoryStore) collectGarbage() {
	now := m.nowFunc()
	var evictionQueue []string
	for _, id := range m.evictionQueue {
		e, ok := m.sessions[id]
		if !ok {
			continue
		}
		if now.Before(e.expiresAt) {
			evictionQueue = append(evictionQueue, id)
		} else {
			delete(m.sessions, id)
		}
	}
	m.evictionQueue = evictionQueue
}
