package session

import (
	"context"
	"sync"
	"time"
)

// Store keeps the last accepted request time per caller session.
type Store interface {
	// Acquire records now as the session's last request and reports true,
	// unless the previous accepted request is younger than minInterval. The
	// check and the write happen as one step, so concurrent callers sharing a
	// session cannot both be accepted.
	Acquire(ctx context.Context, id string, now time.Time, minInterval time.Duration) (bool, error)
	LastRequest(ctx context.Context, id string) (time.Time, bool, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]time.Time)}
}

func (m *MemoryStore) Acquire(_ context.Context, id string, now time.Time, minInterval time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.sessions[id]; ok && now.Sub(last) < minInterval {
		return false, nil
	}
	m.sessions[id] = now
	return true, nil
}

func (m *MemoryStore) LastRequest(_ context.Context, id string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.sessions[id]
	return last, ok, nil
}

func (m *MemoryStore) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, last := range m.sessions {
		if last.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
