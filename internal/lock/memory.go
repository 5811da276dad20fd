package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type held struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker is a single-process Locker.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]held
	now   func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]held), now: time.Now}
}

func (m *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if h, ok := m.locks[key]; ok && now.Before(h.expiresAt) {
		return nil, ErrLocked
	}

	token := uuid.NewString()
	m.locks[key] = held{token: token, expiresAt: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if h, ok := m.locks[key]; ok && h.token == token {
				delete(m.locks, key)
			}
		})
	}, nil
}
