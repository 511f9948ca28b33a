package revocation

import (
	"context"
	"sync"
	"time"
)

type Memory struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock decides liveness of entries against now instead of the
// wall clock. It should share the clock of the token service using it.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		entries: make(map[string]time.Time),
		now:     now,
	}
}

func (m *Memory) Contains(_ context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	exp, ok := m.entries[tokenID]
	m.mu.RUnlock()
	return ok && exp.After(m.now()), nil
}

func (m *Memory) Add(_ context.Context, e Entry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if exp, ok := m.entries[e.TokenID]; ok && exp.After(m.now()) {
		return false, nil
	}
	m.entries[e.TokenID] = e.ExpiresAt
	return true, nil
}

func (m *Memory) Sweep(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
