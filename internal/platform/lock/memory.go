package lock

import (
	"context"
	"sync"
	"time"

	"votecore/contexts/elections/tally-service/ports"
)

// Memory is a single-process Locker. Expired holds are treated as free.
type Memory struct {
	mu    sync.Mutex
	held  map[string]memoryHold
	seq   uint64
	clock func() time.Time
}

type memoryHold struct {
	owner     uint64
	expiresAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		held:  make(map[string]memoryHold),
		clock: time.Now,
	}
}

func (m *Memory) TryLock(_ context.Context, key string, ttl time.Duration) (ports.Unlock, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	if hold, ok := m.held[key]; ok && (hold.expiresAt.IsZero() || now.Before(hold.expiresAt)) {
		return nil, false, nil
	}
	m.seq++
	owner := m.seq
	hold := memoryHold{owner: owner}
	if ttl > 0 {
		hold.expiresAt = now.Add(ttl)
	}
	m.held[key] = hold

	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if current, ok := m.held[key]; ok && current.owner == owner {
			delete(m.held, key)
		}
		return nil
	}, true, nil
}
