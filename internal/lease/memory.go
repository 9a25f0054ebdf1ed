package lease

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker keeps leases in process memory. Only useful for a single
// instance and for tests.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]Lease
	now    func() time.Time
}

var _ Locker = (*MemoryLocker)(nil)

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		leases: make(map[string]Lease),
		now:    time.Now,
	}
}

func (m *MemoryLocker) TryAcquire(_ context.Context, name string, ttl time.Duration) (*Lease, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	key := Key(name)
	if held, ok := m.leases[key]; ok && held.ExpiresAt.After(now) {
		return nil, false, nil
	}

	l := Lease{Name: name, Token: newToken(), ExpiresAt: now.Add(ttl)}
	m.leases[key] = l
	return &l, true, nil
}

func (m *MemoryLocker) Release(_ context.Context, l *Lease) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key(l.Name)
	if held, ok := m.leases[key]; ok && held.Token == l.Token {
		delete(m.leases, key)
	}
	return nil
}
