package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type holder struct {
	token   string
	expires time.Time
}

// Memory is an in-process Locker for single-instance deployments and tests.
type Memory struct {
	mu     sync.Mutex
	prefix string
	held   map[string]holder
}

// NewMemory creates an in-process locker.
func NewMemory(prefix string) *Memory {
	return &Memory{
		prefix: prefix,
		held:   make(map[string]holder),
	}
}

func (m *Memory) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if h, ok := m.held[m.prefix+key]; ok && now.Before(h.expires) {
		return nil, fmt.Errorf("%s: %w", key, ErrLocked)
	}

	lease := &Lease{Key: key, Token: uuid.NewString(), Expires: now.Add(ttl)}
	m.held[m.prefix+key] = holder{token: lease.Token, expires: lease.Expires}
	return lease, nil
}

func (m *Memory) Release(ctx context.Context, lease *Lease) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.held[m.prefix+lease.Key]
	if !ok || h.token != lease.Token {
		return fmt.Errorf("%s: %w", lease.Key, ErrNotHeld)
	}
	delete(m.held, m.prefix+lease.Key)

	if !time.Now().Before(h.expires) {
		return fmt.Errorf("%s: %w", lease.Key, ErrNotHeld)
	}
	return nil
}
