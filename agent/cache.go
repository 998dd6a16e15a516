package agent

import (
	"context"
	"sync"
	"time"
)

// Cache is the key/value backend behind every Store.
type Cache[S any] interface {
	Set(ctx context.Context, key string, val S) error
	Get(ctx context.Context, key string) (S, bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type memoryEntry[S any] struct {
	val     S
	expires time.Time
}

// MemoryCache keeps values in process. With a ttl, entries expire like their
// Redis counterparts and are dropped lazily on access.
type MemoryCache[S any] struct {
	mu      sync.Mutex
	entries map[string]memoryEntry[S]
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache[S any]() *MemoryCache[S] {
	return NewExpiringMemoryCache[S](0, nil)
}

// NewExpiringMemoryCache expires entries ttl after their last Set. A nil now
// uses time.Now.
func NewExpiringMemoryCache[S any](ttl time.Duration, now func() time.Time) *MemoryCache[S] {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache[S]{entries: map[string]memoryEntry[S]{}, ttl: ttl, now: now}
}

func (m *MemoryCache[S]) Set(ctx context.Context, key string, val S) error {
	entry := memoryEntry[S]{val: val}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.lookup(key)
	return entry.val, ok, nil
}

func (m *MemoryCache[S]) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(key)
	return ok, nil
}

// lookup must be called with mu held.
func (m *MemoryCache[S]) lookup(key string) (memoryEntry[S], bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memoryEntry[S]{}, false
	}
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		delete(m.entries, key)
		return memoryEntry[S]{}, false
	}
	return entry, true
}
