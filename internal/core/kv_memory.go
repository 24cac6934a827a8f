// AngelaMos | 2026
// kv_memory.go

package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryKV is a process-local KV backend used in tests and in development
// setups without a redis instance. Expiry is checked lazily on access.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok || entry.expired(m.now()) {
		delete(m.entries, key)
		return "", fmt.Errorf("get %q: %w", key, ErrCacheMiss)
	}
	return entry.value, nil
}

func (m *MemoryKV) Set(
	_ context.Context,
	key, value string,
	ttl time.Duration,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryKV) Delete(
	_ context.Context,
	keys ...string,
) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	now := m.now()
	for _, key := range keys {
		entry, ok := m.entries[key]
		if !ok {
			continue
		}
		delete(m.entries, key)
		if !entry.expired(now) {
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryKV) DeleteByPrefix(
	_ context.Context,
	prefix string,
) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	now := m.now()
	for key, entry := range m.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		delete(m.entries, key)
		if !entry.expired(now) {
			removed++
		}
	}
	return removed, nil
}

// Keys returns the live keys currently held, for test inspection.
func (m *MemoryKV) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.entries))
	now := m.now()
	for key, entry := range m.entries {
		if !entry.expired(now) {
			keys = append(keys, key)
		}
	}
	return keys
}

// SetClock overrides the time source so tests can force TTL expiry.
func (m *MemoryKV) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
