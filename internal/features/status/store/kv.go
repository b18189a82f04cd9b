// Package store persists the status records in a small key-value namespace.
package store

import (
	"context"
	"sync"
	"time"
)

// KV is a string key-value store with optional per-key expiry.
// Missing and expired keys are reported as absent, not as errors.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	// Put stores value under key. A ttl <= 0 never expires.
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryKV is a process-local KV used by tests and the "memory" driver
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryKV creates an empty MemoryKV
func NewMemoryKV() *MemoryKV {
	return NewMemoryKVWithClock(time.Now)
}

// NewMemoryKVWithClock creates an empty MemoryKV that reads time from now
func NewMemoryKVWithClock(now func() time.Time) *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

// Get implements KV
func (m *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		return "", false, nil
	}
	return entry.value, true, nil
}

// Put implements KV
func (m *MemoryKV) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Close implements KV
func (m *MemoryKV) Close() error {
	return nil
}
