// ABOUTME: In-memory Store with TTL-based expiration
// ABOUTME: Thread-safe byte store using sync.Map with a background janitor

package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type entry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is a process-local Store. It is the default backend when no
// shared cache is configured.
type Memory struct {
	store sync.Map
	stop  chan struct{}
	once  sync.Once
}

// NewMemory creates a memory store whose janitor sweeps expired entries
// every cleanupInterval. A non-positive interval disables the janitor;
// expired entries are still treated as misses on read.
func NewMemory(cleanupInterval time.Duration) *Memory {
	m := &Memory{stop: make(chan struct{})}
	if cleanupInterval > 0 {
		go m.startCleanup(cleanupInterval)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := m.store.Load(key)
	if !ok {
		return nil, false, nil
	}

	e := val.(entry)
	if e.expired(time.Now()) {
		m.store.Delete(key)
		slog.Debug("Cache expired", "key", key)
		return nil, false, nil
	}

	return e.data, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{data: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.store.Store(key, e)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.store.Range(func(key, _ interface{}) bool {
		m.store.Delete(key)
		return true
	})
	return nil
}

// Close stops the janitor goroutine.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.store.Range(func(key, val interface{}) bool {
				if val.(entry).expired(now) {
					m.store.Delete(key)
				}
				return true
			})
		}
	}
}
