package cache

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/metrics"
)

// Memory is a process-local cache.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
	ttl     time.Duration
	clock   domain.Clock
}

func NewMemory(ttl time.Duration, clock domain.Clock) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Memory{entries: make(map[string]Entry), ttl: ttl, clock: clock}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()
		return Entry{}, false, nil
	}
	if !fresh(e, m.clock.Now(), m.ttl) {
		delete(m.entries, key)
		metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()
		return Entry{}, false, nil
	}
	metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
	e.Events = copyEvents(e.Events)
	return e, true, nil
}

func (m *Memory) Put(_ context.Context, key string, e Entry) error {
	e.Events = copyEvents(e.Events)
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) InvalidateAll(_ context.Context) error {
	m.mu.Lock()
	clear(m.entries)
	m.mu.Unlock()
	metrics.CacheInvalidations.WithLabelValues("memory").Inc()
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
