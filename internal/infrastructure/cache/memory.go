package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process Cache used in tests and when Redis is not
// configured.
type Memory struct {
	mu    sync.Mutex
	data  map[string]memoryEntry
	stats Stats
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		data:  map[string]memoryEntry{},
		stats: Stats{Connected: true},
	}
}

func (m *Memory) Get(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[key]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(m.data, key)
		m.stats.TotalMisses++
		m.updateHitRate()
		return ErrMiss
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		m.stats.ErrorCount++
		return err
	}
	m.stats.TotalHits++
	m.updateHitRate()
	return nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = memoryEntry{data: data, expiresAt: time.Now().Add(ttl)}
	m.stats.TotalSets++
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateHitRate()
	return m.stats
}

func (m *Memory) Health(context.Context) bool { return true }

func (m *Memory) Close() error { return nil }

func (m *Memory) updateHitRate() {
	total := m.stats.TotalHits + m.stats.TotalMisses
	if total > 0 {
		m.stats.HitRate = float64(m.stats.TotalHits) / float64(total)
	}
}
