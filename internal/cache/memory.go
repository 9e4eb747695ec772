package cache

import (
	"context"
	"sync"
	"time"

	"github.com/bilgisen/newswatch/internal/models"
)

type memoryEntry struct {
	item    models.NewsItem
	expires time.Time
}

type insertion struct {
	key     string
	expires time.Time
}

// MemoryCache is a process-local cache with per-entry TTL and a capacity bound.
// Oldest insertions are evicted first once the capacity is exceeded.
type MemoryCache struct {
	mu       sync.Mutex
	data     map[string]memoryEntry
	order    []insertion
	capacity int
	now      func() time.Time
}

// NewMemoryCache creates an in-process cache holding at most capacity entries
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryCache{
		data:     make(map[string]memoryEntry, capacity),
		order:    make([]insertion, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

func (m *MemoryCache) Close() error {
	return nil
}

func (m *MemoryCache) Get(_ context.Context, key string) (*models.NewsItem, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[key]
	if !ok || !m.now().Before(entry.expires) {
		return nil, false, nil
	}
	item := entry.item
	return &item, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, ttl time.Duration, item *models.NewsItem) error {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	expires := now.Add(ttl)
	m.data[key] = memoryEntry{item: *item, expires: expires}
	m.order = append(m.order, insertion{key: key, expires: expires})
	m.compact(now)
	return nil
}

// Len returns the number of entries, including expired ones not yet compacted
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// compact drops expired and over-capacity entries. Must be called with mu held.
func (m *MemoryCache) compact(now time.Time) {
	for len(m.order) > 0 {
		oldest := m.order[0]
		current, ok := m.data[oldest.key]
		stale := !ok || current.expires != oldest.expires

		if !stale && len(m.data) <= m.capacity && now.Before(oldest.expires) {
			return
		}

		m.order = m.order[1:]
		if !stale {
			delete(m.data, oldest.key)
		}
	}
}
