package cache

import (
	"context"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
)

type memoryEntry struct {
	progress  domain.Progress
	expiresAt time.Time
}

// MemoryProgressCache is the test double for the redis-backed cache.
type MemoryProgressCache struct {
	mu   sync.Mutex
	rows map[uint64]memoryEntry
}

func NewMemoryProgressCache() *MemoryProgressCache {
	return &MemoryProgressCache{rows: map[uint64]memoryEntry{}}
}

func (c *MemoryProgressCache) Get(_ context.Context, projectID uint64) (*domain.Progress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.rows[projectID]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	progress := entry.progress
	return &progress, nil
}

func (c *MemoryProgressCache) Set(_ context.Context, projectID uint64, progress domain.Progress, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[projectID] = memoryEntry{progress: progress, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *MemoryProgressCache) Invalidate(_ context.Context, projectID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rows, projectID)
	return nil
}
