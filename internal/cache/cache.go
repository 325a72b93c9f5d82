// Package cache provides the process-wide candidate cache. It is owned by
// the pipeline and scoped to one process run; entries are never evicted.
package cache

import (
	"sync"

	"github.com/helixir/paper-ingest-service/internal/domain"
)

// Cache maps candidate identifiers to the last-known candidate record.
// Every candidate is stored under both its canonical and short identifier,
// so either form resolves to the same value. Writes are last-writer-wins,
// which is safe because rescoring is idempotent for fixed inputs.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*domain.Candidate
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]*domain.Candidate),
	}
}

// Get returns the candidate stored under the given identifier, which may
// be either the canonical or the short form.
func (c *Cache) Get(id string) (*domain.Candidate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cand, ok := c.entries[id]
	return cand, ok
}

// Put stores the candidate under both of its identifier forms.
func (c *Cache) Put(cand *domain.Candidate) {
	if cand == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cand.ID] = cand
	c.entries[cand.ShortID] = cand
}

// Len returns the number of distinct candidates in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[*domain.Candidate]struct{}, len(c.entries))
	for _, cand := range c.entries {
		seen[cand] = struct{}{}
	}
	return len(seen)
}
