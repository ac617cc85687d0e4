package sorting

import (
	"sync"

	"github.com/rbeccah/airtable/internal/model"
)

type cacheKey struct {
	tableID  string
	columnID string
	order    model.SortOrder
}

// orderCache holds computed row orderings per (table, column, order).
// Entries are dropped wholesale on writes; there is no TTL.
type orderCache struct {
	mu      sync.RWMutex
	entries map[cacheKey][]string
}

func newOrderCache() *orderCache {
	return &orderCache{entries: make(map[cacheKey][]string)}
}

func (c *orderCache) get(tableID, columnID string, order model.SortOrder) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids, ok := c.entries[cacheKey{tableID, columnID, order}]
	return ids, ok
}

func (c *orderCache) put(tableID, columnID string, order model.SortOrder, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{tableID, columnID, order}] = ids
}

func (c *orderCache) invalidateColumn(tableID, columnID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.tableID == tableID && key.columnID == columnID {
			delete(c.entries, key)
		}
	}
}

func (c *orderCache) invalidateTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.tableID == tableID {
			delete(c.entries, key)
		}
	}
}
