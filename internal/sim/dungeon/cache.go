package dungeon

import (
	"sync"

	"crossover.world/internal/sim/settings"
)

// Cache memoizes generated graphs. Generation is pure, so a cache never
// needs invalidation within a process; it only saves recomputation.
type Cache interface {
	Get(key string) (*Graph, bool)
	Set(key string, g *Graph)
}

func cacheKey(territory string, locT settings.LocationType) string {
	return territory + "-" + string(locT)
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu     sync.RWMutex
	graphs map[string]*Graph
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{graphs: map[string]*Graph{}}
}

func (c *MemoryCache) Get(key string) (*Graph, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.graphs[key]
	return g, ok
}

func (c *MemoryCache) Set(key string, g *Graph) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.graphs[key] = g
}
