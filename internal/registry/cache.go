package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// cachedCatalog is the on-disk form of a catalog answer.
type cachedCatalog struct {
	NApps    []Descriptor `json:"napps"`
	CachedAt time.Time    `json:"cached_at"`
}

// Cache keeps the last catalog answer on disk for a limited time.
type Cache struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

// DefaultCachePath returns $XDG_CACHE_HOME/kytos/catalog.json.
func DefaultCachePath() (string, error) {
	return xdg.CacheFile(filepath.Join("kytos", "catalog.json"))
}

// NewCache returns a cache stored at path. A zero ttl disables it.
func NewCache(path string, ttl time.Duration) *Cache {
	return &Cache{path: path, ttl: ttl, now: time.Now}
}

// Load returns the cached catalog if it is younger than the ttl.
func (c *Cache) Load() ([]Descriptor, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, false
	}
	var cached cachedCatalog
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	if c.now().Sub(cached.CachedAt) > c.ttl {
		return nil, false
	}
	return cached.NApps, true
}

// Store writes the catalog. Failures are ignored; the cache is only an
// optimization.
func (c *Cache) Store(napps []Descriptor) {
	if c == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(cachedCatalog{NApps: napps, CachedAt: c.now()})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(c.path, data, 0o644)
}

// Invalidate removes the cached catalog.
func (c *Cache) Invalidate() {
	if c == nil {
		return
	}
	_ = os.Remove(c.path)
}
