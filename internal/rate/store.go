package rate

import (
	"time"

	"github.com/bluele/gcache"

	"github.com/ethpandaops/syslogexporter/internal/metric"
)

// Observation is the last value list seen for an identity together with
// the rates computed from it.
type Observation struct {
	Time   time.Time
	Values []metric.Value
	Rates  []float64
}

// Store keeps the previous observation per value list identity.
type Store interface {
	Get(key string) (Observation, bool)
	Set(key string, obs Observation)
}

// Config configures the in-memory observation cache.
type Config struct {
	// Size is the maximum number of identities tracked. Defaults to 65536.
	Size int `yaml:"size"`

	// Expiry drops identities that have not reported for this long.
	// Defaults to 10m.
	Expiry time.Duration `yaml:"expiry"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Size:   65536,
		Expiry: 10 * time.Minute,
	}
}

// Cache is an LRU Store with per-entry expiry.
type Cache struct {
	cache gcache.Cache
}

var _ Store = (*Cache)(nil)

// NewCache creates a Cache. Zero values in cfg fall back to defaults.
func NewCache(cfg Config) *Cache {
	defaults := DefaultConfig()

	if cfg.Size <= 0 {
		cfg.Size = defaults.Size
	}

	if cfg.Expiry <= 0 {
		cfg.Expiry = defaults.Expiry
	}

	return &Cache{
		cache: gcache.New(cfg.Size).LRU().Expiration(cfg.Expiry).Build(),
	}
}

func (c *Cache) Get(key string) (Observation, bool) {
	v, err := c.cache.Get(key)
	if err != nil {
		return Observation{}, false
	}

	obs, ok := v.(Observation)

	return obs, ok
}

func (c *Cache) Set(key string, obs Observation) {
	// Set only fails for a nil cache or a loader error; neither applies.
	_ = c.cache.Set(key, obs)
}

// Purge drops every tracked identity.
func (c *Cache) Purge() {
	c.cache.Purge()
}
