package integrity

import "time"

// Config holds configuration for payload integrity checks.
type Config struct {
	// CacheTTL is how long a built index is reused. Zero disables caching.
	CacheTTL time.Duration `mapstructure:"cache_ttl" default:"30s"`
	// OrphanGrace protects objects younger than this from being reported as orphaned,
	// since a write uploads its payload before its transaction commits.
	OrphanGrace time.Duration `mapstructure:"orphan_grace" default:"10m"`
}
