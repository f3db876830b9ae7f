// Package config holds the three knobs the surrounding framework is
// expected to supply to the core: per-thread memory budget, page size,
// and worker count. Everything else — cluster topology, job scheduling,
// transport — lives outside the core's scope.
package config

// Config holds the external configuration the core consumes.
type Config struct {
	// MaximumThreadMemory is the per-worker memory budget in bytes.
	MaximumThreadMemory int64
	// PageSize is the fixed capacity of one Page, in bytes.
	PageSize int64
	// NumLocalWorkers fixes the per-thread vector lengths inside
	// MemoryChecker.
	NumLocalWorkers int
}

// DefaultConfig returns a configuration with sensible defaults: a
// 256MiB per-thread budget split into 4MiB pages, and a single worker.
func DefaultConfig() Config {
	return Config{
		MaximumThreadMemory: 256 * 1024 * 1024,
		PageSize:            4 * 1024 * 1024,
		NumLocalWorkers:     1,
	}
}

// NumPages returns floor(MaximumThreadMemory / PageSize), the size a
// thread's MemoryPool should be constructed with.
func (c Config) NumPages() int {
	if c.PageSize <= 0 {
		return 0
	}
	return int(c.MaximumThreadMemory / c.PageSize)
}
