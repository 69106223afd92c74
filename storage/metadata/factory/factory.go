package factory

import (
	"fmt"
	"sync"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/storage/metadata"
)

// Factory builds a metadata store for the provided metadata config.
type Factory func(*config.Metadata) (metadata.Store, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds or replaces a metadata store factory for the given strategy name.
func Register(strategy string, factory Factory) {
	mu.Lock()
	registry[strategy] = factory
	mu.Unlock()
}

// Get retrieves a factory for the given strategy.
func Get(strategy string) (Factory, bool) {
	mu.RLock()
	f, ok := registry[strategy]
	mu.RUnlock()
	return f, ok
}

// Create builds a metadata store using the registered factory for the configured strategy.
func Create(cfg *config.Metadata) (metadata.Store, error) {
	if f, ok := Get(cfg.Strategy); ok {
		return f(cfg)
	}

	return nil, fmt.Errorf("unknown metadata strategy %q", cfg.Strategy)
}

func init() {
	Register("memory", func(cfg *config.Metadata) (metadata.Store, error) {
		return metadata.NewMemoryMetadataStore(), nil
	})
	Register("sql", func(cfg *config.Metadata) (metadata.Store, error) {
		return metadata.NewSQLMetadataStore(cfg.SQL)
	})
	Register("d1", func(cfg *config.Metadata) (metadata.Store, error) {
		return metadata.NewD1MetadataStore(cfg.D1)
	})
}
