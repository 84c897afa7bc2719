package factory

import (
	"fmt"
	"sync"

	"github.com/indieinfra/plaza/config"
	"github.com/indieinfra/plaza/storage/document"
)

// Factory builds a document store for the provided documents config.
type Factory func(*config.Documents) (document.Store, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds or replaces a document store factory for the given strategy name.
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

// Create builds a document store using the registered factory for the configured strategy.
func Create(cfg *config.Documents) (document.Store, error) {
	if f, ok := Get(cfg.Strategy); ok {
		return f(cfg)
	}

	return nil, fmt.Errorf("unknown documents strategy %q", cfg.Strategy)
}

func init() {
	Register("memory", func(cfg *config.Documents) (document.Store, error) {
		return document.NewMemoryStore(), nil
	})
	Register("sql", func(cfg *config.Documents) (document.Store, error) {
		return document.NewSQLStore(cfg.SQL)
	})
	Register("d1", func(cfg *config.Documents) (document.Store, error) {
		return document.NewD1Store(cfg.D1)
	})
}
