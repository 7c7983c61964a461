package fetcher

import (
	"fmt"
	"sync"

	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
)

// Factory is a function that creates a new pool fetcher instance.
type Factory func(log *logger.Logger) PoolFetcher

var (
	registry = make(map[pool.PoolType]Factory)
	mu       sync.RWMutex
)

// Register registers a pool fetcher factory for the given pool type.
// This is typically called in init() functions of fetcher packages.
func Register(poolType pool.PoolType, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[poolType]; exists {
		logger.GetDefaultLogger().Infof("pool fetcher for %s already registered. It will be overwritten.", poolType)
	}

	registry[poolType] = factory
}

// GetFactory returns the factory for the given pool type, or nil if none is registered.
func GetFactory(poolType pool.PoolType) Factory {
	mu.RLock()
	defer mu.RUnlock()
	return registry[poolType]
}

// ListRegistered returns all registered pool types ordered by name.
func ListRegistered() []pool.PoolType {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]pool.PoolType, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	pool.SortPoolTypes(types)
	return types
}

// Create creates a new pool fetcher using the registered factory.
func Create(poolType pool.PoolType, log *logger.Logger) (PoolFetcher, error) {
	factory := GetFactory(poolType)
	if factory == nil {
		return nil, fmt.Errorf("no pool fetcher registered for %s (registered types: %v)", poolType, ListRegistered())
	}

	return factory(log), nil
}
