package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solar-registry/internal/models"
)

// memoryRegistryRepository keeps registry snapshots in process memory. It
// backs the "memory" storage mode and the service tests; semantics mirror
// the PostgreSQL implementation, including the single-owner insert rule.
type memoryRegistryRepository struct {
	mu         sync.Mutex
	registries map[string]*models.Registry
}

// NewMemoryRegistryRepository creates an in-memory repository
func NewMemoryRegistryRepository() RegistryRepository {
	return &memoryRegistryRepository{
		registries: make(map[string]*models.Registry),
	}
}

func (r *memoryRegistryRepository) SaveRegistry(ctx context.Context, registry *models.Registry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registries[registry.Owner]; exists {
		return fmt.Errorf("registry %q already persisted", registry.Owner)
	}

	r.registries[registry.Owner] = registry.Clone()
	return nil
}

func (r *memoryRegistryRepository) SaveMeasurement(ctx context.Context, owner string, key models.LocationKey, m models.Measurement, totalLocations, updateCount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	registry, exists := r.registries[owner]
	if !exists {
		return &NotFoundError{Resource: "registry", ID: owner}
	}

	registry.Entries[key] = m
	registry.TotalLocations = totalLocations
	registry.UpdateCount = updateCount
	return nil
}

func (r *memoryRegistryRepository) LoadAll(ctx context.Context) ([]*models.Registry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owners := make([]string, 0, len(r.registries))
	for owner := range r.registries {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	registries := make([]*models.Registry, 0, len(owners))
	for _, owner := range owners {
		registries = append(registries, r.registries[owner].Clone())
	}
	return registries, nil
}

func (r *memoryRegistryRepository) HealthCheck(ctx context.Context) error {
	return nil
}
