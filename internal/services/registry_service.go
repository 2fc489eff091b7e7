package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"solar-registry/internal/events"
	"solar-registry/internal/models"
	"solar-registry/internal/repository"
	"solar-registry/pkg/logging"
	"solar-registry/pkg/metrics"
)

// RegistryService owns the live registry map and serializes every mutation
// per registry. The in-memory state is authoritative; the repository is a
// durable mirror written inside the critical section, before the memory
// commit, so a failed persistence call leaves both layers untouched.
//
// A registry has exactly two lifecycle states per owner, absent and
// initialized, and the transition is one-way. Entries are upserted wholesale;
// there is no delete.
type RegistryService struct {
	repo     repository.RegistryRepository
	notifier events.Notifier
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector

	mu         sync.RWMutex
	registries map[string]*registryState

	// Clock for testing
	now func() time.Time
}

// registryState pairs one registry with the lock serializing access to it.
type registryState struct {
	mu       sync.Mutex
	registry *models.Registry
}

// NewRegistryService creates a new registry service
func NewRegistryService(repo repository.RegistryRepository, notifier events.Notifier, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *RegistryService {
	return &RegistryService{
		repo:       repo,
		notifier:   notifier,
		logger:     logger,
		metrics:    metricsCollector,
		registries: make(map[string]*registryState),
		now:        time.Now,
	}
}

// Hydrate loads every persisted registry into memory. Called once at boot,
// before the service starts taking requests.
func (s *RegistryService) Hydrate(ctx context.Context) error {
	registries, err := s.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to hydrate registries: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, registry := range registries {
		s.registries[registry.Owner] = &registryState{registry: registry}
		s.metrics.SetRegistryCounters(registry.Owner, registry.TotalLocations, registry.UpdateCount)
	}

	s.logger.Info(ctx, "[HYDRATE] Registries loaded into memory", logging.Fields{
		"registries": len(registries),
	})

	return nil
}

// Initialize creates an empty registry for the caller's identity. It fails
// if one already exists; the transition from absent to initialized happens
// at most once per owner.
func (s *RegistryService) Initialize(ctx context.Context, caller string) (*models.Registry, error) {
	if caller == "" {
		s.metrics.RecordRegistryOperation("initialize", "invalid")
		return nil, &models.ValidationError{Field: "owner", Value: caller, Message: "owner identity is required"}
	}

	// The map lock covers the existence check, the durable insert and the
	// memory commit, so two racing initializations for one owner cannot
	// both succeed.
	s.mu.Lock()
	if _, exists := s.registries[caller]; exists {
		s.mu.Unlock()
		s.metrics.RecordRegistryOperation("initialize", "conflict")
		return nil, &models.AlreadyInitializedError{Owner: caller}
	}

	registry := models.NewRegistry(caller, s.now().UTC())
	if err := s.repo.SaveRegistry(ctx, registry); err != nil {
		s.mu.Unlock()
		s.metrics.RecordRegistryOperation("initialize", "error")
		return nil, fmt.Errorf("failed to persist registry: %w", err)
	}

	s.registries[caller] = &registryState{registry: registry}
	s.mu.Unlock()

	s.metrics.RecordRegistryOperation("initialize", "success")
	s.metrics.SetRegistryCounters(caller, 0, 0)

	s.logger.Info(ctx, "[REGISTRY_INIT] Registry initialized", logging.Fields{
		"owner": caller,
	})

	event := models.NewOracleInitializedEvent(caller, s.now().UTC())
	if err := s.notifier.RegistryInitialized(ctx, event); err != nil {
		s.logger.Error(ctx, "[EVENT_EMIT_ERROR] Initialization event not delivered", logging.Fields{
			"owner":    caller,
			"event_id": event.EventID,
		}, err)
	}

	return registry.Clone(), nil
}

// Update upserts one measurement under the caller's registry. A new key
// increments total_locations; every accepted write increments update_count.
// The previous value for the key, timestamp included, is discarded wholesale.
// Rejections leave both counters and the entry map untouched.
func (s *RegistryService) Update(ctx context.Context, caller string, key models.LocationKey, measurement models.Measurement) error {
	state, ok := s.lookup(caller)
	if !ok {
		s.metrics.RecordRegistryOperation("update", "not_initialized")
		return &models.NotInitializedError{Owner: caller}
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	registry := state.registry

	// The map is keyed by caller identity, so this can only fire if the
	// stored owner and the map key ever disagree. The ownership rule is
	// enforced on its own regardless of how the lookup works.
	if registry.Owner != caller {
		s.metrics.RecordRegistryOperation("update", "not_authorized")
		return &models.NotAuthorizedError{Owner: registry.Owner, Caller: caller}
	}

	acceptedAt := uint64(s.now().Unix())
	if measurement.LastUpdated > acceptedAt {
		s.metrics.RecordRegistryOperation("update", "rejected_future")
		return &models.StaleOrFutureDataError{ObservedAt: measurement.LastUpdated, AcceptedAt: acceptedAt}
	}

	inserted := !registry.Contains(key)
	totalLocations := registry.TotalLocations
	if inserted {
		totalLocations++
	}
	updateCount := registry.UpdateCount + 1

	if err := s.repo.SaveMeasurement(ctx, caller, key, measurement, totalLocations, updateCount); err != nil {
		s.metrics.RecordRegistryOperation("update", "error")
		return fmt.Errorf("failed to persist measurement: %w", err)
	}

	registry.Put(key, measurement)

	s.metrics.RecordRegistryOperation("update", "success")
	s.metrics.SetRegistryCounters(caller, registry.TotalLocations, registry.UpdateCount)

	s.logger.Info(ctx, "[REGISTRY_UPDATE] Measurement stored", logging.Fields{
		"owner":           caller,
		"location":        key.String(),
		"dni":             measurement.DNI,
		"ghi":             measurement.GHI,
		"lat_tilt":        measurement.LatTilt,
		"observed_at":     measurement.LastUpdated,
		"inserted":        inserted,
		"total_locations": registry.TotalLocations,
		"update_count":    registry.UpdateCount,
	})

	event := models.NewDataUpdatedEvent(caller, key, measurement, s.now().UTC())
	if err := s.notifier.DataUpdated(ctx, event); err != nil {
		s.logger.Error(ctx, "[EVENT_EMIT_ERROR] Data update event not delivered", logging.Fields{
			"owner":    caller,
			"location": key.String(),
			"event_id": event.EventID,
		}, err)
	}

	return nil
}

// Get returns a copy of the measurement stored for key
func (s *RegistryService) Get(ctx context.Context, owner string, key models.LocationKey) (models.Measurement, error) {
	state, ok := s.lookup(owner)
	if !ok {
		return models.Measurement{}, &models.NotInitializedError{Owner: owner}
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	measurement, found := state.registry.Get(key)
	if !found {
		return models.Measurement{}, &models.LocationNotFoundError{Key: key}
	}
	return measurement, nil
}

// Exists reports whether key holds a measurement. A missing registry reads
// as false, not as an error.
func (s *RegistryService) Exists(ctx context.Context, owner string, key models.LocationKey) bool {
	state, ok := s.lookup(owner)
	if !ok {
		return false
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return state.registry.Contains(key)
}

// Stats returns the registry's counters
func (s *RegistryService) Stats(ctx context.Context, owner string) (totalLocations, updateCount uint64, err error) {
	state, ok := s.lookup(owner)
	if !ok {
		return 0, 0, &models.NotInitializedError{Owner: owner}
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return state.registry.TotalLocations, state.registry.UpdateCount, nil
}

// IsFresh reports whether the measurement under key is at most maxAgeSeconds
// old. Missing registry or key reads as false.
func (s *RegistryService) IsFresh(ctx context.Context, owner string, key models.LocationKey, maxAgeSeconds uint64) bool {
	state, ok := s.lookup(owner)
	if !ok {
		return false
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	measurement, found := state.registry.Get(key)
	if !found {
		return false
	}
	return measurement.IsFresh(uint64(s.now().Unix()), maxAgeSeconds)
}

// IsSuitable reports whether the measurement under key meets the DNI
// threshold. Missing registry or key reads as false.
func (s *RegistryService) IsSuitable(ctx context.Context, owner string, key models.LocationKey, minDNIThreshold uint64) bool {
	state, ok := s.lookup(owner)
	if !ok {
		return false
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	measurement, found := state.registry.Get(key)
	if !found {
		return false
	}
	return measurement.IsSuitable(minDNIThreshold)
}

// HealthCheck reports whether the backing store is reachable
func (s *RegistryService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

func (s *RegistryService) lookup(owner string) (*registryState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.registries[owner]
	return state, ok
}
