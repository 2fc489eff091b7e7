package repository

import (
	"context"
	"fmt"
	"time"

	"solar-registry/internal/models"
	"solar-registry/pkg/database"
	"solar-registry/pkg/logging"
	"solar-registry/pkg/metrics"
)

// RegistryRepository persists registry snapshots. The in-memory store is
// authoritative at runtime; implementations only have to keep a durable
// mirror of it, written inside the store's critical section so a failed
// write leaves no trace in either layer.
type RegistryRepository interface {
	// SaveRegistry persists a newly initialized registry row.
	SaveRegistry(ctx context.Context, registry *models.Registry) error

	// SaveMeasurement persists one accepted write: the measurement upsert
	// and the owner's counter update commit in a single transaction.
	SaveMeasurement(ctx context.Context, owner string, key models.LocationKey, m models.Measurement, totalLocations, updateCount uint64) error

	// LoadAll returns every persisted registry with its entries.
	LoadAll(ctx context.Context) ([]*models.Registry, error)

	// HealthCheck reports whether the backing store is reachable.
	HealthCheck(ctx context.Context) error
}

// postgresRegistryRepository implements RegistryRepository on PostgreSQL
type postgresRegistryRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewPostgresRegistryRepository creates a PostgreSQL-backed repository
func NewPostgresRegistryRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) RegistryRepository {
	return &postgresRegistryRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// SaveRegistry persists a newly initialized registry row
func (r *postgresRegistryRepository) SaveRegistry(ctx context.Context, registry *models.Registry) error {
	query := `
		INSERT INTO registries (owner, total_locations, update_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`

	_, err := r.db.ExecContext(ctx, "insert_registry", query,
		registry.Owner,
		registry.TotalLocations,
		registry.UpdateCount,
		registry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_SAVE_REGISTRY] Registry row created", logging.Fields{
		"owner": registry.Owner,
	})

	return nil
}

// SaveMeasurement upserts a measurement row and the owner's counters in one
// transaction
func (r *postgresRegistryRepository) SaveMeasurement(ctx context.Context, owner string, key models.LocationKey, m models.Measurement, totalLocations, updateCount uint64) error {
	timer := time.Now()
	defer func() {
		r.logger.Debug(ctx, "[REPO_SAVE_MEASUREMENT] Measurement persisted", logging.Fields{
			"owner":       owner,
			"location":    key.String(),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO registry_measurements (
			owner, latitude, longitude,
			dni, ghi, lat_tilt, last_updated,
			updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (owner, latitude, longitude) DO UPDATE SET
			dni = EXCLUDED.dni,
			ghi = EXCLUDED.ghi,
			lat_tilt = EXCLUDED.lat_tilt,
			last_updated = EXCLUDED.last_updated,
			updated_at = NOW()
	`

	if _, err := tx.ExecContext(ctx, upsert,
		owner,
		key.Latitude,
		key.Longitude,
		m.DNI,
		m.GHI,
		m.LatTilt,
		m.LastUpdated,
	); err != nil {
		return fmt.Errorf("failed to upsert measurement: %w", err)
	}

	counters := `
		UPDATE registries
		SET total_locations = $2, update_count = $3, updated_at = NOW()
		WHERE owner = $1
	`

	result, err := tx.ExecContext(ctx, counters, owner, totalLocations, updateCount)
	if err != nil {
		return fmt.Errorf("failed to update counters: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check counter update: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{Resource: "registry", ID: owner}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit measurement: %w", err)
	}

	return nil
}

// registryRow maps a row of the registries table
type registryRow struct {
	Owner          string    `db:"owner"`
	TotalLocations uint64    `db:"total_locations"`
	UpdateCount    uint64    `db:"update_count"`
	CreatedAt      time.Time `db:"created_at"`
}

// measurementRow maps a row of the registry_measurements table
type measurementRow struct {
	Owner string `db:"owner"`
	models.LocationKey
	models.Measurement
}

// LoadAll reassembles every persisted registry with its entries
func (r *postgresRegistryRepository) LoadAll(ctx context.Context) ([]*models.Registry, error) {
	var rows []registryRow
	query := `
		SELECT owner, total_locations, update_count, created_at
		FROM registries
		ORDER BY owner
	`

	if err := r.db.SelectContext(ctx, "load_registries", &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load registries: %w", err)
	}

	byOwner := make(map[string]*models.Registry, len(rows))
	registries := make([]*models.Registry, 0, len(rows))

	for _, row := range rows {
		registry := models.NewRegistry(row.Owner, row.CreatedAt)
		registry.TotalLocations = row.TotalLocations
		registry.UpdateCount = row.UpdateCount
		byOwner[row.Owner] = registry
		registries = append(registries, registry)
	}

	var entries []measurementRow
	entriesQuery := `
		SELECT owner, latitude, longitude, dni, ghi, lat_tilt, last_updated
		FROM registry_measurements
	`

	if err := r.db.SelectContext(ctx, "load_measurements", &entries, entriesQuery); err != nil {
		return nil, fmt.Errorf("failed to load measurements: %w", err)
	}

	for _, row := range entries {
		registry, ok := byOwner[row.Owner]
		if !ok {
			// Orphan rows mean the two tables disagree; surface it
			// instead of silently dropping data.
			return nil, fmt.Errorf("measurement row for unknown registry owner %q", row.Owner)
		}
		registry.Entries[row.LocationKey] = row.Measurement
	}

	r.logger.Info(ctx, "[REPO_LOAD] Registries loaded", logging.Fields{
		"registries":   len(registries),
		"measurements": len(entries),
	})

	return registries, nil
}

// HealthCheck performs a repository health check
func (r *postgresRegistryRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
