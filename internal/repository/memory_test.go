package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"solar-registry/internal/models"
)

func TestMemoryRepositoryRoundTrip(t *testing.T) {
	repo := NewMemoryRegistryRepository()
	ctx := context.Background()

	registry := models.NewRegistry("solar-oracle", time.Unix(1704067200, 0).UTC())
	if err := repo.SaveRegistry(ctx, registry); err != nil {
		t.Fatalf("SaveRegistry() error = %v", err)
	}

	key := models.LocationKey{Latitude: 102971600, Longitude: 257594600}
	m := models.Measurement{DNI: 58000, GHI: 52000, LatTilt: 60000, LastUpdated: 1704067200}
	if err := repo.SaveMeasurement(ctx, "solar-oracle", key, m, 1, 1); err != nil {
		t.Fatalf("SaveMeasurement() error = %v", err)
	}

	loaded, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("LoadAll() returned %d registries, want 1", len(loaded))
	}

	got := loaded[0]
	if got.Owner != "solar-oracle" {
		t.Errorf("Owner = %q, want %q", got.Owner, "solar-oracle")
	}
	if got.TotalLocations != 1 || got.UpdateCount != 1 {
		t.Errorf("counters = (%d, %d), want (1, 1)", got.TotalLocations, got.UpdateCount)
	}
	entry, ok := got.Entries[key]
	if !ok {
		t.Fatalf("Entries missing key %v", key)
	}
	if entry != m {
		t.Errorf("entry = %+v, want %+v", entry, m)
	}
}

func TestMemoryRepositorySaveRegistryDuplicate(t *testing.T) {
	repo := NewMemoryRegistryRepository()
	ctx := context.Background()

	registry := models.NewRegistry("solar-oracle", time.Now().UTC())
	if err := repo.SaveRegistry(ctx, registry); err != nil {
		t.Fatalf("SaveRegistry() error = %v", err)
	}
	if err := repo.SaveRegistry(ctx, registry); err == nil {
		t.Error("SaveRegistry() on duplicate owner expected error, got nil")
	}
}

func TestMemoryRepositorySaveMeasurementUnknownOwner(t *testing.T) {
	repo := NewMemoryRegistryRepository()
	ctx := context.Background()

	key := models.LocationKey{Latitude: 102971600, Longitude: 257594600}
	err := repo.SaveMeasurement(ctx, "ghost", key, models.Measurement{}, 1, 1)
	if err == nil {
		t.Fatal("SaveMeasurement() for unknown owner expected error, got nil")
	}

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("error = %v, want *NotFoundError", err)
	}
}

func TestMemoryRepositoryIsolation(t *testing.T) {
	repo := NewMemoryRegistryRepository()
	ctx := context.Background()

	registry := models.NewRegistry("solar-oracle", time.Now().UTC())
	if err := repo.SaveRegistry(ctx, registry); err != nil {
		t.Fatalf("SaveRegistry() error = %v", err)
	}

	// Mutating the caller's copy after save must not leak into the store.
	registry.UpdateCount = 99

	loaded, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if loaded[0].UpdateCount != 0 {
		t.Errorf("UpdateCount = %d, want 0 (stored copy mutated)", loaded[0].UpdateCount)
	}

	// And mutating a loaded copy must not affect later loads.
	key := models.LocationKey{Latitude: 1, Longitude: 2}
	loaded[0].Entries[key] = models.Measurement{DNI: 1}

	reloaded, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(reloaded[0].Entries) != 0 {
		t.Errorf("Entries length = %d, want 0", len(reloaded[0].Entries))
	}
}
