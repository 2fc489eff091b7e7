package main

import (
	"context"
	"fmt"
	"time"

	"solar-registry/internal/events"
	"solar-registry/internal/models"
	"solar-registry/internal/repository"
	"solar-registry/internal/services"
	"solar-registry/pkg/logging"
	"solar-registry/pkg/metrics"
)

// DemoStoreSemantics demonstrates the registry store without infrastructure
func main() {
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println("SOLAR REGISTRY - STORE SEMANTICS DEMONSTRATION")
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println()

	// Initialize service on the in-memory backend
	logger := logging.NewStructuredLogger("demo", "1.0.0", logging.ErrorLevel)
	metricsCollector := metrics.NewCollector("solar_demo")
	repo := repository.NewMemoryRegistryRepository()
	notifier := events.NewLogNotifier(logger, metricsCollector)
	store := services.NewRegistryService(repo, notifier, logger, metricsCollector)

	ctx := context.Background()
	owner := "solar-oracle"

	fmt.Println("─────────────────────────────────────────────────────────────")
	fmt.Println("Registry Lifecycle")
	fmt.Println("─────────────────────────────────────────────────────────────")

	registry, err := store.Initialize(ctx, owner)
	if err != nil {
		fmt.Printf("Initialization failed: %v\n", err)
		return
	}
	fmt.Printf("  Initialized registry for %q (locations=%d, updates=%d)\n",
		registry.Owner, registry.TotalLocations, registry.UpdateCount)

	if _, err := store.Initialize(ctx, owner); err != nil {
		fmt.Printf("  Second initialization rejected: %v\n", err)
	}
	fmt.Println()

	fmt.Println("─────────────────────────────────────────────────────────────")
	fmt.Println("Coordinate Encoding")
	fmt.Println("─────────────────────────────────────────────────────────────")

	sites := []struct {
		name     string
		lat, lon float64
	}{
		{"bengaluru", 12.9716, 77.5946},
		{"jodhpur", 26.2389, 73.0243},
		{"out-of-range", 91.0, 10.0},
	}

	keys := make(map[string]models.LocationKey)
	for _, site := range sites {
		key, err := models.EncodeLocation(site.lat, site.lon)
		if err != nil {
			fmt.Printf("  %-12s (%.4f, %.4f) rejected: %v\n", site.name, site.lat, site.lon, err)
			continue
		}
		keys[site.name] = key
		fmt.Printf("  %-12s (%.4f, %.4f) → %s\n", site.name, site.lat, site.lon, key.String())
	}
	fmt.Println()

	fmt.Println("─────────────────────────────────────────────────────────────")
	fmt.Println("Measurement Writes")
	fmt.Println("─────────────────────────────────────────────────────────────")

	now := uint64(time.Now().Unix())
	readings := map[string]models.Measurement{
		"bengaluru": {DNI: 58000, GHI: 52000, LatTilt: 60000, LastUpdated: now - 900},
		"jodhpur":   {DNI: 72550, GHI: 61025, LatTilt: 78000, LastUpdated: now - 300},
	}

	for _, site := range sites {
		key, ok := keys[site.name]
		if !ok {
			continue
		}
		m := readings[site.name]
		if err := store.Update(ctx, owner, key, m); err != nil {
			fmt.Printf("  %-12s write failed: %v\n", site.name, err)
			continue
		}
		fmt.Printf("  %-12s stored DNI=%.2f GHI=%.2f W/m²\n", site.name, m.DNIDecimal(), m.GHIDecimal())
	}

	// A reading stamped in the future is refused and changes nothing
	future := models.Measurement{DNI: 1, GHI: 1, LatTilt: 1, LastUpdated: now + 3600}
	if err := store.Update(ctx, owner, keys["bengaluru"], future); err != nil {
		fmt.Printf("  future-stamped write rejected: %v\n", err)
	}
	fmt.Println()

	fmt.Println("─────────────────────────────────────────────────────────────")
	fmt.Println("Reads and Derived Checks")
	fmt.Println("─────────────────────────────────────────────────────────────")

	for _, site := range sites {
		key, ok := keys[site.name]
		if !ok {
			continue
		}
		m, err := store.Get(ctx, owner, key)
		if err != nil {
			fmt.Printf("  %-12s read failed: %v\n", site.name, err)
			continue
		}

		fmt.Printf("  %-12s lat=%.4f° lon=%.4f° DNI=%d GHI=%d tilt=%d W/m²\n",
			site.name,
			key.LatitudeDegrees(),
			key.LongitudeDegrees(),
			models.HundredthsToDecimal(m.DNI),
			models.HundredthsToDecimal(m.GHI),
			models.HundredthsToDecimal(m.LatTilt),
		)
		fmt.Printf("  %-12s fresh(1h)=%t suitable(dni≥600)=%t\n",
			"",
			store.IsFresh(ctx, owner, key, 3600),
			store.IsSuitable(ctx, owner, key, 60000),
		)
	}

	unknown := models.LocationKey{Latitude: 1, Longitude: 1}
	fmt.Printf("  unregistered location: exists=%t fresh=%t suitable=%t\n",
		store.Exists(ctx, owner, unknown),
		store.IsFresh(ctx, owner, unknown, 3600),
		store.IsSuitable(ctx, owner, unknown, 0),
	)
	fmt.Println()

	totalLocations, updateCount, err := store.Stats(ctx, owner)
	if err != nil {
		fmt.Printf("Stats failed: %v\n", err)
		return
	}

	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println("✅ STORE SEMANTICS DEMONSTRATION COMPLETE")
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Printf("Distinct locations: %d\n", totalLocations)
	fmt.Printf("Accepted writes:    %d\n", updateCount)
	fmt.Println()
	fmt.Println("The store successfully:")
	fmt.Println("  ✓ Enforced one-time registry initialization")
	fmt.Println("  ✓ Encoded signed degrees into unsigned microdegree keys")
	fmt.Println("  ✓ Replaced measurements wholesale per location")
	fmt.Println("  ✓ Rejected future-stamped observations")
	fmt.Println("  ✓ Answered freshness and suitability checks")
	fmt.Println()
	fmt.Println("With the full stack, the same writes would:")
	fmt.Println("  • Persist to PostgreSQL inside the update critical section")
	fmt.Println("  • Publish DataUpdated events to Kafka")
	fmt.Println("  • Land in ClickHouse through the audit consumer")
	fmt.Println()
}
