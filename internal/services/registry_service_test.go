package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solar-registry/internal/events"
	"solar-registry/internal/models"
	"solar-registry/internal/repository"
	"solar-registry/pkg/logging"
	"solar-registry/pkg/metrics"
)

// One collector for the whole package; registering a second one would
// collide on the default Prometheus registry.
var testMetrics = metrics.NewCollector("registry_service_test")

const (
	testOwner      = "solar-oracle"
	testAcceptedAt = 1704070000
)

var (
	testKey   = models.LocationKey{Latitude: 12971600, Longitude: 77594600}
	testKeyB  = models.LocationKey{Latitude: 28704100, Longitude: 77102500}
	testValue = models.Measurement{DNI: 580, GHI: 520, LatTilt: 600, LastUpdated: 1704067200}
)

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("registry-service-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(t *testing.T) (*RegistryService, *events.CaptureNotifier) {
	t.Helper()
	capture := events.NewCaptureNotifier()
	svc := NewRegistryService(repository.NewMemoryRegistryRepository(), capture, testLogger(), testMetrics)
	svc.now = func() time.Time { return time.Unix(testAcceptedAt, 0).UTC() }
	return svc, capture
}

func TestRegistryService_Initialize(t *testing.T) {
	svc, capture := newTestService(t)
	ctx := context.Background()

	registry, err := svc.Initialize(ctx, testOwner)
	require.NoError(t, err)
	require.NotNil(t, registry)

	assert.Equal(t, testOwner, registry.Owner)
	assert.Equal(t, uint64(0), registry.TotalLocations)
	assert.Equal(t, uint64(0), registry.UpdateCount)
	assert.Empty(t, registry.Entries)

	emitted := capture.InitializedEvents()
	require.Len(t, emitted, 1)
	assert.Equal(t, testOwner, emitted[0].Owner)
	assert.NotEmpty(t, emitted[0].EventID)
}

func TestRegistryService_Initialize_Twice(t *testing.T) {
	svc, capture := newTestService(t)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, testOwner)
	require.NoError(t, err)

	_, err = svc.Initialize(ctx, testOwner)
	require.Error(t, err)
	assert.True(t, models.IsAlreadyInitialized(err), "error = %v, want AlreadyInitialized", err)

	// Only the first call may announce itself.
	assert.Len(t, capture.InitializedEvents(), 1)
}

func TestRegistryService_Initialize_EmptyOwner(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Initialize(context.Background(), "")
	require.Error(t, err)

	var validationErr *models.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestRegistryService_Update_ThenGet(t *testing.T) {
	svc, capture := newTestService(t)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, testOwner)
	require.NoError(t, err)

	err = svc.Update(ctx, testOwner, testKey, testValue)
	require.NoError(t, err)

	got, err := svc.Get(ctx, testOwner, testKey)
	require.NoError(t, err)
	assert.Equal(t, uint64(580), got.DNI)
	assert.Equal(t, uint64(520), got.GHI)
	assert.Equal(t, uint64(600), got.LatTilt)
	assert.Equal(t, uint64(1704067200), got.LastUpdated)

	total, updates, err := svc.Stats(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	assert.Equal(t, uint64(1), updates)

	emitted := capture.UpdatedEvents()
	require.Len(t, emitted, 1)
	assert.Equal(t, testOwner, emitted[0].Owner)
	assert.Equal(t, testKey.Latitude, emitted[0].Latitude)
	assert.Equal(t, testKey.Longitude, emitted[0].Longitude)
	assert.Equal(t, uint64(580), emitted[0].DNI)
	assert.Equal(t, uint64(520), emitted[0].GHI)
	assert.Equal(t, uint64(1704067200), emitted[0].Timestamp)
}

func TestRegistryService_Update_SecondDistinctKey(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, testOwner)
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, testOwner, testKey, testValue))

	second := models.Measurement{DNI: 610, GHI: 540, LatTilt: 630, LastUpdated: 1704067260}
	require.NoError(t, svc.Update(ctx, testOwner, testKeyB, second))

	total, updates, err := svc.Stats(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Equal(t, uint64(2), updates)
}

func TestRegistryService_Update_OverwriteSameKey(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, testOwner)
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, testOwner, testKey, testValue))

	// Overwrites replace wholesale, even with an older observation time.
	older := models.Measurement{DNI: 300, GHI: 280, LatTilt: 310, LastUpdated: 1704060000}
	require.NoError(t, svc.Update(ctx, testOwner, testKey, older))

	got, err := svc.Get(ctx, testOwner, testKey)
	require.NoError(t, err)
	assert.Equal(t, older, got)

	total, updates, err := svc.Stats(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total, "overwrite must not grow total_locations")
	assert.Equal(t, uint64(2), updates, "every accepted write counts")
}

func TestRegistryService_Update_NotInitialized(t *testing.T) {
	svc, capture := newTestService(t)

	err := svc.Update(context.Background(), testOwner, testKey, testValue)
	require.Error(t, err)
	assert.True(t, models.IsNotInitialized(err), "error = %v, want NotInitialized", err)
	assert.Empty(t, capture.UpdatedEvents())
}

func TestRegistryService_Update_FutureTimestamp(t *testing.T) {
	svc, capture := newTestService(t)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, testOwner)
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, testOwner, testKey, testValue))

	future := models.Measurement{DNI: 700, GHI: 650, LatTilt: 720, LastUpdated: testAcceptedAt + 1}
	err = svc.Update(ctx, testOwner, testKey, future)
	require.Error(t, err)
	assert.True(t, models.IsStaleOrFutureData(err), "error = %v, want StaleOrFutureData", err)

	// The rejected write must leave no trace.
	got, err := svc.Get(ctx, testOwner, testKey)
	require.NoError(t, err)
	assert.Equal(t, testValue, got)

	total, updates, err := svc.Stats(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	assert.Equal(t, uint64(1), updates)
	assert.Len(t, capture.UpdatedEvents(), 1)
}

func TestRegistryService_Update_TimestampAtNow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, testOwner)
	require.NoError(t, err)

	// observed_at equal to the accepted time is the inclusive boundary.
	atNow := models.Measurement{DNI: 580, GHI: 520, LatTilt: 600, LastUpdated: testAcceptedAt}
	assert.NoError(t, svc.Update(ctx, testOwner, testKey, atNow))
}

func TestRegistryService_Update_OwnerMismatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, testOwner)
	require.NoError(t, err)

	// Force the stored owner and the map key out of agreement to prove the
	// ownership check does not ride on the identity-scoped lookup.
	svc.mu.Lock()
	svc.registries["intruder"] = svc.registries[testOwner]
	svc.mu.Unlock()

	err = svc.Update(ctx, "intruder", testKey, testValue)
	require.Error(t, err)
	assert.True(t, models.IsNotAuthorized(err), "error = %v, want NotAuthorized", err)
}

func TestRegistryService_Get_Missing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, testOwner, testKey)
	assert.True(t, models.IsNotInitialized(err), "error = %v, want NotInitialized", err)

	_, err = svc.Initialize(ctx, testOwner)
	require.NoError(t, err)

	_, err = svc.Get(ctx, testOwner, testKey)
	assert.True(t, models.IsLocationNotFound(err), "error = %v, want LocationNotFound", err)
}

func TestRegistryService_Exists(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.False(t, svc.Exists(ctx, testOwner, testKey), "absent registry reads as false")

	_, err := svc.Initialize(ctx, testOwner)
	require.NoError(t, err)
	assert.False(t, svc.Exists(ctx, testOwner, testKey))

	require.NoError(t, svc.Update(ctx, testOwner, testKey, testValue))
	assert.True(t, svc.Exists(ctx, testOwner, testKey))
}

func TestRegistryService_Stats_NotInitialized(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Stats(context.Background(), testOwner)
	assert.True(t, models.IsNotInitialized(err), "error = %v, want NotInitialized", err)
}

func TestRegistryService_IsFresh(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.False(t, svc.IsFresh(ctx, testOwner, testKey, 86400), "absent registry reads as false")

	_, err := svc.Initialize(ctx, testOwner)
	require.NoError(t, err)
	assert.False(t, svc.IsFresh(ctx, testOwner, testKey, 86400), "absent key reads as false")

	require.NoError(t, svc.Update(ctx, testOwner, testKey, testValue))

	age := uint64(testAcceptedAt - 1704067200)
	assert.True(t, svc.IsFresh(ctx, testOwner, testKey, age), "age equal to the limit is fresh")
	assert.True(t, svc.IsFresh(ctx, testOwner, testKey, age+1))
	assert.False(t, svc.IsFresh(ctx, testOwner, testKey, age-1))
}

func TestRegistryService_IsSuitable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.False(t, svc.IsSuitable(ctx, testOwner, testKey, 0), "absent registry reads as false")

	_, err := svc.Initialize(ctx, testOwner)
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, testOwner, testKey, testValue))

	assert.True(t, svc.IsSuitable(ctx, testOwner, testKey, 500))
	assert.True(t, svc.IsSuitable(ctx, testOwner, testKey, 580))
	assert.False(t, svc.IsSuitable(ctx, testOwner, testKey, 600))
}

// failAfterRepo passes calls through until armed, then fails every write.
type failAfterRepo struct {
	repository.RegistryRepository
	fail bool
}

func (r *failAfterRepo) SaveRegistry(ctx context.Context, registry *models.Registry) error {
	if r.fail {
		return errors.New("backing store unavailable")
	}
	return r.RegistryRepository.SaveRegistry(ctx, registry)
}

func (r *failAfterRepo) SaveMeasurement(ctx context.Context, owner string, key models.LocationKey, m models.Measurement, totalLocations, updateCount uint64) error {
	if r.fail {
		return errors.New("backing store unavailable")
	}
	return r.RegistryRepository.SaveMeasurement(ctx, owner, key, m, totalLocations, updateCount)
}

func TestRegistryService_Update_PersistFailureRollsBack(t *testing.T) {
	repo := &failAfterRepo{RegistryRepository: repository.NewMemoryRegistryRepository()}
	capture := events.NewCaptureNotifier()
	svc := NewRegistryService(repo, capture, testLogger(), testMetrics)
	svc.now = func() time.Time { return time.Unix(testAcceptedAt, 0).UTC() }
	ctx := context.Background()

	_, err := svc.Initialize(ctx, testOwner)
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, testOwner, testKey, testValue))

	repo.fail = true
	next := models.Measurement{DNI: 700, GHI: 650, LatTilt: 720, LastUpdated: 1704067800}
	err = svc.Update(ctx, testOwner, testKeyB, next)
	require.Error(t, err)

	// Memory must still match the last durable state.
	assert.False(t, svc.Exists(ctx, testOwner, testKeyB))
	total, updates, err := svc.Stats(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	assert.Equal(t, uint64(1), updates)
	assert.Len(t, capture.UpdatedEvents(), 1, "no event for a failed write")
}

func TestRegistryService_Initialize_PersistFailureLeavesAbsent(t *testing.T) {
	repo := &failAfterRepo{RegistryRepository: repository.NewMemoryRegistryRepository(), fail: true}
	capture := events.NewCaptureNotifier()
	svc := NewRegistryService(repo, capture, testLogger(), testMetrics)
	svc.now = func() time.Time { return time.Unix(testAcceptedAt, 0).UTC() }
	ctx := context.Background()

	_, err := svc.Initialize(ctx, testOwner)
	require.Error(t, err)
	assert.Empty(t, capture.InitializedEvents())

	// The failed attempt must not occupy the slot.
	repo.fail = false
	_, err = svc.Initialize(ctx, testOwner)
	assert.NoError(t, err)
}

func TestRegistryService_Update_NotifierFailureDoesNotFailWrite(t *testing.T) {
	svc, capture := newTestService(t)
	capture.FailWith = errors.New("broker unreachable")
	ctx := context.Background()

	_, err := svc.Initialize(ctx, testOwner)
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, testOwner, testKey, testValue))

	got, err := svc.Get(ctx, testOwner, testKey)
	require.NoError(t, err)
	assert.Equal(t, testValue, got)
}

func TestRegistryService_Hydrate(t *testing.T) {
	repo := repository.NewMemoryRegistryRepository()
	ctx := context.Background()

	seeded := NewRegistryService(repo, events.NewCaptureNotifier(), testLogger(), testMetrics)
	seeded.now = func() time.Time { return time.Unix(testAcceptedAt, 0).UTC() }
	_, err := seeded.Initialize(ctx, testOwner)
	require.NoError(t, err)
	require.NoError(t, seeded.Update(ctx, testOwner, testKey, testValue))

	// A fresh service over the same repository picks up where it left off.
	restarted := NewRegistryService(repo, events.NewCaptureNotifier(), testLogger(), testMetrics)
	restarted.now = func() time.Time { return time.Unix(testAcceptedAt, 0).UTC() }
	require.NoError(t, restarted.Hydrate(ctx))

	got, err := restarted.Get(ctx, testOwner, testKey)
	require.NoError(t, err)
	assert.Equal(t, testValue, got)

	_, err = restarted.Initialize(ctx, testOwner)
	assert.True(t, models.IsAlreadyInitialized(err), "hydrated registry must block re-initialization")

	require.NoError(t, restarted.Update(ctx, testOwner, testKeyB, models.Measurement{DNI: 610, LastUpdated: 1704067900}))
	total, updates, err := restarted.Stats(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Equal(t, uint64(2), updates)
}

func TestRegistryService_ConcurrentUpdates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, testOwner)
	require.NoError(t, err)

	const writers = 32
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			key := models.LocationKey{Latitude: uint64(1000 + i), Longitude: uint64(2000 + i)}
			m := models.Measurement{DNI: uint64(500 + i), GHI: 400, LatTilt: 450, LastUpdated: 1704067200}
			if err := svc.Update(ctx, testOwner, key, m); err != nil {
				t.Errorf("Update(%d) error = %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	total, updates, err := svc.Stats(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, uint64(writers), total)
	assert.Equal(t, uint64(writers), updates)

	for i := 0; i < writers; i++ {
		key := models.LocationKey{Latitude: uint64(1000 + i), Longitude: uint64(2000 + i)}
		require.True(t, svc.Exists(ctx, testOwner, key), fmt.Sprintf("key %d missing after concurrent writes", i))
	}
}
