package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solar-registry/internal/agent"
	"solar-registry/internal/config"
	"solar-registry/internal/models"
	"solar-registry/internal/source"
)

// Exactly representable coordinates keep the expected encodings stable.
var testSites = []config.SiteConfig{
	{Name: "bengaluru", Latitude: 12.5, Longitude: 77.25},
}

func newUpstreamStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(source.Observation{
			Site:       "bengaluru",
			Latitude:   12.5,
			Longitude:  77.25,
			DNI:        580.25,
			GHI:        520.5,
			LatTilt:    600.75,
			ObservedAt: 1704067200,
		})
	}))
}

func newIngestion(t *testing.T, upstreamURL, registryURL string, maxRetries int, dryRun bool) *IngestionService {
	t.Helper()
	sourceClient := source.NewClient(upstreamURL, "", 5*time.Second, testLogger())
	registryClient := agent.NewClient(registryURL, testOwner, "agent-secret", 5*time.Second)
	return NewIngestionService(sourceClient, registryClient, testSites, maxRetries, time.Millisecond, dryRun, testLogger(), testMetrics)
}

func TestIngestionService_RunCycle_Submits(t *testing.T) {
	upstream := newUpstreamStub(t)
	defer upstream.Close()

	var received models.UpdateMeasurementRequest
	var calls int32
	registry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/registry/measurements", r.URL.Path)
		assert.Equal(t, testOwner, r.Header.Get("X-Registry-Owner"))
		assert.Equal(t, "agent-secret", r.Header.Get("X-API-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer registry.Close()

	svc := newIngestion(t, upstream.URL, registry.URL, 0, false)
	result, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Submitted)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// 12.5 shifts to 102.5 north-of-pole degrees, 77.25 to 257.25.
	assert.Equal(t, uint64(102500000), received.Latitude)
	assert.Equal(t, uint64(257250000), received.Longitude)
	assert.Equal(t, uint64(58025), received.DNI)
	assert.Equal(t, uint64(52050), received.GHI)
	assert.Equal(t, uint64(60075), received.LatTilt)
	assert.Equal(t, uint64(1704067200), received.ObservedAt)
}

func TestIngestionService_RunCycle_RetriesTransientFailure(t *testing.T) {
	upstream := newUpstreamStub(t)
	defer upstream.Close()

	var calls int32
	registry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer registry.Close()

	svc := newIngestion(t, upstream.URL, registry.URL, 3, false)
	result, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Submitted)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestIngestionService_RunCycle_TerminalRejectionNotRetried(t *testing.T) {
	upstream := newUpstreamStub(t)
	defer upstream.Close()

	var calls int32
	registry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"stale_or_future_data"}`, http.StatusUnprocessableEntity)
	}))
	defer registry.Close()

	svc := newIngestion(t, upstream.URL, registry.URL, 3, false)
	result, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "a rejected timestamp must not be retried")
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "terminal rejection")
}

func TestIngestionService_RunCycle_ExhaustsRetries(t *testing.T) {
	upstream := newUpstreamStub(t)
	defer upstream.Close()

	var calls int32
	registry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer registry.Close()

	svc := newIngestion(t, upstream.URL, registry.URL, 2, false)
	result, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "initial attempt plus two retries")
}

func TestIngestionService_RunCycle_DryRun(t *testing.T) {
	upstream := newUpstreamStub(t)
	defer upstream.Close()

	var calls int32
	registry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer registry.Close()

	svc := newIngestion(t, upstream.URL, registry.URL, 0, true)
	result, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Submitted)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "dry run must not submit")
}

func TestIngestionService_EnsureRegistry_AlreadyInitialized(t *testing.T) {
	var calls int32
	registry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/registry/init", r.URL.Path)
		http.Error(w, `{"error":"already_initialized"}`, http.StatusConflict)
	}))
	defer registry.Close()

	svc := newIngestion(t, "http://unused", registry.URL, 0, false)
	assert.NoError(t, svc.EnsureRegistry(context.Background()), "an existing registry counts as success")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestScaleToHundredths(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  uint64
	}{
		{"whole", 580.0, 58000},
		{"quarter", 580.25, 58025},
		{"truncates", 580.256, 58025},
		{"zero", 0, 0},
		{"negative clamps", -99.9, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scaleToHundredths(tt.input); got != tt.want {
				t.Errorf("scaleToHundredths(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
