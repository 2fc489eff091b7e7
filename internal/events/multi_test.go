package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"solar-registry/internal/models"
)

func TestMultiNotifierFansOut(t *testing.T) {
	first := NewCaptureNotifier()
	second := NewCaptureNotifier()
	multi := NewMultiNotifier(first, second)

	event := models.NewOracleInitializedEvent("solar-oracle", time.Unix(1704067200, 0).UTC())
	if err := multi.RegistryInitialized(context.Background(), event); err != nil {
		t.Fatalf("RegistryInitialized() error = %v", err)
	}

	for i, capture := range []*CaptureNotifier{first, second} {
		got := capture.InitializedEvents()
		if len(got) != 1 {
			t.Fatalf("notifier %d captured %d events, want 1", i, len(got))
		}
		if got[0].Owner != "solar-oracle" {
			t.Errorf("notifier %d owner = %q, want %q", i, got[0].Owner, "solar-oracle")
		}
	}
}

func TestMultiNotifierContinuesPastFailure(t *testing.T) {
	failing := NewCaptureNotifier()
	failing.FailWith = errors.New("broker unreachable")
	healthy := NewCaptureNotifier()
	multi := NewMultiNotifier(failing, healthy)

	key := models.LocationKey{Latitude: 102971600, Longitude: 257594600}
	m := models.Measurement{DNI: 58000, GHI: 52000, LatTilt: 60000, LastUpdated: 1704067200}
	event := models.NewDataUpdatedEvent("solar-oracle", key, m, time.Unix(1704067300, 0).UTC())

	err := multi.DataUpdated(context.Background(), event)
	if err == nil {
		t.Fatal("DataUpdated() expected joined error, got nil")
	}
	if !errors.Is(err, failing.FailWith) {
		t.Errorf("error = %v, want wrapped %v", err, failing.FailWith)
	}

	// The failing notifier must not stop delivery to the healthy one.
	if len(healthy.UpdatedEvents()) != 1 {
		t.Errorf("healthy notifier captured %d events, want 1", len(healthy.UpdatedEvents()))
	}
}
