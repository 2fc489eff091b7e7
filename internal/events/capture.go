package events

import (
	"context"
	"sync"

	"solar-registry/internal/models"
)

// CaptureNotifier records every event it receives, in order. It exists for
// tests that assert on emission; FailWith makes it return a canned error
// while still recording, to exercise the emit-failure path.
type CaptureNotifier struct {
	mu          sync.Mutex
	initialized []models.OracleInitializedEvent
	updated     []models.DataUpdatedEvent

	FailWith error
}

// NewCaptureNotifier creates an empty capture notifier
func NewCaptureNotifier() *CaptureNotifier {
	return &CaptureNotifier{}
}

func (n *CaptureNotifier) RegistryInitialized(ctx context.Context, event models.OracleInitializedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.initialized = append(n.initialized, event)
	return n.FailWith
}

func (n *CaptureNotifier) DataUpdated(ctx context.Context, event models.DataUpdatedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, event)
	return n.FailWith
}

// InitializedEvents returns a copy of the captured initialization events
func (n *CaptureNotifier) InitializedEvents() []models.OracleInitializedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.OracleInitializedEvent, len(n.initialized))
	copy(out, n.initialized)
	return out
}

// UpdatedEvents returns a copy of the captured data update events
func (n *CaptureNotifier) UpdatedEvents() []models.DataUpdatedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.DataUpdatedEvent, len(n.updated))
	copy(out, n.updated)
	return out
}
