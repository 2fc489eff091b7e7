package events

import (
	"context"

	"solar-registry/internal/models"
)

// Kafka topics carrying registry lifecycle events.
const (
	TopicInitialized = "solar.registry.initialized"
	TopicDataUpdated = "solar.registry.data-updated"
)

// Notifier publishes registry lifecycle events. Emission happens after the
// owning write has committed; a failed emission is logged by the caller and
// never unwinds the write that produced it.
type Notifier interface {
	RegistryInitialized(ctx context.Context, event models.OracleInitializedEvent) error
	DataUpdated(ctx context.Context, event models.DataUpdatedEvent) error
}
