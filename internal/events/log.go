package events

import (
	"context"

	"solar-registry/internal/models"
	"solar-registry/pkg/logging"
	"solar-registry/pkg/metrics"
)

// LogNotifier writes lifecycle events to the structured log. It is the
// fallback path when no broker is configured and always succeeds.
type LogNotifier struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *LogNotifier {
	return &LogNotifier{
		logger:  logger,
		metrics: metricsCollector,
	}
}

func (n *LogNotifier) RegistryInitialized(ctx context.Context, event models.OracleInitializedEvent) error {
	n.logger.Info(ctx, "[EVENT_INITIALIZED] Registry initialized", logging.Fields{
		"event_id": event.EventID,
		"owner":    event.Owner,
	})
	n.metrics.RecordNotification(TopicInitialized, "success")
	return nil
}

func (n *LogNotifier) DataUpdated(ctx context.Context, event models.DataUpdatedEvent) error {
	n.logger.Info(ctx, "[EVENT_DATA_UPDATED] Measurement stored", logging.Fields{
		"event_id":  event.EventID,
		"owner":     event.Owner,
		"latitude":  event.Latitude,
		"longitude": event.Longitude,
		"dni":       event.DNI,
		"ghi":       event.GHI,
		"timestamp": event.Timestamp,
	})
	n.metrics.RecordNotification(TopicDataUpdated, "success")
	return nil
}
