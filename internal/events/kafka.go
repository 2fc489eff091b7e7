package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"solar-registry/internal/models"
	"solar-registry/pkg/logging"
	"solar-registry/pkg/metrics"
)

// KafkaNotifier publishes lifecycle events to Kafka, one writer per topic.
// Messages are JSON-encoded and keyed by owner so every event for a registry
// lands on the same partition in order.
type KafkaNotifier struct {
	initWriter *kafka.Writer
	dataWriter *kafka.Writer
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewKafkaNotifier creates a Kafka-backed notifier for the given brokers
func NewKafkaNotifier(brokers []string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *KafkaNotifier {
	return &KafkaNotifier{
		initWriter: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    TopicInitialized,
			Balancer: &kafka.LeastBytes{},
		},
		dataWriter: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    TopicDataUpdated,
			Balancer: &kafka.LeastBytes{},
		},
		logger:  logger,
		metrics: metricsCollector,
	}
}

func (n *KafkaNotifier) RegistryInitialized(ctx context.Context, event models.OracleInitializedEvent) error {
	if err := n.publish(ctx, n.initWriter, TopicInitialized, event.Owner, event.EventID, event); err != nil {
		return fmt.Errorf("failed to publish initialized event: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) DataUpdated(ctx context.Context, event models.DataUpdatedEvent) error {
	if err := n.publish(ctx, n.dataWriter, TopicDataUpdated, event.Owner, event.EventID, event); err != nil {
		return fmt.Errorf("failed to publish data updated event: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) publish(ctx context.Context, writer *kafka.Writer, topic, owner, eventID string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		n.metrics.RecordNotification(topic, "error")
		return fmt.Errorf("marshal event: %w", err)
	}

	err = writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(owner),
		Value: value,
	})
	if err != nil {
		n.metrics.RecordNotification(topic, "error")
		return fmt.Errorf("write to %s: %w", topic, err)
	}

	n.metrics.RecordNotification(topic, "success")
	n.logger.Debug(ctx, "[EVENT_PUBLISHED] Event published to broker", logging.Fields{
		"topic":    topic,
		"owner":    owner,
		"event_id": eventID,
	})
	return nil
}

// Close flushes and closes both topic writers
func (n *KafkaNotifier) Close() error {
	var firstErr error
	if err := n.initWriter.Close(); err != nil {
		firstErr = err
	}
	if err := n.dataWriter.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
