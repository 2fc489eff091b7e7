package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/IBM/sarama"

	"solar-registry/internal/events"
	"solar-registry/internal/models"
	"solar-registry/pkg/logging"
	"solar-registry/pkg/metrics"
)

// auditTableDDL creates the append-only audit table. The consumer reads the
// topic from the oldest offset on every start; replayed events carry the same
// event_id and therefore the same sorting key, so ReplacingMergeTree collapses
// them on merge.
const auditTableDDL = `
CREATE TABLE IF NOT EXISTS data_updates (
    event_id    String,
    owner       String,
    latitude    UInt64,
    longitude   UInt64,
    dni         UInt64,
    ghi         UInt64,
    lat_tilt    UInt64,
    observed_at UInt64,
    emitted_at  DateTime64(3, 'UTC')
)
ENGINE = ReplacingMergeTree()
PARTITION BY toYYYYMM(emitted_at)
ORDER BY (owner, latitude, longitude, observed_at, event_id)
`

// AuditService consumes measurement write events from Kafka and records them
// in ClickHouse for long-term analysis.
type AuditService struct {
	conn     driver.Conn
	consumer sarama.Consumer
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector

	batchSize     int
	flushInterval time.Duration

	buffer []models.DataUpdatedEvent
}

// NewAuditService creates a new audit service
func NewAuditService(conn driver.Conn, consumer sarama.Consumer, batchSize int, flushInterval time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AuditService {
	return &AuditService{
		conn:          conn,
		consumer:      consumer,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		metrics:       metricsCollector,
		buffer:        make([]models.DataUpdatedEvent, 0, batchSize),
	}
}

// EnsureSchema creates the audit table if it does not exist
func (s *AuditService) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, auditTableDDL); err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}
	return nil
}

// Run consumes the data-updated topic until ctx is cancelled, flushing
// batches to ClickHouse by size or interval. The remaining buffer is flushed
// on shutdown.
func (s *AuditService) Run(ctx context.Context) error {
	partitionConsumer, err := s.consumer.ConsumePartition(events.TopicDataUpdated, 0, sarama.OffsetOldest)
	if err != nil {
		return fmt.Errorf("failed to consume topic %s: %w", events.TopicDataUpdated, err)
	}
	defer partitionConsumer.Close()

	s.logger.Info(ctx, "[AUDIT_START] Consuming measurement write events", logging.Fields{
		"topic":          events.TopicDataUpdated,
		"batch_size":     s.batchSize,
		"flush_interval": s.flushInterval.String(),
	})

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return s.flush(flushCtx)

		case msg := <-partitionConsumer.Messages():
			var event models.DataUpdatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				s.logger.Warn(ctx, "[AUDIT_DECODE_ERROR] Skipping malformed event", logging.Fields{
					"offset": msg.Offset,
				})
				continue
			}

			s.buffer = append(s.buffer, event)
			s.metrics.AuditEventsTotal.Inc()

			if len(s.buffer) >= s.batchSize {
				if err := s.flush(ctx); err != nil {
					s.logger.Error(ctx, "[AUDIT_FLUSH_ERROR] Failed to flush audit batch", logging.Fields{
						"buffered": len(s.buffer),
					}, err)
				}
			}

		case consumeErr := <-partitionConsumer.Errors():
			s.logger.Error(ctx, "[AUDIT_CONSUME_ERROR] Failed to consume event", logging.Fields{
				"topic": events.TopicDataUpdated,
			}, consumeErr)

		case <-ticker.C:
			if err := s.flush(ctx); err != nil {
				s.logger.Error(ctx, "[AUDIT_FLUSH_ERROR] Failed to flush audit batch", logging.Fields{
					"buffered": len(s.buffer),
				}, err)
			}
		}
	}
}

// flush writes the buffered events to ClickHouse in one batch. The buffer is
// kept on failure so the next flush retries the same rows.
func (s *AuditService) flush(ctx context.Context) error {
	if len(s.buffer) == 0 {
		return nil
	}

	startTime := time.Now()

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO data_updates")
	if err != nil {
		return fmt.Errorf("failed to prepare audit batch: %w", err)
	}

	for _, event := range s.buffer {
		if err := batch.Append(
			event.EventID,
			event.Owner,
			event.Latitude,
			event.Longitude,
			event.DNI,
			event.GHI,
			event.LatTilt,
			event.Timestamp,
			event.EmittedAt.UTC(),
		); err != nil {
			return fmt.Errorf("failed to append audit row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send audit batch: %w", err)
	}

	duration := time.Since(startTime)
	s.metrics.AuditBatchSize.Observe(float64(len(s.buffer)))
	s.metrics.AuditFlushDuration.Observe(duration.Seconds())

	s.logger.Info(ctx, "[AUDIT_FLUSH] Flushed audit batch", logging.Fields{
		"rows":        len(s.buffer),
		"duration_ms": duration.Milliseconds(),
	})

	s.buffer = s.buffer[:0]
	return nil
}
