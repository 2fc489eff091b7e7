package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/IBM/sarama"

	"solar-registry/internal/config"
	"solar-registry/internal/services"
	"solar-registry/pkg/database"
	"solar-registry/pkg/logging"
	"solar-registry/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("solar-auditor", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info(ctx, "[AUDITOR_START] Starting audit consumer", logging.Fields{
		"version":        "1.0.0",
		"brokers":        strings.Join(cfg.Kafka.Brokers, ","),
		"clickhouse":     cfg.ClickHouse.Addr,
		"batch_size":     cfg.Auditor.BatchSize,
		"flush_interval": cfg.Auditor.FlushInterval.String(),
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("solar_auditor")

	// Initialize ClickHouse
	chConfig := &database.ClickHouseConfig{
		Addr:     cfg.ClickHouse.Addr,
		Database: cfg.ClickHouse.Database,
		User:     cfg.ClickHouse.User,
		Password: cfg.ClickHouse.Password,
	}

	conn, err := database.NewClickHouseConn(chConfig, logger)
	if err != nil {
		logger.Fatal(ctx, "[AUDITOR_ERROR] Failed to connect to ClickHouse", logging.Fields{}, err)
	}
	defer conn.Close()

	// Initialize Kafka consumer
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V2_1_0_0
	saramaConfig.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumer(cfg.Kafka.Brokers, saramaConfig)
	if err != nil {
		logger.Fatal(ctx, "[AUDITOR_ERROR] Failed to create Kafka consumer", logging.Fields{}, err)
	}
	defer consumer.Close()

	// Initialize services
	auditService := services.NewAuditService(conn, consumer, cfg.Auditor.BatchSize, cfg.Auditor.FlushInterval, logger, metricsCollector)

	if err := auditService.EnsureSchema(ctx); err != nil {
		logger.Fatal(ctx, "[AUDITOR_ERROR] Failed to ensure audit schema", logging.Fields{}, err)
	}

	// Run consumer in goroutine
	done := make(chan error, 1)
	go func() {
		done <- auditService.Run(ctx)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info(ctx, "[SHUTDOWN] Shutting down auditor...", logging.Fields{})
		cancel()
		if err := <-done; err != nil {
			logger.Error(ctx, "[SHUTDOWN_ERROR] Audit consumer stopped with error", logging.Fields{}, err)
		}
	case err := <-done:
		if err != nil {
			logger.Fatal(ctx, "[AUDITOR_ERROR] Audit consumer failed", logging.Fields{}, err)
		}
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Auditor stopped", logging.Fields{})
}
