package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solar-registry/internal/config"
	"solar-registry/internal/events"
	"solar-registry/internal/handlers"
	"solar-registry/internal/repository"
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
	logger := logging.NewStructuredLogger("solar-registry-api", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting solar registry API server", logging.Fields{
		"version":     "1.0.0",
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"owner":       cfg.Registry.Owner,
		"storage":     cfg.Registry.Storage,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("solar_registry")

	// Initialize repository
	var repo repository.RegistryRepository
	switch cfg.Registry.Storage {
	case "postgres":
		dbConfig := &database.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		}

		db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()

		repo = repository.NewPostgresRegistryRepository(db, logger, metricsCollector)
	case "memory":
		repo = repository.NewMemoryRegistryRepository()
	default:
		logger.Fatal(ctx, "[STARTUP_ERROR] Unknown storage backend", logging.Fields{
			"storage": cfg.Registry.Storage,
		}, fmt.Errorf("unknown storage backend %q", cfg.Registry.Storage))
	}

	// Initialize event notifier
	var notifier events.Notifier = events.NewLogNotifier(logger, metricsCollector)
	if cfg.Kafka.Enabled {
		kafkaNotifier := events.NewKafkaNotifier(cfg.Kafka.Brokers, logger, metricsCollector)
		defer kafkaNotifier.Close()
		notifier = events.NewMultiNotifier(events.NewLogNotifier(logger, metricsCollector), kafkaNotifier)
	}

	// Initialize services
	registryService := services.NewRegistryService(repo, notifier, logger, metricsCollector)

	// Rebuild in-memory state before accepting traffic
	if err := registryService.Hydrate(ctx); err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to hydrate registry state", logging.Fields{}, err)
	}

	// Initialize handlers
	auth := handlers.NewAuthenticator(cfg.Registry.Owner, cfg.Registry.APIKeyHash, logger)
	registryHandler := handlers.NewRegistryHandler(registryService, auth, logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()
	router.Use(handlers.RequestIDMiddleware)

	// Register routes
	registryHandler.RegisterRoutes(router)

	// API documentation endpoints
	router.HandleFunc("/api/docs", handlers.SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", handlers.OpenAPISpec).Methods("GET")

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
