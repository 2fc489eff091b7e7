package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-co-op/gocron/v2"

	"solar-registry/internal/agent"
	"solar-registry/internal/config"
	"solar-registry/internal/services"
	"solar-registry/internal/source"
	"solar-registry/pkg/logging"
	"solar-registry/pkg/metrics"
)

func main() {
	// Parse command-line flags
	once := flag.Bool("once", false, "Run a single ingestion cycle and exit")
	dryRun := flag.Bool("dry-run", false, "Fetch and encode observations without submitting them")
	flag.Parse()

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
	logger := logging.NewStructuredLogger("solar-agent", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[AGENT_START] Starting solar ingestion agent", logging.Fields{
		"version":  "1.0.0",
		"owner":    cfg.Registry.Owner,
		"server":   cfg.Agent.ServerURL,
		"sites":    len(cfg.Agent.Sites),
		"schedule": cfg.Agent.Schedule,
		"once":     *once,
		"dry_run":  *dryRun,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("solar_agent")

	// Initialize clients
	sourceClient := source.NewClient(cfg.Source.BaseURL, cfg.Source.APIKey, cfg.Source.Timeout, logger)
	registryClient := agent.NewClient(cfg.Agent.ServerURL, cfg.Registry.Owner, cfg.Agent.APIKey, cfg.Agent.Timeout)

	// Initialize services
	ingestionService := services.NewIngestionService(
		sourceClient,
		registryClient,
		cfg.Agent.Sites,
		cfg.Agent.MaxRetries,
		cfg.Agent.RetryBackoff,
		*dryRun,
		logger,
		metricsCollector,
	)

	if err := ingestionService.EnsureRegistry(ctx); err != nil {
		logger.Fatal(ctx, "[AGENT_ERROR] Failed to ensure registry exists", logging.Fields{
			"owner": cfg.Registry.Owner,
		}, err)
	}

	// One-shot mode runs a single cycle and reports to stdout
	if *once {
		result, err := ingestionService.RunCycle(ctx)
		if err != nil {
			logger.Fatal(ctx, "[CYCLE_ERROR] Ingestion cycle failed", logging.Fields{}, err)
		}

		printCycleSummary(result)

		if result.Failed > 0 {
			os.Exit(1)
		}
		return
	}

	// Scheduled mode runs cycles on the configured cron expression
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal(ctx, "[AGENT_ERROR] Failed to create scheduler", logging.Fields{}, err)
	}

	_, err = scheduler.NewJob(
		gocron.CronJob(cfg.Agent.Schedule, false),
		gocron.NewTask(func() {
			if _, err := ingestionService.RunCycle(ctx); err != nil {
				logger.Error(ctx, "[CYCLE_ERROR] Ingestion cycle failed", logging.Fields{}, err)
			}
		}),
		gocron.WithName("ingestion-cycle"),
	)
	if err != nil {
		logger.Fatal(ctx, "[AGENT_ERROR] Failed to schedule ingestion job", logging.Fields{
			"schedule": cfg.Agent.Schedule,
		}, err)
	}

	scheduler.Start()

	logger.Info(ctx, "[AGENT_READY] Ingestion agent running", logging.Fields{
		"schedule": cfg.Agent.Schedule,
	})

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down agent...", logging.Fields{})

	if err := scheduler.Shutdown(); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Scheduler forced to stop", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Agent stopped", logging.Fields{})
}

func printCycleSummary(result *services.CycleResult) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION CYCLE COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Sites:     %d\n", result.Sites)
	fmt.Printf("Submitted: %d\n", result.Submitted)
	fmt.Printf("Skipped:   %d\n", result.Skipped)
	fmt.Printf("Failed:    %d\n", result.Failed)
	fmt.Printf("Duration:  %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for _, errMsg := range result.Errors {
			fmt.Printf("  - %s\n", errMsg)
		}
	}
}
