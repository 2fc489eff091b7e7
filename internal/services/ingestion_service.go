package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solar-registry/internal/agent"
	"solar-registry/internal/config"
	"solar-registry/internal/models"
	"solar-registry/internal/source"
	"solar-registry/pkg/logging"
	"solar-registry/pkg/metrics"
)

// IngestionService runs the fetch-encode-submit pipeline for a set of
// configured sites. Coordinates are shifted non-negative and scaled to
// microdegrees, irradiance floats are scaled to hundredths; the registry
// server receives only encoded integers.
type IngestionService struct {
	source   *source.Client
	registry *agent.Client
	sites    []config.SiteConfig
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector

	maxRetries   int
	retryBackoff time.Duration
	dryRun       bool
}

// CycleResult contains per-cycle submission statistics
type CycleResult struct {
	Sites     int
	Submitted int
	Skipped   int
	Failed    int
	Duration  time.Duration
	Errors    []string
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(sourceClient *source.Client, registryClient *agent.Client, sites []config.SiteConfig, maxRetries int, retryBackoff time.Duration, dryRun bool, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		source:       sourceClient,
		registry:     registryClient,
		sites:        sites,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		dryRun:       dryRun,
		logger:       logger,
		metrics:      metricsCollector,
	}
}

// EnsureRegistry initializes the owner's registry if it does not exist yet
func (s *IngestionService) EnsureRegistry(ctx context.Context) error {
	if s.dryRun {
		return nil
	}
	if err := s.registry.EnsureInitialized(ctx); err != nil {
		return fmt.Errorf("failed to ensure registry: %w", err)
	}
	return nil
}

// RunCycle fetches and submits one observation per configured site
func (s *IngestionService) RunCycle(ctx context.Context) (*CycleResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[CYCLE_START] Starting ingestion cycle", logging.Fields{
		"sites":   len(s.sites),
		"dry_run": s.dryRun,
	})

	result := &CycleResult{
		Sites:  len(s.sites),
		Errors: make([]string, 0),
	}

	if len(s.sites) == 0 {
		return nil, fmt.Errorf("no sites configured")
	}

	for _, site := range s.sites {
		if err := s.processSite(ctx, site, result); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", site.Name, err))
			s.logger.Error(ctx, "[CYCLE_SITE_ERROR] Site submission failed", logging.Fields{
				"site": site.Name,
			}, err)
		}
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionCycleDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[CYCLE_COMPLETE] Ingestion cycle completed", logging.Fields{
		"sites":            result.Sites,
		"submitted":        result.Submitted,
		"skipped":          result.Skipped,
		"failed":           result.Failed,
		"duration_seconds": result.Duration.Seconds(),
	})

	return result, nil
}

// processSite fetches, encodes and submits one site's observation
func (s *IngestionService) processSite(ctx context.Context, site config.SiteConfig, result *CycleResult) error {
	fetchStart := time.Now()
	obs, err := s.source.FetchIrradiance(ctx, site.Latitude, site.Longitude)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	s.metrics.IngestionFetchDuration.Observe(time.Since(fetchStart).Seconds())

	// Keys come from the configured coordinates, not the upstream echo, so
	// a site's identity stays stable across upstream rounding changes.
	key, err := models.EncodeLocation(site.Latitude, site.Longitude)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}

	if obs.ObservedAt < 0 {
		return fmt.Errorf("upstream returned negative observation time %d", obs.ObservedAt)
	}

	request := models.UpdateMeasurementRequest{
		Latitude:   key.Latitude,
		Longitude:  key.Longitude,
		DNI:        scaleToHundredths(obs.DNI),
		GHI:        scaleToHundredths(obs.GHI),
		LatTilt:    scaleToHundredths(obs.LatTilt),
		ObservedAt: uint64(obs.ObservedAt),
	}

	if s.dryRun {
		preview := request.Measurement()
		s.logger.Info(ctx, "[CYCLE_DRY_RUN] Submission preview", logging.Fields{
			"site":        site.Name,
			"latitude":    request.Latitude,
			"longitude":   request.Longitude,
			"dni":         request.DNI,
			"ghi":         request.GHI,
			"lat_tilt":    request.LatTilt,
			"dni_wm2":     preview.DNIDecimal(),
			"ghi_wm2":     preview.GHIDecimal(),
			"observed_at": request.ObservedAt,
		})
		result.Skipped++
		return nil
	}

	if err := s.submitWithRetry(ctx, site.Name, request); err != nil {
		return err
	}

	result.Submitted++
	return nil
}

// submitWithRetry retries transient submission failures with linear backoff.
// Terminal rejections (bad credentials, future timestamps) surface at once;
// retrying them without corrected input cannot succeed.
func (s *IngestionService) submitWithRetry(ctx context.Context, siteName string, request models.UpdateMeasurementRequest) error {
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.metrics.IngestionRetriesTotal.Inc()
			backoff := time.Duration(attempt) * s.retryBackoff
			s.logger.Warn(ctx, "[CYCLE_RETRY] Retrying submission", logging.Fields{
				"site":    siteName,
				"attempt": attempt,
				"backoff": backoff.String(),
			})
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = s.registry.SubmitMeasurement(ctx, request)
		if lastErr == nil {
			s.metrics.RecordSubmission("success")
			return nil
		}

		if !isRetryable(lastErr) {
			s.metrics.RecordSubmission("terminal")
			return fmt.Errorf("terminal rejection: %w", lastErr)
		}
	}

	s.metrics.RecordSubmission("exhausted")
	return fmt.Errorf("retries exhausted after %d attempts: %w", s.maxRetries+1, lastErr)
}

// isRetryable treats network-level failures as transient and defers to the
// rejection status otherwise.
func isRetryable(err error) bool {
	var submissionErr *agent.SubmissionError
	if errors.As(err, &submissionErr) {
		return submissionErr.Temporary()
	}
	return true
}

// scaleToHundredths converts a decimal reading to hundredths, truncating.
// Negative upstream readings (sensor error markers) clamp to zero.
func scaleToHundredths(v float64) uint64 {
	if v <= 0 {
		return 0
	}
	return uint64(v * 100)
}
