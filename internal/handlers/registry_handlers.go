package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"solar-registry/internal/models"
	"solar-registry/internal/services"
	"solar-registry/pkg/logging"
	"solar-registry/pkg/metrics"
)

// RegistryHandler handles registry API endpoints
type RegistryHandler struct {
	registryService *services.RegistryService
	auth            *Authenticator
	logger          *logging.StructuredLogger
	metrics         *metrics.Collector
}

// NewRegistryHandler creates a new registry handler
func NewRegistryHandler(
	registryService *services.RegistryService,
	auth *Authenticator,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *RegistryHandler {
	return &RegistryHandler{
		registryService: registryService,
		auth:            auth,
		logger:          logger,
		metrics:         metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// RegistryResponse represents an initialized registry
type RegistryResponse struct {
	Owner          string    `json:"owner"`
	TotalLocations uint64    `json:"total_locations"`
	UpdateCount    uint64    `json:"update_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// UpdateAckResponse acknowledges an accepted measurement write
type UpdateAckResponse struct {
	Status     string `json:"status"`
	Latitude   uint64 `json:"latitude"`
	Longitude  uint64 `json:"longitude"`
	ObservedAt uint64 `json:"observed_at"`
}

// MeasurementResponse carries one stored measurement. The raw integers are
// authoritative; the *_degrees and *_units fields are truncated whole-unit
// conveniences.
type MeasurementResponse struct {
	Latitude         uint64 `json:"latitude"`
	Longitude        uint64 `json:"longitude"`
	LatitudeDegrees  uint64 `json:"latitude_degrees"`
	LongitudeDegrees uint64 `json:"longitude_degrees"`
	DNI              uint64 `json:"dni"`
	GHI              uint64 `json:"ghi"`
	LatTilt          uint64 `json:"lat_tilt"`
	DNIUnits         uint64 `json:"dni_units"`
	GHIUnits         uint64 `json:"ghi_units"`
	LatTiltUnits     uint64 `json:"lat_tilt_units"`
	LastUpdated      uint64 `json:"last_updated"`
}

// StatsResponse carries a registry's counters
type StatsResponse struct {
	Owner          string `json:"owner"`
	TotalLocations uint64 `json:"total_locations"`
	UpdateCount    uint64 `json:"update_count"`
}

// ExistsResponse answers a key presence query
type ExistsResponse struct {
	Latitude  uint64 `json:"latitude"`
	Longitude uint64 `json:"longitude"`
	Exists    bool   `json:"exists"`
}

// FreshResponse answers a freshness query
type FreshResponse struct {
	Latitude      uint64 `json:"latitude"`
	Longitude     uint64 `json:"longitude"`
	MaxAgeSeconds uint64 `json:"max_age_seconds"`
	Fresh         bool   `json:"fresh"`
}

// SuitableResponse answers a suitability query
type SuitableResponse struct {
	Latitude  uint64 `json:"latitude"`
	Longitude uint64 `json:"longitude"`
	MinDNI    uint64 `json:"min_dni"`
	Suitable  bool   `json:"suitable"`
}

// InitializeRegistry handles POST /api/registry/init
func (h *RegistryHandler) InitializeRegistry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/registry/init").Observe(duration.Seconds())
	}()

	owner, ok := h.auth.Authenticate(r)
	if !ok {
		h.sendError(w, r, "invalid or missing credentials", http.StatusUnauthorized)
		return
	}

	registry, err := h.registryService.Initialize(ctx, owner)
	if err != nil {
		h.sendStoreError(w, r, "/api/registry/init", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/registry/init", "POST", "201")
	h.sendJSON(w, RegistryResponse{
		Owner:          registry.Owner,
		TotalLocations: registry.TotalLocations,
		UpdateCount:    registry.UpdateCount,
		CreatedAt:      registry.CreatedAt,
	}, http.StatusCreated)
}

// UpdateMeasurement handles POST /api/registry/measurements
func (h *RegistryHandler) UpdateMeasurement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/registry/measurements").Observe(duration.Seconds())
	}()

	owner, ok := h.auth.Authenticate(r)
	if !ok {
		h.sendError(w, r, "invalid or missing credentials", http.StatusUnauthorized)
		return
	}

	var request models.UpdateMeasurementRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.sendError(w, r, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.registryService.Update(ctx, owner, request.Key(), request.Measurement()); err != nil {
		h.sendStoreError(w, r, "/api/registry/measurements", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/registry/measurements", "POST", "200")
	h.sendJSON(w, UpdateAckResponse{
		Status:     "stored",
		Latitude:   request.Latitude,
		Longitude:  request.Longitude,
		ObservedAt: request.ObservedAt,
	}, http.StatusOK)
}

// GetMeasurement handles GET /api/registry/{owner}/measurement
func (h *RegistryHandler) GetMeasurement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/registry/measurement").Observe(duration.Seconds())
	}()

	owner := mux.Vars(r)["owner"]
	key, ok := h.parseLocationKey(w, r)
	if !ok {
		return
	}

	measurement, err := h.registryService.Get(ctx, owner, key)
	if err != nil {
		h.sendStoreError(w, r, "/api/registry/measurement", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/registry/measurement", "GET", "200")
	h.sendJSON(w, MeasurementResponse{
		Latitude:         key.Latitude,
		Longitude:        key.Longitude,
		LatitudeDegrees:  models.MicrodegreesToDegrees(key.Latitude),
		LongitudeDegrees: models.MicrodegreesToDegrees(key.Longitude),
		DNI:              measurement.DNI,
		GHI:              measurement.GHI,
		LatTilt:          measurement.LatTilt,
		DNIUnits:         models.HundredthsToDecimal(measurement.DNI),
		GHIUnits:         models.HundredthsToDecimal(measurement.GHI),
		LatTiltUnits:     models.HundredthsToDecimal(measurement.LatTilt),
		LastUpdated:      measurement.LastUpdated,
	}, http.StatusOK)
}

// GetStats handles GET /api/registry/{owner}/stats
func (h *RegistryHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/registry/stats").Observe(duration.Seconds())
	}()

	owner := mux.Vars(r)["owner"]

	totalLocations, updateCount, err := h.registryService.Stats(ctx, owner)
	if err != nil {
		h.sendStoreError(w, r, "/api/registry/stats", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/registry/stats", "GET", "200")
	h.sendJSON(w, StatsResponse{
		Owner:          owner,
		TotalLocations: totalLocations,
		UpdateCount:    updateCount,
	}, http.StatusOK)
}

// CheckExists handles GET /api/registry/{owner}/measurement/exists
func (h *RegistryHandler) CheckExists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner := mux.Vars(r)["owner"]
	key, ok := h.parseLocationKey(w, r)
	if !ok {
		return
	}

	exists := h.registryService.Exists(ctx, owner, key)

	h.metrics.RecordAPIRequest("/api/registry/measurement/exists", "GET", "200")
	h.sendJSON(w, ExistsResponse{
		Latitude:  key.Latitude,
		Longitude: key.Longitude,
		Exists:    exists,
	}, http.StatusOK)
}

// CheckFresh handles GET /api/registry/{owner}/measurement/fresh
func (h *RegistryHandler) CheckFresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner := mux.Vars(r)["owner"]
	key, ok := h.parseLocationKey(w, r)
	if !ok {
		return
	}

	maxAge, err := strconv.ParseUint(r.URL.Query().Get("max_age_seconds"), 10, 64)
	if err != nil {
		h.sendError(w, r, "invalid max_age_seconds, expected unsigned integer", http.StatusBadRequest)
		return
	}

	fresh := h.registryService.IsFresh(ctx, owner, key, maxAge)

	h.metrics.RecordAPIRequest("/api/registry/measurement/fresh", "GET", "200")
	h.sendJSON(w, FreshResponse{
		Latitude:      key.Latitude,
		Longitude:     key.Longitude,
		MaxAgeSeconds: maxAge,
		Fresh:         fresh,
	}, http.StatusOK)
}

// CheckSuitable handles GET /api/registry/{owner}/measurement/suitable
func (h *RegistryHandler) CheckSuitable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner := mux.Vars(r)["owner"]
	key, ok := h.parseLocationKey(w, r)
	if !ok {
		return
	}

	minDNI, err := strconv.ParseUint(r.URL.Query().Get("min_dni"), 10, 64)
	if err != nil {
		h.sendError(w, r, "invalid min_dni, expected unsigned integer", http.StatusBadRequest)
		return
	}

	suitable := h.registryService.IsSuitable(ctx, owner, key, minDNI)

	h.metrics.RecordAPIRequest("/api/registry/measurement/suitable", "GET", "200")
	h.sendJSON(w, SuitableResponse{
		Latitude:  key.Latitude,
		Longitude: key.Longitude,
		MinDNI:    minDNI,
		Suitable:  suitable,
	}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *RegistryHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.registryService.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK_ERROR] Backing store unreachable", logging.Fields{}, err)
		h.sendJSON(w, map[string]string{
			"status":    "degraded",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}, http.StatusServiceUnavailable)
		return
	}

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// parseLocationKey reads the latitude/longitude query parameters
func (h *RegistryHandler) parseLocationKey(w http.ResponseWriter, r *http.Request) (models.LocationKey, bool) {
	latitude, err := strconv.ParseUint(r.URL.Query().Get("latitude"), 10, 64)
	if err != nil {
		h.sendError(w, r, "invalid latitude, expected unsigned microdegrees", http.StatusBadRequest)
		return models.LocationKey{}, false
	}

	longitude, err := strconv.ParseUint(r.URL.Query().Get("longitude"), 10, 64)
	if err != nil {
		h.sendError(w, r, "invalid longitude, expected unsigned microdegrees", http.StatusBadRequest)
		return models.LocationKey{}, false
	}

	return models.LocationKey{Latitude: latitude, Longitude: longitude}, true
}

// sendStoreError maps store rejections onto HTTP statuses
func (h *RegistryHandler) sendStoreError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	switch {
	case models.IsAlreadyInitialized(err):
		h.sendError(w, r, err.Error(), http.StatusConflict)
	case models.IsNotInitialized(err):
		h.sendError(w, r, err.Error(), http.StatusNotFound)
	case models.IsNotAuthorized(err):
		h.sendError(w, r, err.Error(), http.StatusForbidden)
	case models.IsLocationNotFound(err):
		h.sendError(w, r, err.Error(), http.StatusNotFound)
	case models.IsStaleOrFutureData(err):
		h.sendError(w, r, err.Error(), http.StatusUnprocessableEntity)
	case models.IsValidation(err):
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error(r.Context(), "[API_STORE_ERROR] Registry operation failed", logging.Fields{
			"endpoint": endpoint,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, "registry operation failed", http.StatusInternalServerError)
	}
}

// sendJSON sends a JSON response
func (h *RegistryHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *RegistryHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RequestIDMiddleware tags every request with an ID that follows it through
// the logs and comes back in the X-Request-ID response header.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RegisterRoutes registers all registry API routes
func (h *RegistryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/registry/init", h.InitializeRegistry).Methods("POST")
	router.HandleFunc("/api/registry/measurements", h.UpdateMeasurement).Methods("POST")
	router.HandleFunc("/api/registry/{owner}/measurement", h.GetMeasurement).Methods("GET")
	router.HandleFunc("/api/registry/{owner}/measurement/exists", h.CheckExists).Methods("GET")
	router.HandleFunc("/api/registry/{owner}/measurement/fresh", h.CheckFresh).Methods("GET")
	router.HandleFunc("/api/registry/{owner}/measurement/suitable", h.CheckSuitable).Methods("GET")
	router.HandleFunc("/api/registry/{owner}/stats", h.GetStats).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
