package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"solar-registry/pkg/logging"
)

// Observation is one point sample as the upstream reports it: decimal
// degrees for coordinates, W/m^2 floats for irradiance, Unix seconds for
// the observation time.
type Observation struct {
	Site       string  `json:"site"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DNI        float64 `json:"dni"`
	GHI        float64 `json:"ghi"`
	LatTilt    float64 `json:"lat_tilt"`
	ObservedAt int64   `json:"observed_at"`
}

// Client fetches irradiance observations from the upstream solar resource API
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logging.StructuredLogger
}

// NewClient creates an upstream API client
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *logging.StructuredLogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: logger,
	}
}

// FetchIrradiance returns the current observation for one coordinate
func (c *Client) FetchIrradiance(ctx context.Context, latDegrees, lonDegrees float64) (*Observation, error) {
	u, err := url.Parse(c.baseURL + "/v1/irradiance")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("lat", strconv.FormatFloat(latDegrees, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lonDegrees, 'f', -1, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch irradiance: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var obs Observation
	if err := json.Unmarshal(body, &obs); err != nil {
		return nil, fmt.Errorf("failed to decode observation: %w", err)
	}

	c.logger.Debug(ctx, "[SOURCE_FETCH] Observation received", logging.Fields{
		"site":        obs.Site,
		"latitude":    obs.Latitude,
		"longitude":   obs.Longitude,
		"dni":         obs.DNI,
		"ghi":         obs.GHI,
		"observed_at": obs.ObservedAt,
	})

	return &obs, nil
}
