package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"solar-registry/internal/models"
)

// SubmissionError carries the HTTP status of a rejected submission so the
// retry policy can tell transient rejections from terminal ones.
type SubmissionError struct {
	StatusCode int
	Body       string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission rejected: status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether a retry could plausibly succeed without
// changing the input. Authorization and future-timestamp rejections are
// terminal; overload and server faults are not.
func (e *SubmissionError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client submits encoded measurements to the registry server
type Client struct {
	baseURL string
	owner   string
	apiKey  string
	client  *http.Client
}

// NewClient creates a registry server client for the given owner credential
func NewClient(baseURL, owner, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		owner:   owner,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// EnsureInitialized creates the owner's registry if it does not exist yet.
// An already-initialized registry counts as success.
func (c *Client) EnsureInitialized(ctx context.Context) error {
	status, body, err := c.post(ctx, "/api/registry/init", nil)
	if err != nil {
		return fmt.Errorf("failed to initialize registry: %w", err)
	}
	if status == http.StatusCreated || status == http.StatusConflict {
		return nil
	}
	return &SubmissionError{StatusCode: status, Body: body}
}

// SubmitMeasurement posts one encoded measurement
func (c *Client) SubmitMeasurement(ctx context.Context, request models.UpdateMeasurementRequest) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	status, body, err := c.post(ctx, "/api/registry/measurements", payload)
	if err != nil {
		return fmt.Errorf("failed to submit measurement: %w", err)
	}
	if status == http.StatusOK || status == http.StatusCreated {
		return nil
	}
	return &SubmissionError{StatusCode: status, Body: body}
}

func (c *Client) post(ctx context.Context, path string, payload []byte) (int, string, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reqBody)
	if err != nil {
		return 0, "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Registry-Owner", c.owner)
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, strings.TrimSpace(string(body)), nil
}
