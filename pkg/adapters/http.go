// Package adapters provides the connectors that retrieve KPI snapshots from
// a metrics API and normalize them into a Snapshot.
//
// HTTPAdapter is the only source today: a single GET against a configured
// URL with an optional bearer token.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 1 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.Code)
}

// HTTPAdapter fetches a KPI snapshot with a single GET request.
type HTTPAdapter struct {
	// URL is the metrics endpoint, e.g. https://api.example.com/v1/metrics.
	URL string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// HTTPClient is optional; if nil a default client with timeout is used.
	HTTPClient *http.Client
}

func (h *HTTPAdapter) Name() string { return "http" }

// Fetch implements Adapter.
func (h *HTTPAdapter) Fetch(ctx context.Context) (*Result, error) {
	if h.URL == "" {
		return nil, errors.New("http adapter: URL is required")
	}

	cli := h.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if h.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.APIKey)
	}

	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	snapshot, err := DecodeSnapshot(body)
	if err != nil {
		return nil, err
	}
	return &Result{Snapshot: snapshot, Body: body}, nil
}
