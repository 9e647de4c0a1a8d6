// Package router configures the kpiboard HTTP API.
//
// Routes configured:
//   - GET /healthz - Health check (503 while the last refresh failed)
//   - GET /metrics - Prometheus metrics
//   - GET /api/dashboard - Current view state; X-Kpiboard-Stale is set when the
//     values came from the response cache
//   - GET /api/history - Retained hourly MRR samples
//   - GET /api/settings - Stored settings with the API key masked
//   - POST /api/settings - Validate, save and apply new settings
//   - POST /api/refresh - Refresh now (the manual retry of the dashboard)
package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/kpiboard/pkg/history"
	"github.com/HatiCode/kpiboard/pkg/httpx"
	"github.com/HatiCode/kpiboard/pkg/settings"
	"github.com/HatiCode/kpiboard/pkg/view"
)

// StaleHeader marks responses built from cached values.
const StaleHeader = "X-Kpiboard-Stale"

// Dashboard is what the HTTP API needs from the running dashboard.
type Dashboard interface {
	State() view.Snapshot
	History(ctx context.Context) (history.Series, error)
	Settings() settings.Settings
	UpdateSettings(ctx context.Context, s settings.Settings) (settings.Settings, error)
	Refresh(ctx context.Context) error
	Healthy() error
}

// SetupRoutes configures HTTP endpoints for kpiboard. A nil gatherer serves
// the default Prometheus registry.
func SetupRoutes(d Dashboard, gatherer prometheus.Gatherer, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/healthz", httpx.HealthHandlerWithCheck(d.Healthy))

	if gatherer == nil {
		mux.Handle("/metrics", promhttp.Handler())
	} else {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /api/dashboard", handleGetDashboard(d))
	mux.HandleFunc("GET /api/history", handleGetHistory(d, logger))
	mux.HandleFunc("GET /api/settings", handleGetSettings(d))
	mux.HandleFunc("POST /api/settings", handlePostSettings(d, logger))
	mux.HandleFunc("POST /api/refresh", handleRefresh(d, logger))

	return mux
}

func writeState(w http.ResponseWriter, status int, snap view.Snapshot) {
	if snap.Stale {
		w.Header().Set(StaleHeader, "true")
	}
	httpx.WriteJSON(w, status, snap)
}

func handleGetDashboard(d Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeState(w, http.StatusOK, d.State())
	}
}

func handleGetHistory(d Dashboard, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		series, err := d.History(r.Context())
		if err != nil {
			// The series is still usable; report what could be read.
			logger.Warn("history read degraded", "error", err)
		}
		if series == nil {
			series = history.Series{}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"samples": series,
		})
	}
}

func handleGetSettings(d Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, d.Settings().Masked())
	}
}

func handlePostSettings(d Dashboard, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settings.Settings
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid settings body")
			return
		}

		// A masked key echoed back from GET /api/settings keeps the stored one.
		if strings.HasPrefix(req.APIKey, "********") {
			req.APIKey = d.Settings().APIKey
		}

		saved, err := d.UpdateSettings(r.Context(), req)
		switch {
		case errors.Is(err, settings.ErrURLRequired), errors.Is(err, settings.ErrInvalidURL):
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		case err != nil:
			logger.Error("failed to save settings", "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		httpx.WriteJSON(w, http.StatusOK, saved.Masked())
	}
}

func handleRefresh(d Dashboard, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Refresh(r.Context()); err != nil {
			logger.Warn("manual refresh failed", "error", err)
			httpx.WriteError(w, http.StatusBadGateway, err)
			return
		}
		writeState(w, http.StatusOK, d.State())
	}
}
