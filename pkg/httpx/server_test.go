package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewServer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := NewServer(":8090", nil, logger)

	if server.server.Addr != ":8090" {
		t.Errorf("Addr = %q, want %q", server.server.Addr, ":8090")
	}
	if server.server.ReadHeaderTimeout != 10*time.Second {
		t.Errorf("ReadHeaderTimeout = %v, want 10s", server.server.ReadHeaderTimeout)
	}
	if server.server.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want 60s", server.server.IdleTimeout)
	}
	if NewServer(":8090", nil, nil).logger == nil {
		t.Error("nil logger should fall back to the default")
	}
}

func TestServer_StartStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := NewServer("localhost:0", http.NewServeMux(), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()
	time.Sleep(50 * time.Millisecond)

	if err := server.Stop(5 * time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Start() error = %v", err)
	}
}

func TestWriteJSON(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusAccepted, http.StatusNotFound} {
		w := httptest.NewRecorder()
		if err := WriteJSON(w, status, map[string]float64{"mrr": 42}); err != nil {
			t.Fatalf("WriteJSON() error = %v", err)
		}
		if w.Code != status {
			t.Errorf("status = %d, want %d", w.Code, status)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var got map[string]float64
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || got["mrr"] != 42 {
			t.Errorf("body = %s", w.Body.String())
		}
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusBadGateway, errors.New("HTTP error! status: 500"))

	var got ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusBadGateway || got.Error != "HTTP error! status: 500" {
		t.Errorf("got %d %+v", w.Code, got)
	}
}

func TestHealthHandlers(t *testing.T) {
	tests := []struct {
		name    string
		handler http.Handler
		code    int
		body    string
	}{
		{"plain", HealthHandler(), http.StatusOK, "OK"},
		{"check ok", HealthHandlerWithCheck(func() error { return nil }), http.StatusOK, "OK"},
		{"check failing", HealthHandlerWithCheck(func() error { return errors.New("last refresh failed") }),
			http.StatusServiceUnavailable, `{"error":"last refresh failed"}` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if w.Code != tt.code {
				t.Errorf("status = %d, want %d", w.Code, tt.code)
			}
			if w.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.body)
			}
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	for _, code := range []int{http.StatusOK, http.StatusNotFound, http.StatusInternalServerError} {
		buf.Reset()
		handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

		if w.Code != code {
			t.Errorf("status = %d, want %d", w.Code, code)
		}
		out := buf.String()
		for _, want := range []string{"HTTP request", "method=GET", "path=/api/dashboard", fmt.Sprintf("status=%d", code), "duration_ms"} {
			if !strings.Contains(out, want) {
				t.Errorf("log output missing %q: %s", want, out)
			}
		}
	}
}

func TestLoggingMiddleware_NilLogger(t *testing.T) {
	handler := LoggingMiddleware(nil)(HealthHandler())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}
