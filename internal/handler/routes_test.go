package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"edge-relay/internal/client"
	"edge-relay/internal/config"
	"edge-relay/internal/metrics"
	"edge-relay/internal/relay"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer origin.Close()

	cfg := &config.Config{
		Origin: config.OriginConfig{
			URL:             origin.URL,
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	oc := client.NewOriginClient(cfg, logger, nil)
	fw, err := relay.NewForwarder(oc, cfg, logger)
	if err != nil {
		t.Fatalf("NewForwarder: %v", err)
	}

	rh := NewRelayHandler(fw, nil, nil, logger)
	health := NewHealthHandler(cfg, "test")

	e := echo.New()
	RegisterRoutes(e, cfg, rh, health, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET /healthz answered locally", http.MethodGet, "/healthz", http.StatusOK},
		{"GET /relay/status answered locally", http.MethodGet, "/relay/status", http.StatusOK},
		{"GET / relayed", http.MethodGet, "/", http.StatusOK},
		{"GET arbitrary path relayed", http.MethodGet, "/any/depth/of/path?x=1", http.StatusOK},
		{"POST relayed", http.MethodPost, "/submit", http.StatusOK},
		{"DELETE relayed", http.MethodDelete, "/item/42", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterRoutes_ReservedPathsShadowOrigin(t *testing.T) {
	var originHits int
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		originHits++
		w.WriteHeader(http.StatusTeapot)
	}))
	defer origin.Close()

	cfg := &config.Config{
		Origin: config.OriginConfig{
			URL:             origin.URL,
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	oc := client.NewOriginClient(cfg, logger, nil)
	fw, err := relay.NewForwarder(oc, cfg, logger)
	if err != nil {
		t.Fatalf("NewForwarder: %v", err)
	}

	e := echo.New()
	RegisterRoutes(e, cfg, NewRelayHandler(fw, nil, nil, logger), NewHealthHandler(cfg, "test"), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if originHits != 0 {
		t.Errorf("origin was hit %d times for /healthz, want 0", originHits)
	}

	// POST to the same path is not a registered static route, so it falls
	// through to the relay.
	req = httptest.NewRequest(http.MethodPost, "/healthz", http.NoBody)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if originHits != 1 {
		t.Errorf("origin hits = %d, want 1 for POST /healthz", originHits)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestRegisterRoutes_MetricsEndpoint(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer origin.Close()

	cfg := &config.Config{
		Origin: config.OriginConfig{
			URL:             origin.URL,
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
	}
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	oc := client.NewOriginClient(cfg, logger, m)
	fw, err := relay.NewForwarder(oc, cfg, logger)
	if err != nil {
		t.Fatalf("NewForwarder: %v", err)
	}

	e := echo.New()
	RegisterRoutes(e, cfg, NewRelayHandler(fw, nil, m, logger), NewHealthHandler(cfg, "test"), m)

	// Relay one request so origin metrics have a sample.
	req := httptest.NewRequest(http.MethodGet, "/data", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "edge_relay_origin_responses_total") {
		t.Error("metrics exposition missing edge_relay_origin_responses_total")
	}
}
