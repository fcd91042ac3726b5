package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edge-relay/internal/config"
	"edge-relay/internal/metrics"
)

// RegisterRoutes wires the operational endpoints and the catch-all relay
// route onto the Echo instance.
//
// Static routes match ahead of the catch-all, so /healthz, /relay/status and
// the metrics path shadow origin paths of the same name. Everything else,
// every method, every path, goes to the relay.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, relay *RelayHandler, health *HealthHandler, m *metrics.Metrics) {
	e.GET("/healthz", health.Healthz)
	e.GET("/relay/status", health.Status)

	if m != nil && cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	e.Any("/*", relay.Handle)
}
