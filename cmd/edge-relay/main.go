package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"edge-relay/internal/client"
	"edge-relay/internal/config"
	"edge-relay/internal/handler"
	"edge-relay/internal/logging"
	"edge-relay/internal/metrics"
	"edge-relay/internal/relay"
	"edge-relay/internal/server"
	"edge-relay/internal/ws"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("edge-relay"),
		kong.Description("Single-origin relay for an internal HTTP service."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			logging.New,
			metrics.New,
			server.New,
			client.NewOriginClient,
			relay.NewForwarder,
			ws.NewRelayer,
			handler.NewRelayHandler,
			handler.NewHealthHandler,
		),
		fx.Invoke(handler.RegisterRoutes, warnConfigPermissions, announcePlacement, startServer),
	).Run()
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

func announcePlacement(cfg *config.Config, logger *slog.Logger) {
	if len(cfg.Edge.Regions) == 0 && cfg.Edge.Mode == "" {
		return
	}
	logger.Info("edge placement",
		"regions", cfg.Edge.Regions,
		"mode", cfg.Edge.Mode,
	)
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting server", "addr", addr, "origin", cfg.Origin.URL)
			go func() {
				if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
