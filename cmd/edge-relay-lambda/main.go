// Runs the relay as an AWS Lambda function behind a Function URL, for
// deployments where the edge placement is serverless rather than a
// long-lived listener.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/alecthomas/kong"
	"github.com/aws/aws-lambda-go/lambdaurl"

	"edge-relay/internal/client"
	"edge-relay/internal/config"
	"edge-relay/internal/handler"
	"edge-relay/internal/logging"
	"edge-relay/internal/relay"
	"edge-relay/internal/server"
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
		kong.Name("edge-relay-lambda"),
		kong.Description("Single-origin relay for an internal HTTP service, packaged for AWS Lambda."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	cfg, err := config.Load(&cli)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	logger := logging.New(cfg)
	cfg.WarnPermissions(logger)
	warnRegionDrift(cfg, logger)

	oc := client.NewOriginClient(cfg, logger, nil)
	fw, err := relay.NewForwarder(oc, cfg, logger)
	if err != nil {
		logger.Error("init forwarder", "err", err)
		os.Exit(1)
	}

	// Function URLs cannot carry upgraded connections, so no WebSocket
	// relayer is wired and upgrade requests forward as plain HTTP. Metrics
	// are skipped too: there is no long-lived process to scrape.
	rh := handler.NewRelayHandler(fw, nil, nil, logger)
	health := handler.NewHealthHandler(cfg, handler.Version(version))

	e := server.New(cfg, logger, nil)
	handler.RegisterRoutes(e, cfg, rh, health, nil)

	logger.Info("starting lambda handler", "origin", cfg.Origin.URL)
	lambdaurl.Start(e)
}

// warnRegionDrift flags a function running outside its configured regions.
func warnRegionDrift(cfg *config.Config, logger *slog.Logger) {
	region := os.Getenv("AWS_REGION")
	if region == "" || len(cfg.Edge.Regions) == 0 {
		return
	}
	if !slices.Contains(cfg.Edge.Regions, region) {
		logger.Warn("running outside configured regions",
			"region", region,
			"regions", cfg.Edge.Regions,
		)
	}
}
