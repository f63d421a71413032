package main

import (
	"context"
	"flag"
	"log"

	"flightprice/config"
	"flightprice/db"
	"flightprice/logging"
	"flightprice/pipeline"
	"flightprice/registry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Path)
	defer logger.Sync()

	if err := db.InitDB(cfg.Database.Path); err != nil {
		logger.Fatalw("Failed to initialize database", "error", err)
	}
	defer db.Close()

	var client registry.Client
	if cfg.Registry.URI != "" {
		c, err := registry.NewHTTPClient(cfg.Registry.URI)
		if err != nil {
			logger.Fatalw("Invalid registry URI", "uri", cfg.Registry.URI, "error", err)
		}
		client = c
	} else {
		logger.Warn("No registry configured, keeping artifact local only")
	}

	result, err := pipeline.Train(context.Background(), cfg, client, logger)
	if err != nil {
		logger.Fatalw("Training failed", "error", err)
	}

	logger.Infow("Training complete",
		"version", result.Version,
		"artifact", result.ArtifactPath,
		"r2", result.Metrics["r2_score"],
		"rmse", result.Metrics["rmse"],
		"mae", result.Metrics["mae"],
		"mape", result.Metrics["mape"])
}
