package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"flightprice/config"
	"flightprice/logging"
	"flightprice/pipeline"
	"flightprice/registry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	modelName := flag.String("model-name", "", "registered model name (defaults to config)")
	version := flag.String("version", "", "model version to validate (required)")
	autoPromote := flag.Bool("auto-promote", false, "promote to the default alias when all gates pass")
	flag.Parse()

	if *version == "" {
		fmt.Fprintln(os.Stderr, "Usage: validate --version N [--model-name NAME] [--auto-promote]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Path)
	defer logger.Sync()

	name := *modelName
	if name == "" {
		name = cfg.Registry.ModelName
	}
	if cfg.Registry.URI == "" {
		logger.Fatal("No registry configured, nothing to validate against")
	}
	client, err := registry.NewHTTPClient(cfg.Registry.URI)
	if err != nil {
		logger.Fatalw("Invalid registry URI", "uri", cfg.Registry.URI, "error", err)
	}

	ctx := context.Background()
	result, err := pipeline.Validate(ctx, client, name, *version, cfg.Evaluation.Thresholds)
	if err != nil {
		logger.Fatalw("Validation failed", "model", name, "version", *version, "error", err)
	}

	for _, check := range result.Checks {
		logger.Infow("Gate evaluated", "metric", check.Metric,
			"value", check.Value, "threshold", check.Threshold, "passed", check.Passed)
	}

	if !result.Passed {
		logger.Warnw("Model rejected", "model", name, "version", *version, "reasons", result.Reasons)
		os.Exit(1)
	}
	logger.Infow("Model passed all gates", "model", name, "version", *version)

	if *autoPromote {
		if err := pipeline.Promote(ctx, client, name, *version, cfg.Registry.DefaultAlias, logger); err != nil {
			logger.Fatalw("Auto-promotion failed", "error", err)
		}
	}
}
