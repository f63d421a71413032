package main

import (
	"flag"
	"log"
	"time"

	"flightprice/config"
	"flightprice/db"
	"flightprice/logging"
	"flightprice/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	hours := flag.Int("hours", 24, "window of logged predictions to compare")
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

	since := time.Now().Add(-time.Duration(*hours) * time.Hour)
	records, err := db.RecentPredictions(since)
	if err != nil {
		logger.Fatalw("Failed to read logged predictions", "error", err)
	}
	features := make([]map[string]interface{}, len(records))
	for i, record := range records {
		features[i] = record.Features
	}
	current := monitoring.DatasetFromRecords(features)

	detector, err := monitoring.NewDetector(cfg.Drift.ReferencePath, cfg.Drift.MinSamples)
	if err != nil {
		logger.Fatalw("Failed to load drift reference", "path", cfg.Drift.ReferencePath, "error", err)
	}

	report, err := detector.Detect(current)
	if err != nil {
		logger.Fatalw("Drift detection failed", "window_hours", *hours, "samples", len(records), "error", err)
	}

	path, err := report.Save(cfg.Drift.ReportsDir)
	if err != nil {
		logger.Fatalw("Failed to write drift report", "error", err)
	}

	if report.DatasetDrift {
		logger.Warnw("Dataset drift detected", "drift_share", report.DriftShare, "report", path)
	} else {
		logger.Infow("No dataset drift", "drift_share", report.DriftShare, "report", path)
	}
}
