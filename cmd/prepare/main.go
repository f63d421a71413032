package main

import (
	"flag"
	"log"

	"flightprice/config"
	"flightprice/logging"
	"flightprice/pipeline"
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

	if err := pipeline.Prepare(cfg, logger); err != nil {
		logger.Fatalw("Data preparation failed", "error", err)
	}
}
