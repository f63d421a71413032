package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"flightprice/config"
	"flightprice/db"
	qhttp "flightprice/http"
	"flightprice/logging"
	"flightprice/registry"
)

func main() {
	// 1. Load config
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Path)
	defer logger.Sync()

	// 2. Initialize database
	if err := db.InitDB(cfg.Database.Path); err != nil {
		logger.Fatalw("Failed to initialize database", "error", err)
	}
	defer db.Close()
	logger.Infow("Database initialized", "path", cfg.Database.Path)

	// 3. Load the model: registry alias first, local artifact fallback
	var client registry.Client
	if cfg.Registry.URI != "" {
		c, err := registry.NewHTTPClient(cfg.Registry.URI)
		if err != nil {
			logger.Fatalw("Invalid registry URI", "uri", cfg.Registry.URI, "error", err)
		}
		client = c
	}
	api := qhttp.NewAPI(client, cfg.Registry.ModelName, cfg.Registry.DefaultAlias, cfg.Model.LocalPath, logger)
	if err := api.Initialize(context.Background()); err != nil {
		logger.Fatalw("Failed to load model", "error", err)
	}

	// 4. Watch the local artifact for retrained replacements
	stopWatcher, err := api.WatchArtifact(logger)
	if err != nil {
		logger.Warnw("Artifact watcher unavailable", "error", err)
	} else {
		defer stopWatcher()
	}

	// 5. Start HTTP server
	serverConfig := qhttp.DefaultServerConfig()
	serverConfig.Port = cfg.Http.Port
	server := qhttp.NewServer(serverConfig, api)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("HTTP server failed", "error", err)
		}
	}()

	// 6. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	if err := server.Stop(); err != nil {
		logger.Warnw("Server forced to shutdown", "error", err)
	}

	logger.Info("Exiting")
}
