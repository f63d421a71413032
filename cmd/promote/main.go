package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"flightprice/config"
	"flightprice/logging"
	"flightprice/pipeline"
	"flightprice/registry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	modelName := flag.String("model-name", "", "registered model name (defaults to config)")
	version := flag.String("version", "", "model version to promote")
	alias := flag.String("alias", "", "target alias (defaults to config)")
	reloadApp := flag.Bool("reload-app", false, "notify the serving instance after promotion")
	apiURL := flag.String("api-url", "http://localhost:8000", "serving instance base URL")
	list := flag.Bool("list", false, "list registered versions and exit")
	flag.Parse()

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
	targetAlias := *alias
	if targetAlias == "" {
		targetAlias = cfg.Registry.DefaultAlias
	}
	if cfg.Registry.URI == "" {
		logger.Fatal("No registry configured")
	}
	client, err := registry.NewHTTPClient(cfg.Registry.URI)
	if err != nil {
		logger.Fatalw("Invalid registry URI", "uri", cfg.Registry.URI, "error", err)
	}

	ctx := context.Background()
	if *list {
		versions, err := client.SearchVersions(ctx, name)
		if err != nil {
			logger.Fatalw("Failed to list versions", "model", name, "error", err)
		}
		for _, v := range versions {
			aliases := ""
			if len(v.Aliases) > 0 {
				aliases = " [" + strings.Join(v.Aliases, ", ") + "]"
			}
			fmt.Printf("%s version %s (%s) created %s%s\n",
				v.Name, v.Version, v.Status, v.CreatedAt.Format("2006-01-02 15:04:05"), aliases)
		}
		return
	}

	if *version == "" {
		fmt.Fprintln(os.Stderr, "Usage: promote --version N [--alias ALIAS] [--reload-app] | --list")
		os.Exit(2)
	}

	if err := pipeline.Promote(ctx, client, name, *version, targetAlias, logger); err != nil {
		logger.Fatalw("Promotion failed", "model", name, "version", *version, "alias", targetAlias, "error", err)
	}

	if *reloadApp {
		pipeline.NotifyReload(*apiURL, targetAlias, logger)
	}
}
