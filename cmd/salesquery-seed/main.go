package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/salesquery/salesquery/internal/bootstrap"
	"github.com/salesquery/salesquery/internal/config"
	"github.com/salesquery/salesquery/internal/demo/seed"
	"github.com/salesquery/salesquery/internal/observability"
	"github.com/salesquery/salesquery/internal/storage"
)

func main() {
	cfg, err := config.LoadFromEnv("salesquery-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stderr)

	seedCfg, err := seed.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		logger.Error("failed to load seed config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var objectStore storage.ObjectStore
	if seedCfg.ObjectKey != "" {
		objectStore, err = bootstrap.OpenObjectStore(ctx, cfg)
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
	}

	service, err := seed.NewService(seedCfg, logger, objectStore, nil)
	if err != nil {
		logger.Error("failed to initialize seeder", slog.Any("error", err))
		os.Exit(1)
	}
	result, err := service.Run(ctx)
	if err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(result)
}
