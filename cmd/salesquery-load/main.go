package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/salesquery/salesquery/internal/bootstrap"
	"github.com/salesquery/salesquery/internal/config"
	"github.com/salesquery/salesquery/internal/dataset"
	"github.com/salesquery/salesquery/internal/observability"
	"github.com/salesquery/salesquery/internal/store"
)

func main() {
	csvPath := flag.String("csv", "", "CSV file to load; defaults to SALESQUERY_DATASET_CSV_PATH")
	objectKey := flag.String("object", "", "object store key of the CSV to load; wins over -csv")
	flag.Parse()

	cfg, err := config.LoadFromEnv("salesquery-load")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, dialect, err := bootstrap.OpenDatabase(ctx, cfg)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if _, err := bootstrap.MigrateIfEnabled(ctx, cfg, db, dialect); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}

	objectStore, err := bootstrap.OpenObjectStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}

	loader := &dataset.Loader{
		Orders:      store.NewOrdersRepository(db, dialect),
		ObjectStore: objectStore,
		Config: dataset.Config{
			CSVPath:      cfg.Dataset.CSVPath,
			CSVObjectKey: cfg.Dataset.CSVObjectKey,
			SnapshotName: cfg.Dataset.SnapshotName,
		},
		Logger: logger,
	}

	var summary dataset.Summary
	switch {
	case *objectKey != "":
		summary, err = loader.LoadObject(ctx, *objectKey)
	case *csvPath != "":
		summary, err = loader.LoadFile(ctx, *csvPath)
	default:
		summary, err = loader.Reload(ctx)
	}
	if err != nil {
		logger.Error("dataset load failed", slog.Any("error", err))
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(summary)
}
