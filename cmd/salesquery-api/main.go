package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salesquery/salesquery/internal/api"
	"github.com/salesquery/salesquery/internal/api/uistatic"
	"github.com/salesquery/salesquery/internal/auth"
	"github.com/salesquery/salesquery/internal/bootstrap"
	"github.com/salesquery/salesquery/internal/config"
	"github.com/salesquery/salesquery/internal/dataset"
	"github.com/salesquery/salesquery/internal/nl2sql"
	"github.com/salesquery/salesquery/internal/observability"
	duckdbengine "github.com/salesquery/salesquery/internal/query/duckdb"
	"github.com/salesquery/salesquery/internal/store"
)

func main() {
	cfg, err := config.LoadFromEnv("salesquery-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, dialect, err := bootstrap.OpenDatabase(ctx, cfg)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if applied, err := bootstrap.MigrateIfEnabled(ctx, cfg, db, dialect); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	} else if applied > 0 {
		logger.Info("applied migrations", slog.Int("count", applied))
	}

	objectStore, err := bootstrap.OpenObjectStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}

	orders := store.NewOrdersRepository(db, dialect)
	queryLog := store.NewQueryLogRepository(db, dialect)
	loader := &dataset.Loader{
		Orders:      orders,
		ObjectStore: objectStore,
		Config: dataset.Config{
			CSVPath:      cfg.Dataset.CSVPath,
			CSVObjectKey: cfg.Dataset.CSVObjectKey,
			SnapshotName: cfg.Dataset.SnapshotName,
		},
		Logger: logger,
	}
	snapshotKey, err := loader.SnapshotKey()
	if err != nil {
		logger.Error("invalid dataset snapshot name", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.Dataset.LoadOnStart {
		if _, err := loader.Reload(ctx); err != nil {
			logger.Error("initial dataset load failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
	if cfg.Dataset.ReloadInterval > 0 {
		if _, err := dataset.StartReloadSchedule(ctx, loader, cfg.Dataset.ReloadInterval, logger); err != nil {
			logger.Error("failed to schedule dataset reload", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("scheduled dataset reload", slog.Duration("interval", cfg.Dataset.ReloadInterval))
	}

	deps := api.Dependencies{
		Logger:   logger,
		QueryLog: queryLog,
		Orders:   orders,
		Reloader: loader,
		UI:       uistatic.Handler(),
		Readiness: api.CombineReadinessChecks(
			api.CheckDatabase(orders),
			api.CheckObjectStore(objectStore),
			api.CheckModelConfig(cfg),
		),
		DependencyTimeout: 2 * time.Second,
	}

	// The API still serves health, schema and reload without a model key;
	// question endpoints answer 501 until one is configured.
	model, err := nl2sql.NewModel(ctx, nl2sql.ModelConfig{
		Provider:    cfg.AI.Provider,
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		logger.Warn("language model unavailable", slog.Any("error", err))
	} else {
		logger.Info("language model configured", slog.String("model", model.Name()))
		deps.Answerer = nl2sql.NewService(model, orders, nl2sql.Options{
			Dialect:             dialect.Name,
			MaxParameterColumns: cfg.Pipeline.MaxParameterColumns,
			MaxDistinctValues:   cfg.Pipeline.MaxDistinctValues,
			ResultRowLimit:      cfg.Pipeline.ResultRowLimit,
			QueryTimeout:        cfg.Pipeline.QueryTimeout,
		}, logger)
		deps.Dataframe = nl2sql.NewDataframeAgent(model, duckdbengine.NewEngine(objectStore), snapshotKey, cfg.Pipeline.ResultRowLimit, logger)
	}

	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address), slog.String("database", dialect.Name))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
