// Package bootstrap opens the database and object store described by the
// service configuration. It is shared by the command binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/salesquery/salesquery/internal/config"
	"github.com/salesquery/salesquery/internal/migrations"
	"github.com/salesquery/salesquery/internal/storage"
	"github.com/salesquery/salesquery/internal/storage/local"
	s3store "github.com/salesquery/salesquery/internal/storage/s3"
	"github.com/salesquery/salesquery/internal/store"
)

func OpenDatabase(ctx context.Context, cfg config.Config) (*sql.DB, store.Dialect, error) {
	return store.Open(ctx, store.DBConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
}

// OpenObjectStore returns the local directory store or the S3 store depending
// on the configured backend.
func OpenObjectStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	switch cfg.ObjectStore.Backend {
	case config.ObjectStoreLocal, "":
		return local.New(cfg.ObjectStore.LocalDir)
	case config.ObjectStoreS3:
		return s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
	default:
		return nil, fmt.Errorf("unsupported object store backend %q", cfg.ObjectStore.Backend)
	}
}

// MigrateIfEnabled applies pending migrations when auto-migrate is on and
// returns how many ran.
func MigrateIfEnabled(ctx context.Context, cfg config.Config, db *sql.DB, dialect store.Dialect) (int, error) {
	if !cfg.Database.AutoMigrate {
		return 0, nil
	}
	applied, err := migrations.NewRunner(dialect).Up(ctx, db, 0)
	if err != nil {
		return applied, fmt.Errorf("apply migrations: %w", err)
	}
	return applied, nil
}
