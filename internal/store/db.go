package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// Open connects to the configured engine and verifies the connection. For
// SQLite the parent directory of the database file is created when missing.
func Open(ctx context.Context, cfg DBConfig) (*sql.DB, Dialect, error) {
	if cfg.DSN == "" {
		return nil, Dialect{}, fmt.Errorf("database dsn is required")
	}
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, Dialect{}, err
	}
	if dialect.Driver == DriverSQLite {
		if err := ensureSQLiteDir(cfg.DSN); err != nil {
			return nil, Dialect{}, err
		}
	}

	db, err := sql.Open(dialect.SQLDriverName, cfg.DSN)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("open %s db: %w", dialect.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, Dialect{}, fmt.Errorf("ping %s db: %w", dialect.Driver, err)
	}

	return db, dialect, nil
}

func ensureSQLiteDir(dsn string) error {
	if strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	path := dsn
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite directory: %w", err)
	}
	return nil
}
