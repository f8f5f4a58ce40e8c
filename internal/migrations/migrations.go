package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/salesquery/salesquery/internal/store"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

const migrationTable = "salesquery_schema_migrations"

// Scripts are named NNNNNN_name.(up|down)[.driver].sql; a driver-specific
// script wins over the generic one for that driver.
var migrationNamePattern = regexp.MustCompile(`^([0-9]+)_.+\.(up|down)(?:\.(sqlite|postgres|mysql))?\.sql$`)

type Runner struct {
	fsys    fs.FS
	dialect store.Dialect
}

func NewRunner(dialect store.Dialect) *Runner {
	return &Runner{fsys: embeddedFS, dialect: dialect}
}

type migration struct {
	Version int64
	UpSQL   string
	DownSQL string
}

func (r *Runner) Up(ctx context.Context, db *sql.DB, steps int) (int, error) {
	migrations, err := loadMigrations(r.fsys, r.dialect.Driver)
	if err != nil {
		return 0, err
	}
	if err := ensureMigrationTable(ctx, db); err != nil {
		return 0, err
	}
	applied, err := r.listAppliedVersions(ctx, db, "ASC")
	if err != nil {
		return 0, err
	}

	appliedSet := make(map[int64]struct{}, len(applied))
	for _, version := range applied {
		appliedSet[version] = struct{}{}
	}

	runCount := 0
	for _, item := range migrations {
		if _, ok := appliedSet[item.Version]; ok {
			continue
		}
		if steps > 0 && runCount >= steps {
			break
		}
		mark := `INSERT INTO ` + migrationTable + ` (version, applied_at_unix_ms) VALUES (` + r.dialect.Placeholders(0, 2) + `)`
		if err := runInTx(ctx, db, item.UpSQL, mark, item.Version, time.Now().UnixMilli()); err != nil {
			return runCount, fmt.Errorf("apply migration %d: %w", item.Version, err)
		}
		runCount++
	}
	return runCount, nil
}

func (r *Runner) Down(ctx context.Context, db *sql.DB, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}

	migrations, err := loadMigrations(r.fsys, r.dialect.Driver)
	if err != nil {
		return 0, err
	}
	if err := ensureMigrationTable(ctx, db); err != nil {
		return 0, err
	}
	applied, err := r.listAppliedVersions(ctx, db, "DESC")
	if err != nil {
		return 0, err
	}

	lookup := make(map[int64]migration, len(migrations))
	for _, item := range migrations {
		lookup[item.Version] = item
	}

	runCount := 0
	for _, version := range applied {
		if runCount >= steps {
			break
		}
		item, ok := lookup[version]
		if !ok {
			return runCount, fmt.Errorf("applied migration %d is missing from source", version)
		}
		unmark := `DELETE FROM ` + migrationTable + ` WHERE version = ` + r.dialect.Placeholder(1)
		if err := runInTx(ctx, db, item.DownSQL, unmark, item.Version); err != nil {
			return runCount, fmt.Errorf("rollback migration %d: %w", item.Version, err)
		}
		runCount++
	}
	return runCount, nil
}

func ensureMigrationTable(ctx context.Context, db *sql.DB) error {
	query := `
CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
	version BIGINT NOT NULL PRIMARY KEY,
	applied_at_unix_ms BIGINT NOT NULL
)`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return nil
}

func runInTx(ctx context.Context, db *sql.DB, script, bookkeeping string, args ...any) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("exec script: %w", err)
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, args...); err != nil {
		return fmt.Errorf("update %s: %w", migrationTable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Runner) listAppliedVersions(ctx context.Context, db *sql.DB, order string) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM `+migrationTable+` ORDER BY version `+order)
	if err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []int64
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return versions, nil
}

func loadMigrations(fsys fs.FS, driver string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, "sql")
	if err != nil {
		return nil, fmt.Errorf("read migration dir: %w", err)
	}

	type scripts struct {
		up, down             string
		upDriver, downDriver string
	}
	items := map[int64]*scripts{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base := path.Base(entry.Name())
		matches := migrationNamePattern.FindStringSubmatch(base)
		if len(matches) != 4 {
			continue
		}
		scriptDriver := matches[3]
		if scriptDriver != "" && scriptDriver != driver {
			continue
		}
		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version for %q: %w", base, err)
		}

		body, err := fs.ReadFile(fsys, path.Join("sql", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", entry.Name(), err)
		}

		item, ok := items[version]
		if !ok {
			item = &scripts{}
			items[version] = item
		}
		switch {
		case matches[2] == "up" && scriptDriver == "":
			item.up = string(body)
		case matches[2] == "up":
			item.upDriver = string(body)
		case scriptDriver == "":
			item.down = string(body)
		default:
			item.downDriver = string(body)
		}
	}

	versions := make([]int64, 0, len(items))
	for version := range items {
		versions = append(versions, version)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })

	migrations := make([]migration, 0, len(versions))
	for _, version := range versions {
		item := items[version]
		up := firstNonBlank(item.upDriver, item.up)
		down := firstNonBlank(item.downDriver, item.down)
		if up == "" {
			return nil, fmt.Errorf("migration %d missing up SQL", version)
		}
		if down == "" {
			return nil, fmt.Errorf("migration %d missing down SQL", version)
		}
		migrations = append(migrations, migration{Version: version, UpSQL: up, DownSQL: down})
	}
	return migrations, nil
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
