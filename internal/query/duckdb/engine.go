package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/salesquery/salesquery/internal/query"
	"github.com/salesquery/salesquery/internal/sqlguard"
	"github.com/salesquery/salesquery/internal/storage"
)

// Engine runs SQL in an in-memory DuckDB over objects copied from the store.
type Engine struct {
	Store storage.ObjectStore
}

func NewEngine(store storage.ObjectStore) *Engine {
	return &Engine{Store: store}
}

type tableFiles struct {
	firstKey string
	paths    []string
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText := sqlguard.Clean(request.SQL)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if len(request.Files) == 0 {
		return query.Result{}, fmt.Errorf("no files to query")
	}
	if e.Store == nil {
		return query.Result{}, fmt.Errorf("object store is required")
	}

	start := time.Now()
	workDir, err := os.MkdirTemp("", "salesquery-df-")
	if err != nil {
		return query.Result{}, fmt.Errorf("create query temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	tables := map[string]*tableFiles{}
	var scannedBytes int64
	for index, file := range request.Files {
		reader, err := e.Store.Get(ctx, file.ObjectKey)
		if err != nil {
			return query.Result{}, fmt.Errorf("get object %q: %w", file.ObjectKey, err)
		}
		localPath := filepath.Join(workDir, fmt.Sprintf("%s_%d%s", sanitizeFileComponent(file.TableName), index, localExt(file.ObjectKey)))
		written, err := writeFile(localPath, reader)
		_ = reader.Close()
		if err != nil {
			return query.Result{}, fmt.Errorf("copy object %q: %w", file.ObjectKey, err)
		}

		entry, ok := tables[file.TableName]
		if !ok {
			entry = &tableFiles{firstKey: file.ObjectKey}
			tables[file.TableName] = entry
		}
		entry.paths = append(entry.paths, localPath)
		scannedBytes += written
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return query.Result{}, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()
	conn, err := db.Conn(ctx)
	if err != nil {
		return query.Result{}, fmt.Errorf("open duckdb connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entry := tables[name]
		loadSQL := fmt.Sprintf(`CREATE OR REPLACE TABLE %s AS SELECT * FROM %s`, quoteIdent(name), readerExpr(entry.firstKey, entry.paths))
		if _, err := conn.ExecContext(ctx, loadSQL); err != nil {
			return query.Result{}, fmt.Errorf("load table %q: %w", name, err)
		}
	}

	// Tables are materialized, so the caller's SQL never needs the filesystem.
	for _, setting := range []string{
		`SET enable_external_access = false`,
		`SET lock_configuration = true`,
	} {
		if _, err := conn.ExecContext(ctx, setting); err != nil {
			return query.Result{}, fmt.Errorf("restrict duckdb: %w", err)
		}
	}

	// One extra row tells us whether the limit cut the result.
	if request.RowLimit > 0 {
		sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, request.RowLimit+1)
	}

	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("query columns: %w", err)
	}

	result := query.Result{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if request.RowLimit > 0 && len(result.Rows) >= request.RowLimit {
			result.Truncated = true
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("scan row: %w", err)
		}
		for i, value := range values {
			values[i] = normalizeValue(value)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	result.ScannedFiles = len(request.Files)
	result.ScannedBytes = scannedBytes
	result.Duration = time.Since(start)
	return result, nil
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case *big.Int:
		// SUM over BIGINT comes back as HUGEINT.
		if typed.IsInt64() {
			return typed.Int64()
		}
		return typed.String()
	case time.Time:
		if typed.Hour() == 0 && typed.Minute() == 0 && typed.Second() == 0 && typed.Nanosecond() == 0 {
			return typed.Format("2006-01-02")
		}
		return typed.UTC().Format(time.RFC3339)
	case interface{ Float64() float64 }:
		return typed.Float64()
	default:
		return value
	}
}
