package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type QueryLogEntry struct {
	QueryID      string    `json:"query_id"`
	Endpoint     string    `json:"endpoint"`
	Question     string    `json:"question"`
	GeneratedSQL string    `json:"generated_sql,omitempty"`
	RowCount     int       `json:"row_count"`
	Outcome      string    `json:"outcome"`
	ErrorMessage string    `json:"error_message,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

type QueryLogRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewQueryLogRepository(db *sql.DB, dialect Dialect) *QueryLogRepository {
	return &QueryLogRepository{db: db, dialect: dialect}
}

// Record stores one answered question. A missing id or timestamp is filled in.
func (r *QueryLogRepository) Record(ctx context.Context, entry QueryLogEntry) (QueryLogEntry, error) {
	if entry.QueryID == "" {
		entry.QueryID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
INSERT INTO query_log (query_id, endpoint, question, generated_sql, row_count, outcome, error_message, duration_ms, created_at_unix_ms)
VALUES (` + r.dialect.Placeholders(0, 9) + `)`
	_, err := r.db.ExecContext(ctx, query,
		entry.QueryID,
		entry.Endpoint,
		entry.Question,
		entry.GeneratedSQL,
		entry.RowCount,
		entry.Outcome,
		entry.ErrorMessage,
		entry.DurationMs,
		entry.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return QueryLogEntry{}, fmt.Errorf("record query log: %w", err)
	}
	return entry, nil
}

// ListRecent returns the newest entries first.
func (r *QueryLogRepository) ListRecent(ctx context.Context, limit int) ([]QueryLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
SELECT query_id, endpoint, question, generated_sql, row_count, outcome, error_message, duration_ms, created_at_unix_ms
FROM query_log
ORDER BY created_at_unix_ms DESC
LIMIT ` + r.dialect.Placeholder(1)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list query log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]QueryLogEntry, 0, limit)
	for rows.Next() {
		var entry QueryLogEntry
		var generatedSQL, errorMessage sql.NullString
		var createdAtUnixMs int64
		if err := rows.Scan(
			&entry.QueryID,
			&entry.Endpoint,
			&entry.Question,
			&generatedSQL,
			&entry.RowCount,
			&entry.Outcome,
			&errorMessage,
			&entry.DurationMs,
			&createdAtUnixMs,
		); err != nil {
			return nil, fmt.Errorf("scan query log: %w", err)
		}
		entry.GeneratedSQL = generatedSQL.String
		entry.ErrorMessage = errorMessage.String
		entry.CreatedAt = time.UnixMilli(createdAtUnixMs).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}
