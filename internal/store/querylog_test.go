package store

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestRecordQueryLogUsesDialectPlaceholders(t *testing.T) {
	db, mock := newSQLMock(t)
	dialect, _ := DialectFor(DriverPostgres)
	repo := NewQueryLogRepository(db, dialect)
	createdAt := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`
INSERT INTO query_log (query_id, endpoint, question, generated_sql, row_count, outcome, error_message, duration_ms, created_at_unix_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)).
		WithArgs("q-1", "ownmodel", "total sales?", "SELECT 1", 1, "answered", "", int64(42), createdAt.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry, err := repo.Record(context.Background(), QueryLogEntry{
		QueryID:      "q-1",
		Endpoint:     "ownmodel",
		Question:     "total sales?",
		GeneratedSQL: "SELECT 1",
		RowCount:     1,
		Outcome:      "answered",
		DurationMs:   42,
		CreatedAt:    createdAt,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if entry.QueryID != "q-1" {
		t.Fatalf("QueryID = %q", entry.QueryID)
	}
	assertSQLMock(t, mock)
}

func TestRecordQueryLogFillsIDAndTimestamp(t *testing.T) {
	db, mock := newSQLMock(t)
	dialect, _ := DialectFor(DriverSQLite)
	repo := NewQueryLogRepository(db, dialect)

	mock.ExpectExec(regexp.QuoteMeta(`VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry, err := repo.Record(context.Background(), QueryLogEntry{Endpoint: "pandasai", Question: "q", Outcome: "answered"})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(entry.QueryID) != 36 {
		t.Fatalf("QueryID = %q, want uuid", entry.QueryID)
	}
	if entry.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be set")
	}
	assertSQLMock(t, mock)
}

func TestListRecentQueryLogOnSQLite(t *testing.T) {
	ctx := context.Background()
	db, dialect, err := Open(ctx, DBConfig{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "log.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.ExecContext(ctx, `
CREATE TABLE query_log (
    query_id VARCHAR(36) NOT NULL PRIMARY KEY,
    endpoint VARCHAR(32) NOT NULL,
    question TEXT NOT NULL,
    generated_sql TEXT,
    row_count INTEGER NOT NULL DEFAULT 0,
    outcome VARCHAR(32) NOT NULL,
    error_message TEXT,
    duration_ms BIGINT NOT NULL DEFAULT 0,
    created_at_unix_ms BIGINT NOT NULL
)`); err != nil {
		t.Fatalf("create query_log error = %v", err)
	}

	repo := NewQueryLogRepository(db, dialect)
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i, question := range []string{"first", "second", "third"} {
		if _, err := repo.Record(ctx, QueryLogEntry{
			Endpoint:  "ownmodel",
			Question:  question,
			Outcome:   "answered",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	entries, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d", len(entries))
	}
	if entries[0].Question != "third" || entries[1].Question != "second" {
		t.Fatalf("unexpected order: %+v", entries)
	}
	if !entries[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("CreatedAt = %v", entries[0].CreatedAt)
	}
}
