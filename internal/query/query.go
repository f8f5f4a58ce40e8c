package query

import (
	"context"
	"time"
)

// TableFile binds an object to the view name it is exposed under.
// Objects ending in .csv are read as CSV, everything else as Parquet.
type TableFile struct {
	TableName     string
	ObjectKey     string
	FileSizeBytes int64
}

type Request struct {
	SQL      string
	RowLimit int
	Files    []TableFile
}

type Result struct {
	Columns      []string
	Rows         [][]any
	Truncated    bool
	ScannedFiles int
	ScannedBytes int64
	Duration     time.Duration
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
}
