package nl2sql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/salesquery/salesquery/internal/observability"
	"github.com/salesquery/salesquery/internal/query"
	"github.com/salesquery/salesquery/internal/sales"
	"github.com/salesquery/salesquery/internal/sqlguard"
)

// DataframeAgent answers a question in one model round trip: the model
// writes DuckDB SQL over the Parquet snapshot and the result is returned as
// is, without narration.
type DataframeAgent struct {
	model       Model
	engine      query.Engine
	snapshotKey string
	rowLimit    int
	logger      *slog.Logger
}

func NewDataframeAgent(model Model, engine query.Engine, snapshotKey string, rowLimit int, logger *slog.Logger) *DataframeAgent {
	if rowLimit <= 0 {
		rowLimit = DefaultResultRowLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DataframeAgent{model: model, engine: engine, snapshotKey: snapshotKey, rowLimit: rowLimit, logger: logger}
}

func (a *DataframeAgent) Chat(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	reply, err := generate(ctx, a.model, "dataframe_sql", SQLPrompt(SQLSystemPrompt("DuckDB"), question))
	if err != nil {
		return "", err
	}
	sqlText := sqlguard.Clean(reply)
	if err := sqlguard.Validate(sqlText); err != nil {
		observability.IncrementSQLRejection(sqlguard.Reason(err))
		a.logger.WarnContext(ctx, "rejected dataframe sql", slog.String("sql", sqlText), slog.String("error", err.Error()))
		return "", fmt.Errorf("generated sql rejected: %w", err)
	}

	result, err := a.engine.Execute(ctx, query.Request{
		SQL:      sqlText,
		RowLimit: a.rowLimit,
		Files:    []query.TableFile{{TableName: sales.TableName, ObjectKey: a.snapshotKey}},
	})
	if err != nil {
		return "", fmt.Errorf("run dataframe query: %w", err)
	}
	a.logger.DebugContext(ctx, "dataframe query",
		slog.String("sql", sqlText),
		slog.Int("rows", len(result.Rows)),
		slog.Int64("scanned_bytes", result.ScannedBytes),
	)
	return RenderResult(result.Columns, result.Rows, a.rowLimit), nil
}
