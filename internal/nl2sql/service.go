package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/salesquery/salesquery/internal/observability"
	"github.com/salesquery/salesquery/internal/sqlguard"
	"github.com/salesquery/salesquery/internal/store"
)

const DefaultMaxDistinctValues = 100

var ErrEmptyQuestion = errors.New("question is required")

type Outcome string

const (
	OutcomeAnswered        Outcome = "answered"
	OutcomeNoData          Outcome = "no_data"
	OutcomeRejectedSQL     Outcome = "rejected_sql"
	OutcomeExecutionFailed Outcome = "execution_failed"
)

// OrdersReader is the read side of the orders table the pipeline needs.
type OrdersReader interface {
	DistinctValues(ctx context.Context, column string, limit int) ([]string, error)
	Query(ctx context.Context, sqlText string, rowLimit int) (store.QueryResult, error)
}

type Options struct {
	// Dialect names the SQL flavour the model must write, e.g. "SQLite".
	Dialect             string
	MaxParameterColumns int
	MaxDistinctValues   int
	ResultRowLimit      int
	QueryTimeout        time.Duration
}

type Answer struct {
	Text       string   `json:"result"`
	SQL        string   `json:"sql,omitempty"`
	Parameters []string `json:"parameters,omitempty"`
	RowCount   int      `json:"row_count"`
	Outcome    Outcome  `json:"outcome"`
}

// Service answers questions against the relational copy of the dataset.
type Service struct {
	model   Model
	orders  OrdersReader
	options Options
	logger  *slog.Logger
}

func NewService(model Model, orders OrdersReader, options Options, logger *slog.Logger) *Service {
	if options.Dialect == "" {
		options.Dialect = "SQLite"
	}
	if options.MaxParameterColumns <= 0 {
		options.MaxParameterColumns = DefaultMaxParameterColumns
	}
	if options.MaxDistinctValues <= 0 {
		options.MaxDistinctValues = DefaultMaxDistinctValues
	}
	if options.ResultRowLimit <= 0 {
		options.ResultRowLimit = DefaultResultRowLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{model: model, orders: orders, options: options, logger: logger}
}

// Answer runs the full pipeline: parameter detection, parameter enrichment,
// SQL generation, validation and execution, then narration. A rejected or
// failing query is narrated like an empty result; model and database lookup
// failures are returned as errors.
func (s *Service) Answer(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}

	parameterReply, err := generate(ctx, s.model, "parameters", ParameterCheckPrompt(question))
	if err != nil {
		return Answer{}, err
	}
	columns := ParseParameterResponse(parameterReply, s.options.MaxParameterColumns)
	s.logger.DebugContext(ctx, "parameter check", slog.Any("columns", columns))

	promptQuestion := question
	if len(columns) > 0 {
		params := make([]ParameterValues, 0, len(columns))
		for _, column := range columns {
			values, err := s.orders.DistinctValues(ctx, column, s.options.MaxDistinctValues)
			if err != nil {
				return Answer{}, fmt.Errorf("load distinct values for %s: %w", column, err)
			}
			params = append(params, ParameterValues{Column: column, Values: values})
		}
		promptQuestion = ParameterizedQuestion(question, params)
	}

	sqlReply, err := generate(ctx, s.model, "sql", SQLPrompt(SQLSystemPrompt(s.options.Dialect), promptQuestion))
	if err != nil {
		return Answer{}, err
	}
	sqlText := sqlguard.Clean(sqlReply)
	answer := Answer{SQL: sqlText, Parameters: columns}
	s.logger.DebugContext(ctx, "generated sql", slog.String("sql", sqlText))

	if err := sqlguard.Validate(sqlText); err != nil {
		reason := sqlguard.Reason(err)
		observability.IncrementSQLRejection(reason)
		s.logger.WarnContext(ctx, "rejected generated sql",
			slog.String("sql", sqlText),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		answer.Outcome = OutcomeRejectedSQL
		return s.narrateNoData(ctx, question, answer)
	}

	result, err := s.execute(ctx, sqlText)
	if err != nil {
		if ctx.Err() != nil {
			return Answer{}, fmt.Errorf("execute generated sql: %w", err)
		}
		s.logger.WarnContext(ctx, "generated sql failed",
			slog.String("sql", sqlText),
			slog.String("error", err.Error()),
		)
		answer.Outcome = OutcomeExecutionFailed
		return s.narrateNoData(ctx, question, answer)
	}
	answer.RowCount = len(result.Rows)
	if answer.RowCount == 0 {
		answer.Outcome = OutcomeNoData
		return s.narrateNoData(ctx, question, answer)
	}

	summary, err := generate(ctx, s.model, "summary", SummaryPrompt(question, RenderTable(result.Columns, result.Rows, s.options.ResultRowLimit)))
	if err != nil {
		return Answer{}, err
	}
	answer.Text = summary
	answer.Outcome = OutcomeAnswered
	return answer, nil
}

func (s *Service) execute(ctx context.Context, sqlText string) (store.QueryResult, error) {
	if s.options.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.QueryTimeout)
		defer cancel()
	}
	return s.orders.Query(ctx, sqlText, s.options.ResultRowLimit)
}

func (s *Service) narrateNoData(ctx context.Context, question string, answer Answer) (Answer, error) {
	text, err := generate(ctx, s.model, "no_data", NoDataPrompt(question, answer.SQL))
	if err != nil {
		return Answer{}, err
	}
	answer.Text = text
	return answer, nil
}
