package nl2sql

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/salesquery/salesquery/internal/query"
	"github.com/salesquery/salesquery/internal/sqlguard"
)

func TestDataframeAgentReturnsScalar(t *testing.T) {
	model := &scriptedModel{replies: []string{"```sql\nSELECT SUM(SALES) AS total FROM orders;\n```"}}
	engine := &fakeEngine{result: query.Result{Columns: []string{"total"}, Rows: [][]any{{10032628.85}}}}
	agent := NewDataframeAgent(model, engine, "datasets/orders/orders.parquet", 0, nil)

	got, err := agent.Chat(context.Background(), "What is the total revenue?")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got != "10032628.85" {
		t.Fatalf("Chat() = %q", got)
	}
	if engine.request.SQL != "SELECT SUM(SALES) AS total FROM orders" {
		t.Fatalf("SQL = %q", engine.request.SQL)
	}
	if len(engine.request.Files) != 1 || engine.request.Files[0].TableName != "orders" || engine.request.Files[0].ObjectKey != "datasets/orders/orders.parquet" {
		t.Fatalf("files = %+v", engine.request.Files)
	}
	if engine.request.RowLimit != DefaultResultRowLimit {
		t.Fatalf("RowLimit = %d", engine.request.RowLimit)
	}
	if !strings.Contains(model.prompts[0], "syntax for DuckDB") {
		t.Fatalf("prompt = %q", model.prompts[0])
	}
}

func TestDataframeAgentEmptyResult(t *testing.T) {
	agent := NewDataframeAgent(&scriptedModel{replies: []string{"SELECT * FROM orders WHERE 1 = 0"}}, &fakeEngine{result: query.Result{Columns: []string{"a"}}}, "k", 10, nil)
	got, err := agent.Chat(context.Background(), "anything?")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got != "No results found." {
		t.Fatalf("Chat() = %q", got)
	}
}

func TestDataframeAgentErrors(t *testing.T) {
	engine := &fakeEngine{}
	agent := NewDataframeAgent(&scriptedModel{replies: []string{"DELETE FROM orders"}}, engine, "k", 10, nil)
	_, err := agent.Chat(context.Background(), "clean up")
	var dangerous *sqlguard.DangerousOperationError
	if !errors.As(err, &dangerous) || dangerous.Keyword != "DELETE" {
		t.Fatalf("Chat() error = %v, want dangerous operation", err)
	}
	if engine.calls != 0 {
		t.Fatalf("engine calls = %d", engine.calls)
	}

	if _, err := agent.Chat(context.Background(), ""); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("Chat(empty) error = %v", err)
	}

	failing := NewDataframeAgent(&scriptedModel{replies: []string{"SELECT 1"}}, &fakeEngine{err: errors.New("boom")}, "k", 10, nil)
	if _, err := failing.Chat(context.Background(), "q"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("Chat() error = %v", err)
	}
}

type fakeEngine struct {
	result  query.Result
	err     error
	request query.Request
	calls   int
}

func (f *fakeEngine) Execute(_ context.Context, request query.Request) (query.Result, error) {
	f.calls++
	f.request = request
	return f.result, f.err
}
