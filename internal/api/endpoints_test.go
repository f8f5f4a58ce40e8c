package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/salesquery/salesquery/internal/dataset"
	"github.com/salesquery/salesquery/internal/store"
)

func TestHistoryEndpoint(t *testing.T) {
	queryLog := &fakeQueryLog{entries: []store.QueryLogEntry{
		{QueryID: "q-2", Endpoint: "ownmodel", Question: "second", Outcome: "answered", CreatedAt: time.Unix(2, 0).UTC()},
		{QueryID: "q-1", Endpoint: "pandasai", Question: "first", Outcome: "error", CreatedAt: time.Unix(1, 0).UTC()},
	}}
	h := NewHandler(loadTestConfig(t, nil), Dependencies{QueryLog: queryLog})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/history?limit=5", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	entries, ok := body["entries"].([]any)
	if !ok || len(entries) != 2 {
		t.Fatalf("entries = %#v", body["entries"])
	}
	if first := entries[0].(map[string]any); first["query_id"] != "q-2" {
		t.Fatalf("first entry = %v", first)
	}
	if queryLog.lastLimit != 5 {
		t.Fatalf("limit = %d", queryLog.lastLimit)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/history", nil))
	if queryLog.lastLimit != defaultHistoryLimit {
		t.Fatalf("default limit = %d", queryLog.lastLimit)
	}

	for _, bad := range []string{"0", "-3", "abc", "501"} {
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/history?limit="+bad, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("limit=%s status = %d", bad, rr.Code)
		}
	}
}

func TestHistoryEndpointStoreFailure(t *testing.T) {
	h := NewHandler(loadTestConfig(t, nil), Dependencies{QueryLog: &fakeQueryLog{listErr: errors.New("db gone")}})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/history", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if decodeBody(t, rr)["error_code"] != "HISTORY_FETCH_FAILED" {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestSchemaEndpoint(t *testing.T) {
	h := NewHandler(loadTestConfig(t, nil), Dependencies{Orders: countFunc(func() (int64, error) { return 2823, nil })})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["table"] != "orders" || body["row_count"] != float64(2823) || body["loaded"] != true {
		t.Fatalf("body = %v", body)
	}
	columns := body["columns"].([]any)
	if len(columns) != 26 {
		t.Fatalf("columns = %d", len(columns))
	}
	if first := columns[0].(map[string]any); first["name"] != "ORDERID" {
		t.Fatalf("first column = %v", first)
	}

	empty := NewHandler(loadTestConfig(t, nil), Dependencies{Orders: countFunc(func() (int64, error) { return 0, errors.New("no such table: orders") })})
	rr = httptest.NewRecorder()
	empty.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))
	if rr.Code != http.StatusOK || decodeBody(t, rr)["loaded"] != false {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
}

func TestDatasetReloadEndpoint(t *testing.T) {
	reloader := reloadFunc(func() (dataset.Summary, error) {
		return dataset.Summary{Source: "data/sales.csv", Rows: 2823, SnapshotKey: "datasets/orders/orders.parquet"}, nil
	})
	h := NewHandler(loadTestConfig(t, nil), Dependencies{Reloader: reloader})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/dataset/reload", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if body := decodeBody(t, rr); body["rows"] != float64(2823) || body["snapshot_key"] != "datasets/orders/orders.parquet" {
		t.Fatalf("body = %v", body)
	}

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{err: dataset.ErrNoSource, status: http.StatusConflict, code: "NO_DATASET_SOURCE"},
		{err: fmt.Errorf("parse csv: %w", errors.New("line 3: bad SALES")), status: http.StatusInternalServerError, code: "DATASET_RELOAD_FAILED"},
	}
	for _, tt := range tests {
		failing := NewHandler(loadTestConfig(t, nil), Dependencies{Reloader: reloadFunc(func() (dataset.Summary, error) { return dataset.Summary{}, tt.err })})
		rr := httptest.NewRecorder()
		failing.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/dataset/reload", nil))
		if rr.Code != tt.status || decodeBody(t, rr)["error_code"] != tt.code {
			t.Fatalf("error %v: status = %d body = %s", tt.err, rr.Code, rr.Body.String())
		}
	}
}

type countFunc func() (int64, error)

func (f countFunc) CountOrders(context.Context) (int64, error) { return f() }

type reloadFunc func() (dataset.Summary, error)

func (f reloadFunc) Reload(context.Context) (dataset.Summary, error) { return f() }
