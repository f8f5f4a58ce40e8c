package observability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTraceMiddlewarePreservesIncomingTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := TraceIDFromContext(r.Context()); got != "trace-1" {
			t.Fatalf("TraceIDFromContext() = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set(traceHeader, "trace-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get(traceHeader); got != "trace-1" {
		t.Fatalf("trace header = %q", got)
	}
}

func TestTraceMiddlewareGeneratesTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if TraceIDFromContext(r.Context()) == "" {
			t.Fatal("expected generated trace id")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Header().Get(traceHeader) == "" {
		t.Fatal("expected X-Trace-ID header")
	}
}

func TestTraceIDContextHelpers(t *testing.T) {
	ctx := ContextWithTraceID(context.Background(), "abc123")
	if got := TraceIDFromContext(ctx); got != "abc123" {
		t.Fatalf("TraceIDFromContext() = %q", got)
	}
}

func TestLoggingMiddlewareDoesNotPanic(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
}

func TestLoggingMiddlewareLogsServerErrorsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/query/ownmodel", nil))

	if !strings.Contains(buf.String(), `"level":"WARN"`) || !strings.Contains(buf.String(), `"status":502`) {
		t.Fatalf("log line = %s", buf.String())
	}
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := MetricsMiddleware(mux)

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "GET /v1/items/{id}", "200"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/items/42", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/items/43", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "GET /v1/items/{id}", "200"))

	if after-before != 2 {
		t.Fatalf("request count delta = %v, want 2", after-before)
	}
}

func TestRecoverMiddlewareReturns500(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := RecoverMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"error_code":"INTERNAL"`) {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestDomainMetricsCountOutcomes(t *testing.T) {
	before := testutil.ToFloat64(modelCallsTotal.WithLabelValues("sql", "error"))
	ObserveModelCall("sql", errors.New("quota"), time.Millisecond)
	if got := testutil.ToFloat64(modelCallsTotal.WithLabelValues("sql", "error")) - before; got != 1 {
		t.Fatalf("model error delta = %v", got)
	}

	ObserveDatasetLoad(123, nil, 5*time.Millisecond)
	if got := testutil.ToFloat64(datasetRows); got != 123 {
		t.Fatalf("dataset rows = %v", got)
	}
}
