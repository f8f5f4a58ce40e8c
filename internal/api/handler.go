package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/salesquery/salesquery/internal/auth"
	"github.com/salesquery/salesquery/internal/config"
	"github.com/salesquery/salesquery/internal/dataset"
	"github.com/salesquery/salesquery/internal/nl2sql"
	"github.com/salesquery/salesquery/internal/observability"
	"github.com/salesquery/salesquery/internal/store"
)

type ReadinessCheck func(ctx context.Context) error

type QuestionAnswerer interface {
	Answer(ctx context.Context, question string) (nl2sql.Answer, error)
}

type DataframeChat interface {
	Chat(ctx context.Context, question string) (string, error)
}

type QueryLog interface {
	Record(ctx context.Context, entry store.QueryLogEntry) (store.QueryLogEntry, error)
	ListRecent(ctx context.Context, limit int) ([]store.QueryLogEntry, error)
}

type OrderCounter interface {
	CountOrders(ctx context.Context) (int64, error)
}

type DatasetReloader interface {
	Reload(ctx context.Context) (dataset.Summary, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Answerer          QuestionAnswerer
	Dataframe         DataframeChat
	QueryLog          QueryLog
	Orders            OrderCounter
	Reloader          DatasetReloader
	UI                http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.Handle("POST /query/ownmodel", auth.RequireRole(auth.RoleQueryReader, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleOwnModelQuery(deps, w, r)
	})))
	protected.Handle("POST /query/pandasai", auth.RequireRole(auth.RoleQueryReader, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleDataframeQuery(deps, w, r)
	})))
	protected.Handle("GET /v1/history", auth.RequireRole(auth.RoleQueryReader, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleHistory(deps, w, r)
	})))
	protected.Handle("GET /v1/schema", auth.RequireRole(auth.RoleQueryReader, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})))
	protected.Handle("POST /v1/dataset/reload", auth.RequireRole(auth.RoleDatasetAdmin, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleDatasetReload(deps, w, r)
	})))

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /query/ownmodel", protectedHandler)
	mux.Handle("POST /query/pandasai", protectedHandler)
	mux.Handle("GET /v1/history", protectedHandler)
	mux.Handle("GET /v1/schema", protectedHandler)
	mux.Handle("POST /v1/dataset/reload", protectedHandler)
	if deps.UI != nil {
		mux.Handle("GET /{path...}", deps.UI)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	middlewares = append(middlewares,
		observability.RecoverMiddleware(deps.Logger),
		CORSMiddleware(cfg.HTTP.CORSAllowedOrigins),
	)
	return chain(mux, middlewares...)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

func CheckDatabase(db HealthChecker) ReadinessCheck {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("database is not configured")
		}
		if err := db.HealthCheck(ctx); err != nil {
			return errors.New("database: " + err.Error())
		}
		return nil
	}
}

func CheckObjectStore(objects HealthChecker) ReadinessCheck {
	return func(ctx context.Context) error {
		if objects == nil {
			return errors.New("object store is not configured")
		}
		if err := objects.HealthCheck(ctx); err != nil {
			return errors.New("object store: " + err.Error())
		}
		return nil
	}
}

func CheckModelConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if strings.TrimSpace(cfg.AI.APIKey) == "" {
			return errors.New("model api key is not configured")
		}
		if cfg.AI.Provider == config.ProviderOpenAI && strings.TrimSpace(cfg.AI.BaseURL) == "" {
			return errors.New("model base url is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"detail":     message,
		"error_code": code,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
