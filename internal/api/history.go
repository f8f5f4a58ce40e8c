package api

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

func handleHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.QueryLog == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "query log is not configured", false, nil)
		return
	}

	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxHistoryLimit {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 500", false, map[string]any{"limit": raw})
			return
		}
		limit = parsed
	}

	entries, err := deps.QueryLog.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_FETCH_FAILED", "failed to load query history", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "limit": limit})
}
