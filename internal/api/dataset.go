package api

import (
	"errors"
	"net/http"

	"github.com/salesquery/salesquery/internal/dataset"
)

func handleDatasetReload(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Reloader == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "RELOAD_NOT_CONFIGURED", "dataset reload is not configured", false, nil)
		return
	}

	summary, err := deps.Reloader.Reload(r.Context())
	if err != nil {
		if errors.Is(err, dataset.ErrNoSource) {
			writeError(r.Context(), w, http.StatusConflict, "NO_DATASET_SOURCE", err.Error(), false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "DATASET_RELOAD_FAILED", "dataset reload failed", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
