package api

import (
	"log/slog"
	"net/http"

	"github.com/salesquery/salesquery/internal/sales"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"table":   sales.TableName,
		"columns": sales.Columns,
	}
	if deps.Orders == nil {
		writeJSON(w, http.StatusOK, response)
		return
	}

	// Before the first load the table does not exist yet; the catalogue is
	// still useful to callers.
	count, err := deps.Orders.CountOrders(r.Context())
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.WarnContext(r.Context(), "count orders failed", slog.Any("error", err))
		}
		response["loaded"] = false
		writeJSON(w, http.StatusOK, response)
		return
	}
	response["loaded"] = true
	response["row_count"] = count
	writeJSON(w, http.StatusOK, response)
}
