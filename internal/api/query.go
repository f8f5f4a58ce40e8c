package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/salesquery/salesquery/internal/nl2sql"
	"github.com/salesquery/salesquery/internal/observability"
	"github.com/salesquery/salesquery/internal/store"
)

const (
	endpointOwnModel  = "ownmodel"
	endpointDataframe = "pandasai"
)

type questionRequest struct {
	Question *string `json:"question"`
}

type questionResponse struct {
	Result string `json:"result"`
}

func handleOwnModelQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Answerer == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "question answering is not configured", false, nil)
		return
	}
	question, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	start := time.Now()
	answer, err := deps.Answerer.Answer(r.Context(), question)
	elapsed := time.Since(start)
	if err != nil {
		observability.ObserveQuestion(endpointOwnModel, "error", elapsed)
		recordQuery(deps, r, store.QueryLogEntry{
			Endpoint:     endpointOwnModel,
			Question:     question,
			Outcome:      "error",
			ErrorMessage: err.Error(),
			DurationMs:   elapsed.Milliseconds(),
		})
		if errors.Is(err, nl2sql.ErrEmptyQuestion) {
			writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question must be a non-empty string", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_FAILED", "Error processing query: "+err.Error(), true, nil)
		return
	}

	observability.ObserveQuestion(endpointOwnModel, string(answer.Outcome), elapsed)
	recordQuery(deps, r, store.QueryLogEntry{
		Endpoint:     endpointOwnModel,
		Question:     question,
		GeneratedSQL: answer.SQL,
		RowCount:     answer.RowCount,
		Outcome:      string(answer.Outcome),
		DurationMs:   elapsed.Milliseconds(),
	})
	writeJSON(w, http.StatusOK, questionResponse{Result: answer.Text})
}

func handleDataframeQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Dataframe == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "dataframe queries are not configured", false, nil)
		return
	}
	question, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := deps.Dataframe.Chat(r.Context(), question)
	elapsed := time.Since(start)
	if err != nil {
		observability.ObserveQuestion(endpointDataframe, "error", elapsed)
		recordQuery(deps, r, store.QueryLogEntry{
			Endpoint:     endpointDataframe,
			Question:     question,
			Outcome:      "error",
			ErrorMessage: err.Error(),
			DurationMs:   elapsed.Milliseconds(),
		})
		if errors.Is(err, nl2sql.ErrEmptyQuestion) {
			writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question must be a non-empty string", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_FAILED", err.Error(), true, nil)
		return
	}

	observability.ObserveQuestion(endpointDataframe, string(nl2sql.OutcomeAnswered), elapsed)
	recordQuery(deps, r, store.QueryLogEntry{
		Endpoint:   endpointDataframe,
		Question:   question,
		Outcome:    string(nl2sql.OutcomeAnswered),
		DurationMs: elapsed.Milliseconds(),
	})
	writeJSON(w, http.StatusOK, questionResponse{Result: result})
}

// decodeQuestion writes a 400 and returns false when the body has no usable
// question.
func decodeQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var request questionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid question request body", false, map[string]any{"details": err.Error()})
		return "", false
	}
	if request.Question == nil || strings.TrimSpace(*request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question must be a non-empty string", false, nil)
		return "", false
	}
	return strings.TrimSpace(*request.Question), true
}

// recordQuery appends to the query log; a logging failure never fails the
// request.
func recordQuery(deps Dependencies, r *http.Request, entry store.QueryLogEntry) {
	if deps.QueryLog == nil {
		return
	}
	if _, err := deps.QueryLog.Record(r.Context(), entry); err != nil && deps.Logger != nil {
		deps.Logger.WarnContext(r.Context(), "record query log failed",
			slog.String("endpoint", entry.Endpoint),
			slog.Any("error", err),
		)
	}
}
