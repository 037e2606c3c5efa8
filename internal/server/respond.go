package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/sat-prep/internal/practice"
	"github.com/p-n-ai/sat-prep/internal/roadmap"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

// writeError maps err to a status code and JSON body. Unknown errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *invalidRequestError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: invalid.msg, Fields: invalid.fields})
	case errors.Is(err, errBadLearnerID):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, roadmap.ErrNotFound),
		errors.Is(err, practice.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, roadmap.ErrLevelOutOfRange),
		errors.Is(err, roadmap.ErrInvalidProficiency),
		errors.Is(err, practice.ErrQuestionNotInSession):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: http.StatusText(http.StatusInternalServerError)})
	}
}
