package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/aiarchives/aiarchives/pkg/utils/logging"
)

const internalErrorMessage = "Internal error, see logs"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorString(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusOf maps an error kind to the HTTP status and the message safe to
// show the caller. Anything unclassified is a 500 with a generic message.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrUnsupportedModel):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "conversation not found"
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusOf(err)
	logError(r, status, err)
	writeErrorString(w, status, msg)
}

func logError(r *http.Request, status int, err error) {
	logger := logging.From(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Info("request rejected", "status", status, "error", err)
	}
}
