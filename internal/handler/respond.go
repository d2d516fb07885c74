package handler

import (
	"encoding/json"
	"net/http"

	"plateserver/internal/apperror"
	"plateserver/internal/dto"
	"plateserver/internal/logger"
	"plateserver/internal/middleware"
)

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// writeError logs the full error with the request id and answers with the
// public status and message of its kind.
func writeError(w http.ResponseWriter, r *http.Request, logger *logger.Logger, err error) {
	rid := middleware.GetRequestID(r.Context())
	status, msg := apperror.Public(err)

	if status >= http.StatusInternalServerError {
		logger.Error("%s %s failed (request %s): %v", r.Method, r.URL.Path, rid, err)
	} else {
		logger.Warning("%s %s rejected (request %s): %v", r.Method, r.URL.Path, rid, err)
	}

	writeJSON(w, logger, status, dto.ErrorResponse{Error: msg, RequestID: rid})
}
