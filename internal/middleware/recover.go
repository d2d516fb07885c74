package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"plateserver/internal/apperror"
	"plateserver/internal/dto"
	"plateserver/internal/logger"
)

// Recover turns a panicking handler into a 500 with the generic message.
func Recover(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				rid := GetRequestID(r.Context())
				logger.Error("panic serving %s %s (request %s): %v\n%s", r.Method, r.URL.Path, rid, rec, debug.Stack())

				status, msg := apperror.Public(nil)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				json.NewEncoder(w).Encode(dto.ErrorResponse{Error: msg, RequestID: rid})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies middlewares so that the first one listed runs outermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
