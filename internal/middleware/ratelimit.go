package middleware

import (
	"encoding/json"
	"net/http"

	"plateserver/internal/apperror"
	"plateserver/internal/dto"

	"golang.org/x/time/rate"
)

// RateLimit rejects requests beyond a shared token bucket with 429.
func RateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				status, msg := apperror.Public(apperror.New(apperror.KindRateLimited, ""))
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(status)
				json.NewEncoder(w).Encode(dto.ErrorResponse{Error: msg, RequestID: GetRequestID(r.Context())})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
