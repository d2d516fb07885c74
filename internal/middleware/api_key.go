package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"plateserver/internal/dto"
)

const APIKeyHeader = "X-API-Key"

// APIKey guards admin endpoints. With an empty key configured the guarded
// endpoints are disabled altogether.
func APIKey(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if expected == "" || subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "invalid API key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
