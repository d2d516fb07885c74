package middleware

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"plateserver/internal/logger"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-Id"

// ClientRequestIDHeader echoes the id a client sent, for correlation only.
const ClientRequestIDHeader = "X-Client-Request-Id"

type (
	requestIDKey       struct{}
	clientRequestIDKey struct{}
)

// Client ids end up in log lines, so only a conservative charset is kept.
var validClientID = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// statusRecorder captures the status written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

// RequestID gives every request a fresh server-side UUID. Request ids name
// artifact folders, so a client X-Request-Id is never used as one: a valid
// header is kept as a correlation id, echoed in X-Client-Request-Id and logged
// next to the server id.
func RequestID(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := uuid.NewString()
			ctx := WithRequestID(r.Context(), rid)
			w.Header().Set(RequestIDHeader, rid)

			client := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if validClientID.MatchString(client) {
				ctx = context.WithValue(ctx, clientRequestIDKey{}, client)
				w.Header().Set(ClientRequestIDHeader, client)
			} else {
				client = "-"
			}
			r = r.WithContext(ctx)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			logger.Info("[req] id=%s client=%s method=%s path=%s status=%d latency=%s",
				rid, client, r.Method, r.URL.Path, rec.status, time.Since(start))
		})
	}
}

func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// GetRequestID extracts the request ID from a standard context
func GetRequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// GetClientRequestID returns the correlation id the client sent, if any.
func GetClientRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(clientRequestIDKey{}).(string); ok {
		return id
	}
	return ""
}
