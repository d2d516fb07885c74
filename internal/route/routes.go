package route

import (
	"net/http"

	"plateserver/internal/config"
	"plateserver/internal/handler"
	"plateserver/internal/logger"
	"plateserver/internal/middleware"
	"plateserver/internal/repository"
	"plateserver/internal/service"
)

// SetupRoutes registers the public API, file routes, history endpoints and
// the admin log endpoints, and wraps the mux with request id, logging and
// panic recovery.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger,
	recognitionRepo repository.RecognitionRepository, sessions int) http.Handler {
	mux := http.NewServeMux()

	admin := middleware.APIKey(cfg.APIKey)
	limited := middleware.RateLimit(cfg.UploadRatePerSec, cfg.UploadBurst)

	// Public API
	mux.HandleFunc("GET /{$}", handler.IndexHandler(logger))
	mux.Handle("POST /upload", limited(handler.UploadHandler(manager, cfg, logger)))
	mux.HandleFunc("GET /health", handler.HealthHandler(cfg, recognitionRepo, sessions, logger))

	// Pipeline files
	mux.HandleFunc("GET /artifacts/{request}/{name}", handler.ArtifactHandler(manager.GetStore(), logger))
	mux.HandleFunc("GET /received/{name}", handler.ReceivedHandler(manager.GetStore(), logger))

	// History and live feed
	mux.HandleFunc("GET /api/recognitions", handler.GetRecognitionsHandler(recognitionRepo, logger))
	mux.HandleFunc("GET /api/recognitions/{request}", handler.GetRecognitionHandler(manager, logger))
	mux.Handle("DELETE /api/recognitions/{request}", admin(handler.DeleteRecognitionHandler(manager, logger)))
	mux.HandleFunc("GET /ws", handler.ViewWebsocketHandler(manager, logger))

	// Log endpoints
	mux.Handle("GET /logs/{level}", admin(handler.ShowLogsHandler(logger)))
	mux.Handle("POST /logs/{level}/clear", admin(handler.ClearLogsHandler(logger)))

	return middleware.Chain(mux, middleware.RequestID(logger), middleware.Recover(logger))
}
