package handler

import (
	"net/http"
	"time"

	"plateserver/internal/config"
	"plateserver/internal/logger"
	"plateserver/internal/repository"
)

const serviceName = "plate-detection-ocr"

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	DB        string    `json:"db,omitempty"`
	Sessions  int       `json:"sessions"`
}

// HealthHandler reports liveness, the database state and the number of
// inference sessions.
func HealthHandler(cfg *config.Config, recognitions repository.RecognitionRepository, sessions int, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbStatus := "disabled"
		if recognitions != nil {
			if err := recognitions.Ping(); err != nil {
				logger.Warning("Health check: database ping failed: %v", err)
				dbStatus = "down"
			} else {
				dbStatus = "up"
			}
		}

		writeJSON(w, logger, http.StatusOK, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Service:   serviceName,
			Version:   cfg.AppVersion,
			DB:        dbStatus,
			Sessions:  sessions,
		})
	}
}
