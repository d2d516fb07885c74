package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"plateserver/internal/apperror"
	"plateserver/internal/logger"
)

var logFiles = map[string]string{
	"info":    logger.InfoFile,
	"warning": logger.WarningFile,
	"error":   logger.ErrorFile,
}

// ShowLogsHandler serves GET /logs/{level} as text/plain.
func ShowLogsHandler(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logFiles[r.PathValue("level")]
		if !ok {
			writeError(w, r, log, apperror.NotFound("Unknown log level"))
			return
		}

		filePath := filepath.Join(log.Directory(), filename)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			writeError(w, r, log, apperror.NotFound("Log file not found: "+filename))
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, filePath)
	}
}

// ClearLogsHandler truncates the log file of POST /logs/{level}/clear.
func ClearLogsHandler(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logFiles[r.PathValue("level")]
		if !ok {
			writeError(w, r, log, apperror.NotFound("Unknown log level"))
			return
		}

		if err := log.CleanLogs(filename); err != nil {
			writeError(w, r, log, apperror.Wrap(apperror.KindIO, err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
