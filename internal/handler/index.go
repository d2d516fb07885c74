package handler

import (
	"net/http"

	"plateserver/internal/logger"
)

type IndexResponse struct {
	Name      string            `json:"name"`
	Endpoints map[string]string `json:"endpoints"`
}

var index = IndexResponse{
	Name: "Plate Detection-OCR API",
	Endpoints: map[string]string{
		"upload":       "POST /upload (multipart form-data: image, ocr_mode=trained|tesseract)",
		"artifact":     "GET /artifacts/<request_id>/<filename>",
		"received":     "GET /received/<filename>",
		"recognitions": "GET /api/recognitions",
		"live":         "GET /ws",
		"health":       "GET /health",
	},
}

// IndexHandler describes the API.
func IndexHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, index)
	}
}
