package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"plateserver/internal/apperror"
	"plateserver/internal/dto"
	"plateserver/internal/logger"
	"plateserver/internal/repository"
	"plateserver/internal/service"
)

const defaultPageSize = 24

// GetRecognitionsHandler returns a filtered, paginated page of the history.
func GetRecognitionsHandler(recognitions repository.RecognitionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), defaultPageSize)
		if limit > 200 {
			limit = 200
		}

		filter := &dto.RecognitionFilters{
			Plate:      strings.TrimSpace(q.Get("plate")),
			OCRMode:    strings.ToLower(strings.TrimSpace(q.Get("ocr_mode"))),
			HasPlate:   parseBool(q.Get("has_plate")),
			DateAfter:  parseDate(q.Get("dateAfter")),
			DateBefore: parseDate(q.Get("dateBefore")),
			Limit:      limit,
			Offset:     (page - 1) * limit,
		}

		recs, err := recognitions.GetAll(filter)
		if err != nil {
			writeError(w, r, logger, apperror.Wrap(apperror.KindIO, err))
			return
		}

		totalCount, err := recognitions.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting recognitions: %v", err)
			totalCount = len(recs)
		}

		items := make([]dto.RecognitionInfo, 0, len(recs))
		for i := range recs {
			items = append(items, dto.NewRecognitionInfo(&recs[i], nil))
		}

		writeJSON(w, logger, http.StatusOK, dto.RecognitionsData{
			Recognitions: items,
			Length:       totalCount,
			TotalPages:   (totalCount + limit - 1) / limit,
			CurrentPage:  page,
			Limit:        limit,
		})
	}
}

// GetRecognitionHandler returns one history entry with its boxes.
func GetRecognitionHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := manager.Recognition(r.PathValue("request"))
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, info)
	}
}

// DeleteRecognitionHandler removes a history entry with its upload and
// artifacts.
func DeleteRecognitionHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.PathValue("request")
		if err := manager.DeleteRecognition(requestID); err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "deleted", "request_id": requestID})
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseBool(v string) *bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}
