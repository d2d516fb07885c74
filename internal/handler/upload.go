package handler

import (
	"errors"
	"io"
	"net/http"

	"plateserver/internal/apperror"
	"plateserver/internal/config"
	"plateserver/internal/dto"
	"plateserver/internal/logger"
	"plateserver/internal/middleware"
	"plateserver/internal/service"
	"plateserver/internal/service/engine"

	"github.com/google/uuid"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// UploadHandler handles POST /upload: multipart field "image" plus optional
// "ocr_mode".
func UploadHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)

		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			writeError(w, r, logger, uploadError(err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("image")
		if err != nil {
			writeError(w, r, logger, apperror.Validation("No image provided"))
			return
		}
		defer file.Close()

		if header.Filename == "" {
			writeError(w, r, logger, apperror.Validation("Invalid image file"))
			return
		}

		mode, err := engine.ParseOCRMode(r.FormValue("ocr_mode"))
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, logger, apperror.Wrap(apperror.KindIO, err))
			return
		}

		// names tmp/<rid>/, so it must come from the server, never the client
		rid := middleware.GetRequestID(r.Context())
		if rid == "" {
			rid = uuid.NewString()
		}
		outcome, err := manager.HandleUpload(r.Context(), service.UploadInput{
			RequestID: rid,
			Mode:      mode,
			Filename:  header.Filename,
			Data:      data,
		})
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		res := outcome.Result
		writeJSON(w, logger, http.StatusOK, dto.UploadResponse{
			Result:    res.PlateText,
			PlateText: res.PlateText,
			HasPlate:  res.HasPlate,
			OCRMode:   string(res.Mode),
			RequestID: res.RequestID,
			Artifacts: outcome.Links,
		})
	}
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.Wrap(apperror.KindTooLarge, err)
	}
	return &apperror.Error{Kind: apperror.KindValidation, Message: "No image provided", Err: err}
}
