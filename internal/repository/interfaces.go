package repository

import (
	"errors"
	"time"

	"plateserver/internal/dto"
	"plateserver/internal/model"
)

var ErrNotFound = errors.New("record not found")

// RecognitionRepository defines the interface for recognition history operations.
type RecognitionRepository interface {
	// Create operations
	Insert(rec *model.Recognition) (int64, error)

	// Read operations
	GetByRequestID(requestID string) (*model.Recognition, error)
	GetAll(filter *dto.RecognitionFilters) ([]model.Recognition, error)
	GetTotalCount(filter *dto.RecognitionFilters) (int, error)

	// Delete operations
	DeleteByRequestID(requestID string) error
	DeleteOlderThan(cutoff time.Time) (int64, error)

	Ping() error
}

// DetectionRepository defines the interface for plate and character boxes.
type DetectionRepository interface {
	InsertBatch(detections []model.Detection) error
	GetByRecognitionID(recognitionID int64) ([]model.Detection, error)
}
