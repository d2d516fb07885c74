package dto

import (
	"time"

	"plateserver/internal/model"
)

// RecognitionInfo is a history entry with its artifacts expressed as URLs.
type RecognitionInfo struct {
	RequestID  string            `json:"request_id"`
	OCRMode    string            `json:"ocr_mode"`
	HasPlate   bool              `json:"has_plate"`
	PlateText  string            `json:"plate_text"`
	PlateCount int               `json:"plate_count"`
	Confidence float64           `json:"confidence"`
	DurationMs int64             `json:"duration_ms"`
	CreatedAt  time.Time         `json:"created_at"`
	Artifacts  ArtifactLinks     `json:"artifacts"`
	Detections []model.Detection `json:"detections,omitempty"`
}

// NewRecognitionInfo converts a stored record. Links are stamped with the
// record's creation time so they stay stable across reads.
func NewRecognitionInfo(rec *model.Recognition, detections []model.Detection) RecognitionInfo {
	return RecognitionInfo{
		RequestID:  rec.RequestID,
		OCRMode:    rec.OCRMode,
		HasPlate:   rec.HasPlate,
		PlateText:  rec.PlateText,
		PlateCount: rec.PlateCount,
		Confidence: rec.Confidence,
		DurationMs: rec.DurationMs,
		CreatedAt:  rec.CreatedAt,
		Artifacts: NewArtifactLinks(rec.InputFile, rec.DetectionArtifact, rec.PlateArtifact,
			rec.SegmentedArtifact, rec.CreatedAt.UnixMilli()),
		Detections: detections,
	}
}
