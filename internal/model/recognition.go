package model

import "time"

// Recognition is the stored outcome of one processed upload.
type Recognition struct {
	ID                int64     `json:"id"`
	RequestID         string    `json:"request_id"`
	OCRMode           string    `json:"ocr_mode"`
	HasPlate          bool      `json:"has_plate"`
	PlateText         string    `json:"plate_text"`
	PlateCount        int       `json:"plate_count"`
	Confidence        float64   `json:"confidence"`
	InputFile         string    `json:"input_file"`
	DetectionArtifact string    `json:"detection_artifact,omitempty"`
	PlateArtifact     string    `json:"plate_artifact,omitempty"`
	SegmentedArtifact string    `json:"segmented_artifact,omitempty"`
	DurationMs        int64     `json:"duration_ms"`
	CreatedAt         time.Time `json:"created_at"`
}
