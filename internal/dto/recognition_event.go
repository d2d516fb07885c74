package dto

import "time"

// RecognitionEvent is pushed to websocket viewers after each upload.
type RecognitionEvent struct {
	Type      string        `json:"type"`
	RequestID string        `json:"request_id"`
	HasPlate  bool          `json:"has_plate"`
	PlateText string        `json:"plate_text"`
	OCRMode   string        `json:"ocr_mode"`
	Artifacts ArtifactLinks `json:"artifacts"`
	Timestamp time.Time     `json:"timestamp"`
}
