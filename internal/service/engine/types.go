package engine

import (
	"context"
	"image"
	"strings"
	"time"

	"plateserver/internal/apperror"
	"plateserver/internal/service/ai/yolo"
)

// OCRMode selects how characters are read from the plate crop.
type OCRMode string

const (
	ModeTrained   OCRMode = "trained"
	ModeTesseract OCRMode = "tesseract"
)

// Fixed artifact names inside a request namespace.
const (
	DetectionArtifact = "car_box.jpg"
	PlateArtifact     = "plate_box.jpg"
	SegmentedArtifact = "plate_segmented.jpg"
)

// ParseOCRMode normalises a client supplied mode. Empty selects ModeTrained.
func ParseOCRMode(raw string) (OCRMode, error) {
	mode := OCRMode(strings.ToLower(strings.TrimSpace(raw)))
	if mode == "" {
		return ModeTrained, nil
	}
	if !mode.Valid() {
		return "", apperror.Validation("Invalid ocr_mode. Use 'trained' or 'tesseract'.")
	}
	return mode, nil
}

func (m OCRMode) Valid() bool {
	return m == ModeTrained || m == ModeTesseract
}

// PlateDetection is what a Detector finds in a full frame. Crops follow the
// order of Plates.
type PlateDetection struct {
	Plates    []yolo.Detection
	Annotated image.Image
	Crops     []image.Image
}

// PlateReading is the character level result of the trained reader.
type PlateReading struct {
	Characters []yolo.Detection
	Segmented  image.Image
	Text       string
}

// Detector localises license plates in an image file.
type Detector interface {
	Detect(ctx context.Context, imagePath string) (*PlateDetection, error)
	Close() error
}

// Reader recognises the characters of a plate crop stored on disk.
type Reader interface {
	Read(ctx context.Context, platePath string) (*PlateReading, error)
	Tesseract(ctx context.Context, platePath string) (string, error)
	Close() error
}

// ArtifactWriter persists intermediate images under a per-request namespace.
type ArtifactWriter interface {
	// WriteArtifact stores img and returns its name relative to the artifact root.
	WriteArtifact(requestID, name string, img image.Image) (string, error)
	ArtifactPath(requestID, name string) string
}

// Request names the normalised upload on disk (ImagePath) and its public
// file name (InputName).
type Request struct {
	RequestID string
	ImagePath string
	InputName string
	Mode      OCRMode
}

// Artifacts holds names relative to their serving root. Empty means absent.
type Artifacts struct {
	Input     string
	Detection string
	Plate     string
	Segmented string
}

// Result of one request. Plate is the box the text was read from and is zero
// when HasPlate is false.
type Result struct {
	RequestID  string
	Mode       OCRMode
	HasPlate   bool
	PlateText  string
	PlateCount int
	Confidence float32
	Plate      yolo.Detection
	Characters []yolo.Detection
	Artifacts  Artifacts
	Duration   time.Duration
}
