package ai

import (
	"context"
	"fmt"
	"sync"

	"plateserver/internal/config"
	"plateserver/internal/logger"
	"plateserver/internal/service/ai/yolo"
	"plateserver/internal/service/engine"

	"github.com/otiai10/gosseract/v2"
)

// PlateReader reads plate characters either with the trained character
// network or with Tesseract.
type PlateReader struct {
	network   *Network
	tesseract *gosseract.Client
	logger    *logger.Logger

	// guards tesseract, which holds per-image state
	mu sync.Mutex
}

// NewPlateReader loads the character network and prepares a Tesseract client.
func NewPlateReader(cfg *config.Config, logger *logger.Logger) (*PlateReader, error) {
	names, err := yolo.LoadClassNames(cfg.OCRClassesPath)
	if err != nil {
		logger.Warning("Character names unavailable (%v), labels fall back to class ids", err)
		names = nil
	}

	network, err := LoadNetwork(NetworkOptions{
		WeightsPath: cfg.OCRWeightsPath,
		ConfigPath:  cfg.OCRConfigPath,
		Names:       names,
		InputSize:   cfg.NetworkInputSize,
		Confidence:  float32(cfg.ConfidenceThreshold),
		NMS:         float32(cfg.NMSThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("plate reader: %w", err)
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(cfg.TesseractLanguage); err != nil {
		client.Close()
		network.Close()
		return nil, fmt.Errorf("tesseract language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		network.Close()
		return nil, fmt.Errorf("tesseract page mode: %w", err)
	}

	logger.Info("Character network loaded from %s (%d classes)", cfg.OCRWeightsPath, len(names))
	return &PlateReader{network: network, tesseract: client, logger: logger}, nil
}

// Read detects characters on the plate crop, draws them on a copy and joins
// their labels from left to right.
func (r *PlateReader) Read(ctx context.Context, platePath string) (*engine.PlateReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := readMat(platePath)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	characters, err := r.network.Detect(mat)
	if err != nil {
		return nil, err
	}
	yolo.SortLeftToRight(characters)

	segmented := mat.Clone()
	defer segmented.Close()
	if err := drawDetections(&segmented, characters, characterColor, false); err != nil {
		return nil, err
	}

	img, err := matToImage(segmented)
	if err != nil {
		return nil, err
	}

	return &engine.PlateReading{
		Characters: characters,
		Segmented:  img,
		Text:       yolo.JoinLabels(characters),
	}, nil
}

// Tesseract runs general purpose OCR on the plate crop file.
func (r *PlateReader) Tesseract(ctx context.Context, platePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.tesseract.SetImage(platePath); err != nil {
		return "", fmt.Errorf("tesseract input: %w", err)
	}
	text, err := r.tesseract.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}

func (r *PlateReader) Close() error {
	errTess := r.tesseract.Close()
	errNet := r.network.Close()
	if errNet != nil {
		return errNet
	}
	return errTess
}
