package ai

import (
	"context"
	"fmt"
	"image"

	"plateserver/internal/config"
	"plateserver/internal/logger"
	"plateserver/internal/service/ai/yolo"
	"plateserver/internal/service/engine"

	"gocv.io/x/gocv"
)

// PlateDetector finds license plates in full frames.
type PlateDetector struct {
	network *Network
	logger  *logger.Logger
}

// NewPlateDetector loads the plate detection network described by cfg.
func NewPlateDetector(cfg *config.Config, logger *logger.Logger) (*PlateDetector, error) {
	names := []string{"plate"}
	if cfg.DetectionClassesPath != "" {
		loaded, err := yolo.LoadClassNames(cfg.DetectionClassesPath)
		if err != nil {
			return nil, err
		}
		names = loaded
	}

	network, err := LoadNetwork(NetworkOptions{
		WeightsPath: cfg.DetectionWeightsPath,
		ConfigPath:  cfg.DetectionConfigPath,
		Names:       names,
		InputSize:   cfg.NetworkInputSize,
		Confidence:  float32(cfg.ConfidenceThreshold),
		NMS:         float32(cfg.NMSThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("plate detector: %w", err)
	}

	logger.Info("Plate detection network loaded from %s", cfg.DetectionWeightsPath)
	return &PlateDetector{network: network, logger: logger}, nil
}

// Detect returns the plates found in the image at imagePath, an annotated
// copy of the frame and one crop per plate, best first.
func (d *PlateDetector) Detect(ctx context.Context, imagePath string) (*engine.PlateDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := readMat(imagePath)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	plates, err := d.network.Detect(mat)
	if err != nil {
		return nil, err
	}

	result := &engine.PlateDetection{Plates: plates}
	if len(plates) == 0 {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	annotated := mat.Clone()
	defer annotated.Close()
	if err := drawDetections(&annotated, plates, plateColor, true); err != nil {
		return nil, err
	}
	if result.Annotated, err = matToImage(annotated); err != nil {
		return nil, err
	}

	for _, plate := range plates {
		crop, err := cropRegion(mat, plate.Box)
		if err != nil {
			return nil, err
		}
		result.Crops = append(result.Crops, crop)
	}

	return result, nil
}

func (d *PlateDetector) Close() error {
	return d.network.Close()
}

func cropRegion(mat gocv.Mat, box image.Rectangle) (image.Image, error) {
	box = yolo.ClampRect(box, image.Rect(0, 0, mat.Cols(), mat.Rows()))
	if box.Empty() {
		return nil, fmt.Errorf("crop %v is outside the frame", box)
	}

	roi := mat.Region(box)
	defer roi.Close()
	crop := roi.Clone()
	defer crop.Close()

	return matToImage(crop)
}
