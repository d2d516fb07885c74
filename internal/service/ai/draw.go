package ai

import (
	"fmt"
	"image"
	"image/color"
	"strconv"

	"plateserver/internal/service/ai/yolo"

	"gocv.io/x/gocv"
)

var (
	plateColor     = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	characterColor = color.RGBA{R: 0, G: 200, B: 0, A: 0}
)

// drawDetections outlines every detection on mat and writes its label above it.
func drawDetections(mat *gocv.Mat, detections []yolo.Detection, c color.RGBA, withConfidence bool) error {
	for _, d := range detections {
		if err := gocv.Rectangle(mat, d.Box, c, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %v", err)
		}

		label := drawableLabel(d)
		if withConfidence {
			label = fmt.Sprintf("%s (%.2f)", label, d.Confidence)
		}
		pt := image.Pt(d.Box.Min.X, max(d.Box.Min.Y-5, 12))
		if err := gocv.PutText(mat, label, pt, gocv.FontHersheySimplex, 0.5, c, 1); err != nil {
			return fmt.Errorf("failed to draw text: %v", err)
		}
	}
	return nil
}

// drawableLabel falls back to the class id for labels the Hershey fonts
// cannot render.
func drawableLabel(d yolo.Detection) string {
	for _, r := range d.Label {
		if r > 0x7e {
			return strconv.Itoa(d.ClassID)
		}
	}
	return d.Label
}

// matToImage copies mat into a Go image.
func matToImage(mat gocv.Mat) (image.Image, error) {
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert matrix: %w", err)
	}
	return img, nil
}
