// Package yolo holds the model-independent half of darknet YOLO inference:
// decoding raw output rows into boxes, non-maximum suppression and label
// handling. It has no OpenCV dependency so it can be tested on its own.
package yolo

import (
	"image"
	"sort"
)

// Detection is a single box kept after thresholding.
type Detection struct {
	Box        image.Rectangle `json:"box"`
	Confidence float32         `json:"confidence"`
	ClassID    int             `json:"class_id"`
	Label      string          `json:"label"`
}

// rowHeader is cx, cy, w, h, objectness.
const rowHeader = 5

// ParseOutput turns YOLO output rows into detections in pixel space.
// Each row is [cx, cy, w, h, objectness, class scores...] with coordinates
// normalised to the input image. Rows whose best class score does not exceed
// threshold are dropped; boxes are clamped to the image bounds.
func ParseOutput(rows [][]float32, width, height int, threshold float32, names []string) []Detection {
	bounds := image.Rect(0, 0, width, height)
	var detections []Detection

	for _, row := range rows {
		if len(row) <= rowHeader {
			continue
		}

		classID, score := 0, float32(0)
		for j, s := range row[rowHeader:] {
			if s > score {
				classID, score = j, s
			}
		}
		if score <= threshold {
			continue
		}

		cx := row[0] * float32(width)
		cy := row[1] * float32(height)
		w := row[2] * float32(width)
		h := row[3] * float32(height)

		x0 := int(cx - w/2)
		y0 := int(cy - h/2)
		box := ClampRect(image.Rect(x0, y0, x0+int(w), y0+int(h)), bounds)
		if box.Empty() {
			continue
		}

		detections = append(detections, Detection{
			Box:        box,
			Confidence: score,
			ClassID:    classID,
			Label:      Label(names, classID),
		})
	}

	return detections
}

// NMS keeps the highest scoring box of every group whose pairwise IoU exceeds
// iouThreshold. The result is ordered by descending confidence.
func NMS(detections []Detection, iouThreshold float32) []Detection {
	boxes := make([]Detection, len(detections))
	copy(boxes, detections)
	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].Confidence > boxes[j].Confidence
	})

	kept := make([]Detection, 0, len(boxes))
	suppressed := make([]bool, len(boxes))
	for i := range boxes {
		if suppressed[i] {
			continue
		}
		kept = append(kept, boxes[i])
		for j := i + 1; j < len(boxes); j++ {
			if suppressed[j] {
				continue
			}
			if IoU(boxes[i].Box, boxes[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

// IoU is the intersection over union of two rectangles.
func IoU(a, b image.Rectangle) float32 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := area(inter)
	union := area(a) + area(b) - interArea
	if union <= 0 {
		return 0
	}
	return float32(interArea) / float32(union)
}

// ClampRect restricts r to bounds.
func ClampRect(r, bounds image.Rectangle) image.Rectangle {
	return r.Canon().Intersect(bounds)
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
