package dto

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	ReceivedRoute = "/received/"
	ArtifactRoute = "/artifacts/"
)

// ArtifactLinks are cache-busted URL paths; nil marshals as null.
type ArtifactLinks struct {
	Input     *string `json:"input"`
	Detection *string `json:"detection"`
	Plate     *string `json:"plate"`
	Segmented *string `json:"segmented"`
}

// NewArtifactLinks prefixes each non-empty name with its route and appends
// ?t=<stamp>. Artifact names are "<request id>/<file>".
func NewArtifactLinks(input, detection, plate, segmented string, stamp int64) ArtifactLinks {
	return ArtifactLinks{
		Input:     link(ReceivedRoute, input, stamp),
		Detection: link(ArtifactRoute, detection, stamp),
		Plate:     link(ArtifactRoute, plate, stamp),
		Segmented: link(ArtifactRoute, segmented, stamp),
	}
}

func link(route, name string, stamp int64) *string {
	if name == "" {
		return nil
	}
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	u := fmt.Sprintf("%s%s?t=%d", route, strings.Join(parts, "/"), stamp)
	return &u
}

// UploadResponse is the body returned by POST /upload.
type UploadResponse struct {
	Result    string        `json:"result"`
	PlateText string        `json:"plate_text"`
	HasPlate  bool          `json:"has_plate"`
	OCRMode   string        `json:"ocr_mode"`
	RequestID string        `json:"request_id"`
	Artifacts ArtifactLinks `json:"artifacts"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
