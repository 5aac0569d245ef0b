// Package anpr implements the per-camera plate-recognition worker: a
// periodic frame sampler feeding a two-stage external inference chain
// (region detector, then text extractor) with a time-bucketed dedup
// filter in front of persistence and fan-out.
package anpr

import (
	"context"

	"github.com/sentra-video/sentra/models"
)

// Detection is one candidate plate region reported by the detector.
type Detection struct {
	Box        models.BoundingBox     `json:"box"`
	Confidence float64                `json:"confidence"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// Detector finds candidate plate regions in a frame image.
type Detector interface {
	Detect(ctx context.Context, framePath string) ([]Detection, error)
}

// Extractor reads the plate text out of one detected region. It returns
// an empty string when no legible plate is present; the caller treats
// that as a miss, not an error.
type Extractor interface {
	Extract(ctx context.Context, framePath string, region models.BoundingBox) (string, error)
}
