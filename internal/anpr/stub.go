package anpr

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/sentra-video/sentra/models"
)

// StubDetector is the development detector used when no external binary
// is configured. It reports a single fixed region on every frame.
type StubDetector struct{}

// Detect returns one synthetic detection covering a plate-sized region.
func (StubDetector) Detect(_ context.Context, _ string) ([]Detection, error) {
	return []Detection{{
		Box:        models.BoundingBox{X: 100, Y: 200, W: 160, H: 40},
		Confidence: 0.99,
		Meta:       map[string]interface{}{"engine": "stub"},
	}}, nil
}

// StubExtractor is the development extractor used when no external
// binary is configured. The plate is derived from the frame path so
// repeated frames dedup and distinct frames produce distinct plates.
type StubExtractor struct{}

// Extract returns a synthetic plate for the frame.
func (StubExtractor) Extract(_ context.Context, framePath string, _ models.BoundingBox) (string, error) {
	h := fnv.New32a()
	h.Write([]byte(framePath))
	return fmt.Sprintf("ZZ%05d", h.Sum32()%100000), nil
}
