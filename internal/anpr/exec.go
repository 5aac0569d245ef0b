package anpr

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/sentra-video/sentra/models"
)

// ExecDetector runs an external detector binary. The binary receives the
// frame path as its single argument and prints a JSON document on
// stdout:
//
//	{"detections": [{"box": {"x":0,"y":0,"w":0,"h":0}, "confidence": 0.0}]}
type ExecDetector struct {
	Path    string
	Timeout time.Duration
}

type detectorOutput struct {
	Detections []Detection `json:"detections"`
}

// Detect invokes the detector binary on the frame.
func (d *ExecDetector) Detect(ctx context.Context, framePath string) ([]Detection, error) {
	runCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	out, err := exec.CommandContext(runCtx, d.Path, framePath).Output()
	if err != nil {
		return nil, fmt.Errorf("detector failed: %w", err)
	}

	var parsed detectorOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse detector output: %w", err)
	}
	return parsed.Detections, nil
}

// ExecExtractor runs an external text-extractor binary. The binary
// receives the frame path and the region as four integer arguments and
// prints:
//
//	{"plate": "ABC1234"}
//
// An empty plate means the region carried no legible text.
type ExecExtractor struct {
	Path    string
	Timeout time.Duration
}

type extractorOutput struct {
	Plate string `json:"plate"`
}

// Extract invokes the extractor binary on one region of the frame.
func (e *ExecExtractor) Extract(ctx context.Context, framePath string, region models.BoundingBox) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	args := []string{
		framePath,
		strconv.Itoa(region.X),
		strconv.Itoa(region.Y),
		strconv.Itoa(region.W),
		strconv.Itoa(region.H),
	}
	out, err := exec.CommandContext(runCtx, e.Path, args...).Output()
	if err != nil {
		return "", fmt.Errorf("extractor failed: %w", err)
	}

	var parsed extractorOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse extractor output: %w", err)
	}
	return models.NormalizePlate(parsed.Plate), nil
}
