package models

import (
	"strings"
	"time"
)

// MinPlateLength is the shortest normalized plate accepted.
const MinPlateLength = 3

// BoundingBox locates a detected plate in source pixels.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// ANPREvent is an immutable license-plate recognition event.
//
// Events are created by the ANPR worker and deleted only by camera cascade
// or administrative purge.
type ANPREvent struct {
	// Context is the JSON-LD @context URL
	Context string `json:"@context"`

	// Type is the JSON-LD @type (sentra:ANPREvent)
	Type string `json:"@type"`

	// ID is the unique event identifier (maps to CouchDB _id)
	ID string `json:"@id"`

	// Rev is the CouchDB document revision for optimistic locking
	Rev string `json:"_rev,omitempty"`

	// CameraID is the camera that produced the event
	CameraID string `json:"cameraId"`

	// Timestamp is when the frame was sampled
	Timestamp time.Time `json:"timestamp"`

	// Plate is the normalized plate string (uppercase alphanumeric)
	Plate string `json:"plate"`

	// Confidence is the detector confidence in [0,1]
	Confidence float64 `json:"confidence"`

	// SnapshotPath is the absolute path of the retained frame
	SnapshotPath string `json:"snapshotPath"`

	// Box is the plate bounding box in source pixels
	Box BoundingBox `json:"box"`

	// DetectorMeta carries opaque detector output
	DetectorMeta map[string]interface{} `json:"detectorMeta,omitempty"`
}

// NormalizePlate uppercases the input and strips everything that is not
// A-Z or 0-9. The empty string is returned when fewer than MinPlateLength
// characters survive.
func NormalizePlate(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() < MinPlateLength {
		return ""
	}
	return b.String()
}
