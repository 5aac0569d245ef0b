package models

import "time"

// Recording represents a single long-form recording owned by a camera.
//
// Exactly zero or one recording per camera has a nil EndTime. Duration and
// size are populated only when the recording is finalized.
type Recording struct {
	// Context is the JSON-LD @context URL
	Context string `json:"@context"`

	// Type is the JSON-LD @type (sentra:Recording)
	Type string `json:"@type"`

	// ID is the unique recording identifier (maps to CouchDB _id)
	ID string `json:"@id"`

	// Rev is the CouchDB document revision for optimistic locking
	Rev string `json:"_rev,omitempty"`

	// CameraID is the owning camera
	CameraID string `json:"cameraId"`

	// Date is the logical recording date (YYYY-MM-DD)
	Date string `json:"date"`

	// StartTime is when the recording began
	StartTime time.Time `json:"startTime"`

	// EndTime is when the recording finished; nil while active
	EndTime *time.Time `json:"endTime,omitempty"`

	// Path is the absolute on-disk container file path
	Path string `json:"path"`

	// DurationSec is the whole-second duration, set on finalization
	DurationSec int64 `json:"durationSec,omitempty"`

	// SizeBytes is the container file size, set on finalization
	SizeBytes int64 `json:"sizeBytes,omitempty"`

	// Format is the container format (mp4)
	Format string `json:"format"`

	// Observed carries stream metadata captured at recording time
	Observed *StreamMetadata `json:"observed,omitempty"`
}

// Active reports whether the recording is still being written.
func (r *Recording) Active() bool {
	return r.EndTime == nil
}

// Finalize stamps the end time and derives the whole-second duration.
// The byte size is supplied by the caller from the file on disk.
func (r *Recording) Finalize(end time.Time, sizeBytes int64) {
	r.EndTime = &end
	r.DurationSec = int64(end.Sub(r.StartTime).Seconds())
	if r.DurationSec < 0 {
		r.DurationSec = 0
	}
	r.SizeBytes = sizeBytes
}
