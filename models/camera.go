package models

import (
	"strings"
	"time"
)

// Camera status values as observed by the health prober and supervisor.
const (
	CameraStatusOffline      = "offline"
	CameraStatusOnline       = "online"
	CameraStatusReconnecting = "reconnecting"
	CameraStatusError        = "error"
)

// Recording modes for a camera's recording policy.
const (
	RecordingModeOff        = "off"
	RecordingModeManual     = "manual"
	RecordingModeContinuous = "continuous"
)

// Camera represents a managed RTSP camera.
//
// The supervisor owning a camera is the only writer of its Status field;
// the control surface mutates policy fields, the health prober mutates
// LastSeen and observed metadata.
//
// Example JSON representation:
//
//	{
//	  "@context": "https://schema.org",
//	  "@type": "sentra:Camera",
//	  "@id": "camera:7f3a...",
//	  "name": "gate-north",
//	  "ingressUrl": "rtsp://10.0.0.12:554/stream1",
//	  "status": "online",
//	  "recording": {"mode": "continuous", "segmentSeconds": 4, "retentionDays": 7},
//	  "anpr": {"enabled": true, "sampleEveryNFrames": 5, "confidenceThreshold": 0.8}
//	}
type Camera struct {
	// Context is the JSON-LD @context URL
	Context string `json:"@context"`

	// Type is the JSON-LD @type (sentra:Camera)
	Type string `json:"@type"`

	// ID is the unique camera identifier (maps to CouchDB _id)
	ID string `json:"@id"`

	// Rev is the CouchDB document revision for optimistic locking
	Rev string `json:"_rev,omitempty"`

	// Name is the human-readable camera name (required)
	Name string `json:"name"`

	// Location is an optional free-form placement description
	Location string `json:"location,omitempty"`

	// IngressURL is the RTSP source address
	IngressURL string `json:"ingressUrl"`

	// Username is the optional RTSP username
	Username string `json:"username,omitempty"`

	// SealedPassword is the vault-sealed RTSP password. Never returned
	// by the API; see Masked.
	SealedPassword string `json:"sealedPassword,omitempty"`

	// Tags is a free-form tag set
	Tags []string `json:"tags,omitempty"`

	// Protocols contains per-protocol enablement flags
	Protocols ProtocolFlags `json:"protocols"`

	// Grid is the dashboard layout position
	Grid GridPosition `json:"grid"`

	// Recording is the recording policy
	Recording RecordingPolicy `json:"recording"`

	// ANPR is the plate-recognition policy
	ANPR ANPRPolicy `json:"anpr"`

	// Status is the observed camera status (offline, online, reconnecting, error)
	Status string `json:"status"`

	// LastSeen is the last time the prober reached the camera
	LastSeen *time.Time `json:"lastSeen,omitempty"`

	// Observed carries stream metadata reported by the media pipeline
	Observed *StreamMetadata `json:"observed,omitempty"`

	// Created is the creation timestamp
	Created time.Time `json:"created,omitempty"`

	// Modified is the last mutation timestamp
	Modified time.Time `json:"modified,omitempty"`
}

// ProtocolFlags enables or disables stream delivery protocols for a camera.
type ProtocolFlags struct {
	HLS    bool `json:"hls"`
	WebRTC bool `json:"webrtc"`
}

// GridPosition places a camera tile on the dashboard grid.
type GridPosition struct {
	Row    int `json:"row"`
	Column int `json:"column"`
	Size   int `json:"size"`
}

// RecordingPolicy controls how and for how long a camera records.
type RecordingPolicy struct {
	// Mode is one of off, manual, continuous
	Mode string `json:"mode"`

	// SegmentSeconds is how long a continuous recording runs before it is
	// rolled over into a new file (1-60). Live playlist segments are not
	// affected by it.
	SegmentSeconds int `json:"segmentSeconds"`

	// RetentionDays is how long finished recordings are kept (1-365)
	RetentionDays int `json:"retentionDays"`
}

// ANPRPolicy controls plate recognition for a camera.
type ANPRPolicy struct {
	// Enabled turns the per-camera worker on or off
	Enabled bool `json:"enabled"`

	// SampleEveryNFrames controls the sampling cadence (1-30).
	// The worker period is SampleEveryNFrames seconds.
	SampleEveryNFrames int `json:"sampleEveryNFrames"`

	// ConfidenceThreshold is the minimum detector confidence (0.1-1.0)
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
}

// StreamMetadata carries stream properties observed from the source.
type StreamMetadata struct {
	FPS        float64 `json:"fps,omitempty"`
	BitrateKbs int     `json:"bitrateKbs,omitempty"`
	Resolution string  `json:"resolution,omitempty"`
}

// CameraResponse is the API representation of a camera. Sealed secrets are
// omitted and the username is masked.
type CameraResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Location   string          `json:"location,omitempty"`
	IngressURL string          `json:"ingressUrl"`
	Username   string          `json:"username,omitempty"`
	Tags       []string        `json:"tags,omitempty"`
	Protocols  ProtocolFlags   `json:"protocols"`
	Grid       GridPosition    `json:"grid"`
	Recording  RecordingPolicy `json:"recording"`
	ANPR       ANPRPolicy      `json:"anpr"`
	Status     string          `json:"status"`
	LastSeen   *time.Time      `json:"lastSeen,omitempty"`
	Observed   *StreamMetadata `json:"observed,omitempty"`
	Created    time.Time       `json:"created,omitempty"`
	Modified   time.Time       `json:"modified,omitempty"`
}

// Masked returns the API representation of the camera with the sealed
// password dropped and the username reduced to a two-character prefix.
func (c *Camera) Masked() *CameraResponse {
	return &CameraResponse{
		ID:         c.ID,
		Name:       c.Name,
		Location:   c.Location,
		IngressURL: c.IngressURL,
		Username:   MaskUsername(c.Username),
		Tags:       c.Tags,
		Protocols:  c.Protocols,
		Grid:       c.Grid,
		Recording:  c.Recording,
		ANPR:       c.ANPR,
		Status:     c.Status,
		LastSeen:   c.LastSeen,
		Observed:   c.Observed,
		Created:    c.Created,
		Modified:   c.Modified,
	}
}

// MaskUsername reduces a username to its first two characters followed by
// three asterisks. Empty usernames stay empty.
func MaskUsername(username string) string {
	if username == "" {
		return ""
	}
	if len(username) <= 2 {
		return username + "***"
	}
	return username[:2] + "***"
}

// HasCredentials reports whether the camera carries RTSP credentials.
func (c *Camera) HasCredentials() bool {
	return c.Username != "" && c.SealedPassword != ""
}

// PipelineConfigChanged reports whether a config change requires the live
// pipeline to restart. Only the ingress URL, its credentials and the
// protocol flags feed the running segmenter.
func (c *Camera) PipelineConfigChanged(next *Camera) bool {
	return c.IngressURL != next.IngressURL ||
		c.Username != next.Username ||
		c.SealedPassword != next.SealedPassword ||
		c.Protocols != next.Protocols
}

// SameConfig reports whether next carries identical user-editable content.
// Observed state (status, last seen, stream metadata) and document
// bookkeeping (revision, timestamps) are ignored.
func (c *Camera) SameConfig(next *Camera) bool {
	if c.Name != next.Name ||
		c.Location != next.Location ||
		c.IngressURL != next.IngressURL ||
		c.Username != next.Username ||
		c.SealedPassword != next.SealedPassword ||
		c.Protocols != next.Protocols ||
		c.Grid != next.Grid ||
		c.Recording != next.Recording ||
		c.ANPR != next.ANPR {
		return false
	}
	if len(c.Tags) != len(next.Tags) {
		return false
	}
	for i := range c.Tags {
		if c.Tags[i] != next.Tags[i] {
			return false
		}
	}
	return true
}

// ValidStatus reports whether s is a known camera status.
func ValidStatus(s string) bool {
	switch s {
	case CameraStatusOffline, CameraStatusOnline, CameraStatusReconnecting, CameraStatusError:
		return true
	}
	return false
}

// NormalizeTags trims and drops empty tags in place.
func (c *Camera) NormalizeTags() {
	out := c.Tags[:0]
	for _, t := range c.Tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	c.Tags = out
}
