package api

import (
	"time"

	"github.com/sentra-video/sentra/models"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User        *models.UserResponse `json:"user"`
	AccessToken string               `json:"access_token"`
	ExpiresAt   time.Time            `json:"expires_at"`
	TokenType   string               `json:"token_type"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Username string   `json:"username" validate:"required,min=3,max=50"`
	Password string   `json:"password" validate:"required,min=8"`
	Roles    []string `json:"roles"`
}

// UpdateUserRequest represents a user mutation request
type UpdateUserRequest struct {
	Username *string   `json:"username,omitempty"`
	Roles    *[]string `json:"roles,omitempty"`
	Enabled  *bool     `json:"enabled,omitempty"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// CameraRequest is the camera create and update payload. The password is
// accepted in plaintext and sealed by the vault before it touches the
// store.
type CameraRequest struct {
	Name       string                 `json:"name"`
	Location   string                 `json:"location,omitempty"`
	IngressURL string                 `json:"ingressUrl"`
	Username   string                 `json:"username,omitempty"`
	Password   string                 `json:"password,omitempty"`
	Tags       []string               `json:"tags,omitempty"`
	Protocols  models.ProtocolFlags   `json:"protocols"`
	Grid       models.GridPosition    `json:"grid"`
	Recording  models.RecordingPolicy `json:"recording"`
	ANPR       models.ANPRPolicy      `json:"anpr"`
}

// RecordingResponse is the API representation of a recording with the
// on-disk path replaced by a download URL.
type RecordingResponse struct {
	ID          string                 `json:"id"`
	CameraID    string                 `json:"cameraId"`
	Date        string                 `json:"date"`
	StartTime   time.Time              `json:"startTime"`
	EndTime     *time.Time             `json:"endTime,omitempty"`
	DurationSec int64                  `json:"durationSec,omitempty"`
	SizeBytes   int64                  `json:"sizeBytes,omitempty"`
	Format      string                 `json:"format"`
	Active      bool                   `json:"active"`
	DownloadURL string                 `json:"downloadUrl"`
	Observed    *models.StreamMetadata `json:"observed,omitempty"`
}

// ANPREventResponse is the API representation of a plate read.
type ANPREventResponse struct {
	ID           string                 `json:"id"`
	CameraID     string                 `json:"cameraId"`
	Timestamp    time.Time              `json:"timestamp"`
	Plate        string                 `json:"plate"`
	Confidence   float64                `json:"confidence"`
	SnapshotURL  string                 `json:"snapshotUrl,omitempty"`
	Box          models.BoundingBox     `json:"box"`
	DetectorMeta map[string]interface{} `json:"detectorMeta,omitempty"`
}

// ProcessANPRRequest asks for a one-shot recognition pass on a camera.
type ProcessANPRRequest struct {
	CameraID string `json:"cameraId"`
}

// SnapshotResponse reports a captured still frame.
type SnapshotResponse struct {
	CameraID   string    `json:"cameraId"`
	Path       string    `json:"path"`
	CapturedAt time.Time `json:"capturedAt"`
}

// RecordingStartedResponse reports a started recording.
type RecordingStartedResponse struct {
	CameraID    string `json:"cameraId"`
	RecordingID string `json:"recordingId"`
}

// StreamInfoResponse describes the delivery endpoints of a camera stream.
type StreamInfoResponse struct {
	CameraID    string `json:"cameraId"`
	Status      string `json:"status"`
	HLSPlaylist string `json:"hlsPlaylist,omitempty"`
}

// WebSocketMessage is the envelope pushed to event stream clients.
type WebSocketMessage struct {
	Event     string      `json:"event"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}
