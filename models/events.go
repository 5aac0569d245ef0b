package models

// StatusChange is the payload published on the camera-status topic.
type StatusChange struct {
	CameraID string          `json:"cameraId"`
	Status   string          `json:"status"`
	Observed *StreamMetadata `json:"observed,omitempty"`
	Error    string          `json:"error,omitempty"`
}
