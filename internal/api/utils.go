package api

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sentra-video/sentra/internal/validation"
	"github.com/sentra-video/sentra/models"
)

// fieldErrorMap flattens validation errors into the APIError field map.
func fieldErrorMap(verrs []validation.ValidationError) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, v := range verrs {
		out[v.Field] = v.Message
	}
	return out
}

// recordingResponse converts a recording row into its API representation.
func recordingResponse(rec *models.Recording) *RecordingResponse {
	return &RecordingResponse{
		ID:          rec.ID,
		CameraID:    rec.CameraID,
		Date:        rec.Date,
		StartTime:   rec.StartTime,
		EndTime:     rec.EndTime,
		DurationSec: rec.DurationSec,
		SizeBytes:   rec.SizeBytes,
		Format:      rec.Format,
		Active:      rec.Active(),
		DownloadURL: fmt.Sprintf("/api/v1/recordings/%s/download", rec.ID),
	}
}

// anprEventResponse converts an ANPR event into its API representation.
// The on-disk snapshot path is rewritten to the media URL space.
func (s *Server) anprEventResponse(event *models.ANPREvent) *ANPREventResponse {
	return &ANPREventResponse{
		ID:           event.ID,
		CameraID:     event.CameraID,
		Timestamp:    event.Timestamp,
		Plate:        event.Plate,
		Confidence:   event.Confidence,
		SnapshotURL:  s.mediaURL(snapshotURL(event.SnapshotPath, s.config.Media.BaseDir)),
		Box:          event.Box,
		DetectorMeta: event.DetectorMeta,
	}
}

// mediaURL prefixes a relative media path with the configured external
// base URL, when one is set.
func (s *Server) mediaURL(path string) string {
	if path == "" || s.config.Media.BaseURL == "" {
		return path
	}
	return strings.TrimRight(s.config.Media.BaseURL, "/") + path
}

// snapshotURL maps an absolute snapshot path under the media base dir to
// its /media/snapshots URL. Paths outside the snapshots tree yield an
// empty URL.
func snapshotURL(path, mediaBaseDir string) string {
	if path == "" {
		return ""
	}
	root := filepath.Join(mediaBaseDir, "snapshots")
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return "/media/snapshots/" + filepath.ToSlash(rel)
}
