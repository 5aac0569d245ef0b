package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/sentra-video/sentra/internal/storage"
)

// listRecordings handles GET /api/v1/recordings
func (s *Server) listRecordings(c echo.Context) error {
	from, to, err := parseTimeRange(c)
	if err != nil {
		return err
	}

	recordings, err := s.storage.ListRecordings(storage.RecordingFilter{
		CameraID: c.QueryParam("camera"),
		From:     from,
		To:       to,
	})
	if err != nil {
		return InternalError("Failed to list recordings", err.Error())
	}

	out := make([]*RecordingResponse, 0, len(recordings))
	for _, rec := range recordings {
		out = append(out, recordingResponse(rec))
	}
	return c.JSON(http.StatusOK, out)
}

// getRecording handles GET /api/v1/recordings/:id
func (s *Server) getRecording(c echo.Context) error {
	rec, err := s.storage.GetRecording(c.Param("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			return NotFoundError("Recording", c.Param("id"))
		}
		return InternalError("Failed to get recording", err.Error())
	}
	return c.JSON(http.StatusOK, recordingResponse(rec))
}

// downloadRecording handles GET /api/v1/recordings/:id/download. Active
// recordings cannot be downloaded because the container file is still
// being written.
func (s *Server) downloadRecording(c echo.Context) error {
	rec, err := s.storage.GetRecording(c.Param("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			return NotFoundError("Recording", c.Param("id"))
		}
		return InternalError("Failed to get recording", err.Error())
	}

	if rec.Active() {
		return ConflictError("Recording is still active", "stop the recording before downloading")
	}

	if _, err := os.Stat(rec.Path); err != nil {
		return NotFoundError("Recording file", rec.ID)
	}

	return c.Attachment(rec.Path, filepath.Base(rec.Path))
}

// deleteRecording handles DELETE /api/v1/recordings/:id. The file is
// removed before the row so a failure can only leave an orphaned row for
// the retention sweeper.
func (s *Server) deleteRecording(c echo.Context) error {
	rec, err := s.storage.GetRecording(c.Param("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			return NotFoundError("Recording", c.Param("id"))
		}
		return InternalError("Failed to get recording", err.Error())
	}

	if rec.Active() {
		return ConflictError("Recording is still active", "stop the recording before deleting")
	}

	if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
		return InternalError("Failed to remove recording file", err.Error())
	}

	if err := s.storage.DeleteRecording(rec.ID); err != nil {
		return InternalError("Failed to delete recording", err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}
