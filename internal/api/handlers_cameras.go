package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sentra-video/sentra/internal/storage"
	"github.com/sentra-video/sentra/models"
)

// listCameras handles GET /api/v1/cameras
func (s *Server) listCameras(c echo.Context) error {
	filters := make(map[string]interface{})
	if status := c.QueryParam("status"); status != "" {
		if !models.ValidStatus(status) {
			return BadRequestError(
				"Invalid status parameter",
				"Status must be one of: offline, online, reconnecting, error. Got: "+status,
			)
		}
		filters["status"] = status
	}

	cameras, err := s.storage.ListCameras(filters)
	if err != nil {
		return InternalError("Failed to list cameras", err.Error())
	}

	out := make([]*models.CameraResponse, 0, len(cameras))
	for _, cam := range cameras {
		out = append(out, cam.Masked())
	}
	return c.JSON(http.StatusOK, out)
}

// getCamera handles GET /api/v1/cameras/:id
func (s *Server) getCamera(c echo.Context) error {
	cam, err := s.storage.GetCamera(c.Param("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			return NotFoundError("Camera", c.Param("id"))
		}
		return InternalError("Failed to get camera", err.Error())
	}
	return c.JSON(http.StatusOK, cam.Masked())
}

// createCamera handles POST /api/v1/cameras. The plaintext password is
// sealed by the vault before the document is written; it never reaches
// the store or the bus.
func (s *Server) createCamera(c echo.Context) error {
	var req CameraRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("Invalid request body", err.Error())
	}

	now := time.Now()
	cam := &models.Camera{
		ID:         models.GenerateID("camera"),
		Name:       req.Name,
		Location:   req.Location,
		IngressURL: req.IngressURL,
		Username:   req.Username,
		Tags:       req.Tags,
		Protocols:  req.Protocols,
		Grid:       req.Grid,
		Recording:  req.Recording,
		ANPR:       req.ANPR,
		Status:     models.CameraStatusOffline,
		Created:    now,
		Modified:   now,
	}
	cam.NormalizeTags()
	applyPolicyDefaults(cam)

	if verrs := s.validator.ValidateCameraFields(cam); len(verrs) > 0 {
		return ValidationFailedError("Camera validation failed", fieldErrorMap(verrs))
	}

	if req.Password != "" {
		sealed, err := s.vault.Seal(req.Password)
		if err != nil {
			return InternalError("Failed to seal credentials", err.Error())
		}
		cam.SealedPassword = sealed
	}

	if err := s.storage.SaveCamera(cam); err != nil {
		return InternalError("Failed to save camera", err.Error())
	}

	if err := s.manager.AddCamera(cam); err != nil {
		return InternalError("Failed to start camera supervisor", err.Error())
	}

	return c.JSON(http.StatusCreated, cam.Masked())
}

// updateCamera handles PUT /api/v1/cameras/:id. An empty password keeps
// the existing sealed credential.
func (s *Server) updateCamera(c echo.Context) error {
	id := c.Param("id")

	var req CameraRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("Invalid request body", err.Error())
	}

	cam, err := s.storage.GetCamera(id)
	if err != nil {
		if storage.IsNotFound(err) {
			return NotFoundError("Camera", id)
		}
		return InternalError("Failed to get camera", err.Error())
	}

	cam.Name = req.Name
	cam.Location = req.Location
	cam.IngressURL = req.IngressURL
	cam.Username = req.Username
	cam.Tags = req.Tags
	cam.Protocols = req.Protocols
	cam.Grid = req.Grid
	cam.Recording = req.Recording
	cam.ANPR = req.ANPR
	cam.Modified = time.Now()
	cam.NormalizeTags()
	applyPolicyDefaults(cam)

	if verrs := s.validator.ValidateCameraFields(cam); len(verrs) > 0 {
		return ValidationFailedError("Camera validation failed", fieldErrorMap(verrs))
	}

	if req.Password != "" {
		sealed, err := s.vault.Seal(req.Password)
		if err != nil {
			return InternalError("Failed to seal credentials", err.Error())
		}
		cam.SealedPassword = sealed
	}

	if err := s.storage.SaveCamera(cam); err != nil {
		return InternalError("Failed to save camera", err.Error())
	}

	if err := s.manager.UpdateCamera(cam); err != nil {
		return mapCameraError(err, id)
	}

	return c.JSON(http.StatusOK, cam.Masked())
}

// deleteCamera handles DELETE /api/v1/cameras/:id. The supervisor is
// torn down, recordings and events cascade and media directories are
// removed.
func (s *Server) deleteCamera(c echo.Context) error {
	id := c.Param("id")

	if _, err := s.storage.GetCamera(id); err != nil {
		if storage.IsNotFound(err) {
			return NotFoundError("Camera", id)
		}
		return InternalError("Failed to get camera", err.Error())
	}

	if err := s.manager.DeleteCamera(c.Request().Context(), id); err != nil {
		return mapCameraError(err, id)
	}

	return c.NoContent(http.StatusNoContent)
}

// startCamera handles POST /api/v1/cameras/:id/start
func (s *Server) startCamera(c echo.Context) error {
	sup, err := s.manager.Get(c.Param("id"))
	if err != nil {
		return mapCameraError(err, c.Param("id"))
	}
	if err := sup.Start(); err != nil {
		return mapCameraError(err, c.Param("id"))
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"id":    c.Param("id"),
		"state": sup.State(),
	})
}

// stopCamera handles POST /api/v1/cameras/:id/stop
func (s *Server) stopCamera(c echo.Context) error {
	sup, err := s.manager.Get(c.Param("id"))
	if err != nil {
		return mapCameraError(err, c.Param("id"))
	}
	if err := sup.Stop(); err != nil {
		return mapCameraError(err, c.Param("id"))
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"id":    c.Param("id"),
		"state": sup.State(),
	})
}

// restartCamera handles POST /api/v1/cameras/:id/restart
func (s *Server) restartCamera(c echo.Context) error {
	sup, err := s.manager.Get(c.Param("id"))
	if err != nil {
		return mapCameraError(err, c.Param("id"))
	}
	if err := sup.Restart(); err != nil {
		return mapCameraError(err, c.Param("id"))
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"id":    c.Param("id"),
		"state": sup.State(),
	})
}

// snapshotCamera handles POST /api/v1/cameras/:id/snapshot
func (s *Server) snapshotCamera(c echo.Context) error {
	sup, err := s.manager.Get(c.Param("id"))
	if err != nil {
		return mapCameraError(err, c.Param("id"))
	}

	path, err := sup.Snapshot(c.Request().Context())
	if err != nil {
		return mapCameraError(err, c.Param("id"))
	}

	return c.JSON(http.StatusOK, SnapshotResponse{
		CameraID:   c.Param("id"),
		Path:       s.mediaURL(snapshotURL(path, s.config.Media.BaseDir)),
		CapturedAt: time.Now(),
	})
}

// getStreamInfo handles GET /api/v1/cameras/:id/stream
func (s *Server) getStreamInfo(c echo.Context) error {
	id := c.Param("id")

	sup, err := s.manager.Get(id)
	if err != nil {
		return mapCameraError(err, id)
	}

	resp := StreamInfoResponse{
		CameraID: id,
		Status:   sup.State(),
	}
	if sup.Camera().Protocols.HLS {
		resp.HLSPlaylist = s.mediaURL("/streams/" + id + "/live/index.m3u8")
	}
	return c.JSON(http.StatusOK, resp)
}

// startRecording handles POST /api/v1/cameras/:id/recordings/start
func (s *Server) startRecording(c echo.Context) error {
	sup, err := s.manager.Get(c.Param("id"))
	if err != nil {
		return mapCameraError(err, c.Param("id"))
	}

	recID, err := sup.BeginRecording()
	if err != nil {
		return mapCameraError(err, c.Param("id"))
	}

	return c.JSON(http.StatusCreated, RecordingStartedResponse{
		CameraID:    c.Param("id"),
		RecordingID: recID,
	})
}

// stopRecording handles POST /api/v1/cameras/:id/recordings/stop
func (s *Server) stopRecording(c echo.Context) error {
	sup, err := s.manager.Get(c.Param("id"))
	if err != nil {
		return mapCameraError(err, c.Param("id"))
	}

	rec, err := sup.EndRecording()
	if err != nil {
		return mapCameraError(err, c.Param("id"))
	}

	return c.JSON(http.StatusOK, recordingResponse(rec))
}

// listCameraRecordings handles GET /api/v1/cameras/:id/recordings
func (s *Server) listCameraRecordings(c echo.Context) error {
	id := c.Param("id")

	if _, err := s.manager.Get(id); err != nil {
		return mapCameraError(err, id)
	}

	from, to, err := parseTimeRange(c)
	if err != nil {
		return err
	}

	recordings, err := s.storage.ListRecordings(storage.RecordingFilter{
		CameraID: id,
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

// triggerANPR handles POST /api/v1/cameras/:id/anpr/trigger
func (s *Server) triggerANPR(c echo.Context) error {
	sup, err := s.manager.Get(c.Param("id"))
	if err != nil {
		return mapCameraError(err, c.Param("id"))
	}

	event, err := sup.TriggerANPR(c.Request().Context())
	if err != nil {
		return mapCameraError(err, c.Param("id"))
	}
	if event == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"cameraId": c.Param("id"),
			"event":    nil,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"cameraId": c.Param("id"),
		"event":    s.anprEventResponse(event),
	})
}

// listCameraANPREvents handles GET /api/v1/cameras/:id/anpr/events
func (s *Server) listCameraANPREvents(c echo.Context) error {
	id := c.Param("id")

	from, to, err := parseTimeRange(c)
	if err != nil {
		return err
	}

	events, err := s.storage.ListANPREvents(storage.ANPREventFilter{
		CameraID: id,
		Plate:    c.QueryParam("plate"),
		From:     from,
		To:       to,
		Limit:    parseLimit(c),
	})
	if err != nil {
		return InternalError("Failed to list ANPR events", err.Error())
	}

	out := make([]*ANPREventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, s.anprEventResponse(event))
	}
	return c.JSON(http.StatusOK, out)
}

// applyPolicyDefaults fills policy zero values with their documented
// defaults so sparse create payloads validate.
func applyPolicyDefaults(cam *models.Camera) {
	if cam.Recording.Mode == "" {
		cam.Recording.Mode = models.RecordingModeOff
	}
	if cam.Recording.SegmentSeconds == 0 {
		cam.Recording.SegmentSeconds = 2
	}
	if cam.Recording.RetentionDays == 0 {
		cam.Recording.RetentionDays = 7
	}
	if cam.ANPR.Enabled {
		if cam.ANPR.SampleEveryNFrames == 0 {
			cam.ANPR.SampleEveryNFrames = 5
		}
		if cam.ANPR.ConfidenceThreshold == 0 {
			cam.ANPR.ConfidenceThreshold = 0.8
		}
	}
}
