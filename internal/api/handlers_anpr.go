package api

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/sentra-video/sentra/internal/storage"
)

// processANPR handles POST /api/v1/anpr/process. It routes a one-shot
// recognition tick through the camera's worker; dedup still applies, so
// a recently seen plate yields a null event.
func (s *Server) processANPR(c echo.Context) error {
	var req ProcessANPRRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("Invalid request body", err.Error())
	}
	if req.CameraID == "" {
		return BadRequestError("Invalid request body", "cameraId is required")
	}

	sup, err := s.manager.Get(req.CameraID)
	if err != nil {
		return mapCameraError(err, req.CameraID)
	}

	event, err := sup.TriggerANPR(c.Request().Context())
	if err != nil {
		return mapCameraError(err, req.CameraID)
	}
	if event == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"cameraId": req.CameraID,
			"event":    nil,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"cameraId": req.CameraID,
		"event":    s.anprEventResponse(event),
	})
}

// listANPREvents handles GET /api/v1/anpr/events
func (s *Server) listANPREvents(c echo.Context) error {
	from, to, err := parseTimeRange(c)
	if err != nil {
		return err
	}

	events, err := s.storage.ListANPREvents(storage.ANPREventFilter{
		CameraID: c.QueryParam("camera"),
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

// getANPREvent handles GET /api/v1/anpr/events/:id
func (s *Server) getANPREvent(c echo.Context) error {
	event, err := s.storage.GetANPREvent(c.Param("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			return NotFoundError("ANPR event", c.Param("id"))
		}
		return InternalError("Failed to get ANPR event", err.Error())
	}
	return c.JSON(http.StatusOK, s.anprEventResponse(event))
}

// deleteANPREvent handles DELETE /api/v1/anpr/events/:id. The plate
// snapshot is removed together with the row.
func (s *Server) deleteANPREvent(c echo.Context) error {
	event, err := s.storage.GetANPREvent(c.Param("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			return NotFoundError("ANPR event", c.Param("id"))
		}
		return InternalError("Failed to get ANPR event", err.Error())
	}

	if event.SnapshotPath != "" {
		if err := os.Remove(event.SnapshotPath); err != nil && !os.IsNotExist(err) {
			return InternalError("Failed to remove snapshot file", err.Error())
		}
	}

	if err := s.storage.DeleteANPREvent(event.ID); err != nil {
		return InternalError("Failed to delete ANPR event", err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}
