package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// getStatistics handles GET /api/v1/system/stats
func (s *Server) getStatistics(c echo.Context) error {
	stats, err := s.storage.GetStatistics()
	if err != nil {
		return InternalError("Failed to compute statistics", err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}
