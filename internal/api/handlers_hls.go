package api

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	mimeHLSPlaylist = "application/vnd.apple.mpegurl"
	mimeHLSSegment  = "video/mp2t"
)

// getHLSPlaylist handles GET /api/v1/cameras/:id/hls/playlist.m3u8.
// Serves the rolling live playlist. Never cached: the playlist changes
// every segment duration.
func (s *Server) getHLSPlaylist(c echo.Context) error {
	id := c.Param("id")

	path := filepath.Join(s.config.Media.BaseDir, "streams", id, "live", "index.m3u8")
	if _, err := os.Stat(path); err != nil {
		return NotFoundError("Stream", id)
	}

	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set(echo.HeaderContentType, mimeHLSPlaylist)
	return c.File(path)
}

// getHLSSegment handles GET /api/v1/cameras/:id/hls/:segment.
// Segments are immutable once written, so a short cache is safe.
func (s *Server) getHLSSegment(c echo.Context) error {
	id := c.Param("id")
	segment := c.Param("segment")

	if segment == "" || strings.ContainsAny(segment, "/\\") || strings.Contains(segment, "..") {
		return BadRequestError("Invalid segment name", segment)
	}
	if !strings.HasSuffix(segment, ".ts") {
		return BadRequestError("Invalid segment name", segment)
	}

	path := filepath.Join(s.config.Media.BaseDir, "streams", id, "live", segment)
	if _, err := os.Stat(path); err != nil {
		return NotFoundError("Segment", segment)
	}

	c.Response().Header().Set("Cache-Control", "max-age=10")
	c.Response().Header().Set(echo.HeaderContentType, mimeHLSSegment)
	return c.File(path)
}
