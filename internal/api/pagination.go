package api

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// parseLimit parses the limit query parameter. Default is 100, maximum
// is 1000 to prevent excessive memory usage.
func parseLimit(c echo.Context) int {
	limit := 100
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
			// Cap at 1000
			if limit > 1000 {
				limit = 1000
			}
		}
	}
	return limit
}

// parseTimeRange parses optional from and to query parameters in RFC 3339
// format. A missing parameter yields the zero time.
func parseTimeRange(c echo.Context) (from, to time.Time, err error) {
	if raw := c.QueryParam("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, BadRequestError(
				"Invalid from parameter",
				"from must be an RFC 3339 timestamp. Got: "+raw,
			)
		}
	}
	if raw := c.QueryParam("to"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, BadRequestError(
				"Invalid to parameter",
				"to must be an RFC 3339 timestamp. Got: "+raw,
			)
		}
	}
	return from, to, nil
}
