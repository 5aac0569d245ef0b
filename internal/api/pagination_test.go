package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func newTestContext(t *testing.T, query string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{
			name:  "default when missing",
			query: "",
			want:  100,
		},
		{
			name:  "explicit limit",
			query: "limit=25",
			want:  25,
		},
		{
			name:  "capped at 1000",
			query: "limit=5000",
			want:  1000,
		},
		{
			name:  "negative falls back to default",
			query: "limit=-5",
			want:  100,
		},
		{
			name:  "garbage falls back to default",
			query: "limit=abc",
			want:  100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestContext(t, tt.query)
			if got := parseLimit(c); got != tt.want {
				t.Errorf("parseLimit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTimeRange(t *testing.T) {
	c := newTestContext(t, "from=2026-01-01T00:00:00Z&to=2026-01-02T00:00:00Z")

	from, to, err := parseTimeRange(c)
	if err != nil {
		t.Fatalf("parseTimeRange() error = %v, want nil", err)
	}
	if want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC); !from.Equal(want) {
		t.Errorf("parseTimeRange() from = %v, want %v", from, want)
	}
	if want := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC); !to.Equal(want) {
		t.Errorf("parseTimeRange() to = %v, want %v", to, want)
	}
}

func TestParseTimeRange_Missing(t *testing.T) {
	c := newTestContext(t, "")

	from, to, err := parseTimeRange(c)
	if err != nil {
		t.Fatalf("parseTimeRange() error = %v, want nil", err)
	}
	if !from.IsZero() || !to.IsZero() {
		t.Errorf("parseTimeRange() = %v, %v, want zero times", from, to)
	}
}

func TestParseTimeRange_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{
			name:  "bad from",
			query: "from=yesterday",
		},
		{
			name:  "bad to",
			query: "to=2026-13-45",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestContext(t, tt.query)
			if _, _, err := parseTimeRange(c); err == nil {
				t.Error("parseTimeRange() error = nil, want error")
			}
		})
	}
}
