package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestValidateContentType(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantStatus  int
	}{
		{
			name:        "POST with application/json - valid",
			method:      "POST",
			contentType: "application/json",
			body:        `{"test":"data"}`,
			wantStatus:  http.StatusOK,
		},
		{
			name:        "POST with text/plain - invalid",
			method:      "POST",
			contentType: "text/plain",
			body:        "test data",
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "GET request - skip validation",
			method:      "GET",
			contentType: "text/html",
			body:        "",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "POST with empty body - valid",
			method:      "POST",
			contentType: "",
			body:        "",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "PUT with application/json and charset - valid",
			method:      "PUT",
			contentType: "application/json; charset=utf-8",
			body:        `{"test":"data"}`,
			wantStatus:  http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := ValidateContentType(func(c echo.Context) error {
				return c.String(http.StatusOK, "OK")
			})

			err := handler(c)

			if tt.wantStatus == http.StatusOK {
				if err != nil {
					t.Errorf("ValidateContentType() error = %v, want nil", err)
				}
			} else {
				if err == nil {
					t.Error("ValidateContentType() error = nil, want error")
				}
			}
		})
	}
}

func TestValidateAcceptHeader(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		accept  string
		wantErr bool
	}{
		{
			name:    "application/json accepted",
			path:    "/api/v1/cameras",
			accept:  "application/json",
			wantErr: false,
		},
		{
			name:    "wildcard accepted",
			path:    "/api/v1/cameras",
			accept:  "*/*",
			wantErr: false,
		},
		{
			name:    "missing header accepted",
			path:    "/api/v1/cameras",
			accept:  "",
			wantErr: false,
		},
		{
			name:    "text/html rejected",
			path:    "/api/v1/cameras",
			accept:  "text/html",
			wantErr: true,
		},
		{
			name:    "stream path bypasses check",
			path:    "/streams/camera:123/live/index.m3u8",
			accept:  "application/vnd.apple.mpegurl",
			wantErr: false,
		},
		{
			name:    "media path bypasses check",
			path:    "/media/snapshots/camera:123/snapshot.jpg",
			accept:  "image/jpeg",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := ValidateAcceptHeader(func(c echo.Context) error {
				return c.String(http.StatusOK, "OK")
			})

			err := handler(c)

			if tt.wantErr && err == nil {
				t.Error("ValidateAcceptHeader() error = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateAcceptHeader() error = %v, want nil", err)
			}
		})
	}
}

func TestValidateIDFormat(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{
			name:    "valid camera id",
			id:      "camera:ab3f6e1c",
			wantErr: false,
		},
		{
			name:    "no id param skips validation",
			id:      "",
			wantErr: false,
		},
		{
			name:    "id with space rejected",
			id:      "camera 123",
			wantErr: true,
		},
		{
			name:    "id with slash rejected",
			id:      "camera/123",
			wantErr: true,
		},
		{
			name:    "id with traversal rejected",
			id:      "..camera",
			wantErr: true,
		},
		{
			name:    "too short id rejected",
			id:      "ab",
			wantErr: true,
		},
		{
			name:    "too long id rejected",
			id:      strings.Repeat("a", 257),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.id != "" {
				c.SetParamNames("id")
				c.SetParamValues(tt.id)
			}

			handler := ValidateIDFormat(func(c echo.Context) error {
				return c.String(http.StatusOK, "OK")
			})

			err := handler(c)

			if tt.wantErr && err == nil {
				t.Error("ValidateIDFormat() error = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateIDFormat() error = %v, want nil", err)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := SecurityHeaders(func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	if err := handler(c); err != nil {
		t.Fatalf("SecurityHeaders() error = %v, want nil", err)
	}

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-XSS-Protection":       "1; mode=block",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("SecurityHeaders() %s = %v, want %v", header, got, value)
		}
	}
}
