package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/sentra-video/sentra/internal/supervisor"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		want     string
	}{
		{
			name: "error with details",
			apiError: &APIError{
				Code:    400,
				Message: "Bad Request",
				Details: "Invalid JSON format",
			},
			want: "Bad Request: Invalid JSON format",
		},
		{
			name: "error without details",
			apiError: &APIError{
				Code:    404,
				Message: "Not Found",
			},
			want: "Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.want {
				t.Errorf("APIError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBadRequestError(t *testing.T) {
	err := BadRequestError("Invalid input", "Field 'name' is required")

	if err.Code != http.StatusBadRequest {
		t.Errorf("BadRequestError().Code = %v, want %v", err.Code, http.StatusBadRequest)
	}
	if err.Message != "Invalid input" {
		t.Errorf("BadRequestError().Message = %v, want %v", err.Message, "Invalid input")
	}
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("Camera", "camera:123")

	if err.Code != http.StatusNotFound {
		t.Errorf("NotFoundError().Code = %v, want %v", err.Code, http.StatusNotFound)
	}
	if err.Message != "Camera not found" {
		t.Errorf("NotFoundError().Message = %v, want %v", err.Message, "Camera not found")
	}
	if err.Context["id"] != "camera:123" {
		t.Errorf("NotFoundError().Context[id] = %v, want %v", err.Context["id"], "camera:123")
	}
}

func TestValidationFailedError(t *testing.T) {
	fields := map[string]string{"name": "name is required"}
	err := ValidationFailedError("Camera validation failed", fields)

	if err.Code != http.StatusBadRequest {
		t.Errorf("ValidationFailedError().Code = %v, want %v", err.Code, http.StatusBadRequest)
	}
	if err.FieldError["name"] != "name is required" {
		t.Errorf("ValidationFailedError().FieldError[name] = %v, want %v", err.FieldError["name"], "name is required")
	}
}

func TestMapCameraError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name:     "unknown camera maps to 404",
			err:      supervisor.ErrUnknownCamera,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "already recording maps to 409",
			err:      supervisor.ErrAlreadyRecording,
			wantCode: http.StatusConflict,
		},
		{
			name:     "not recording maps to 404",
			err:      supervisor.ErrNotRecording,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "unavailable maps to 503",
			err:      supervisor.ErrUnavailable,
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "shutdown maps to 503",
			err:      supervisor.ErrShutdown,
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "unexpected error maps to 500",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapCameraError(tt.err, "camera:123")

			apiErr, ok := got.(*APIError)
			if !ok {
				t.Fatalf("mapCameraError() = %T, want *APIError", got)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("mapCameraError().Code = %v, want %v", apiErr.Code, tt.wantCode)
			}
		})
	}
}
