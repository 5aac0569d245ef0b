package api

import (
	"testing"
	"time"

	"github.com/sentra-video/sentra/internal/config"
	"github.com/sentra-video/sentra/models"
)

func TestSnapshotURL(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "path under snapshots tree",
			path: "/data/media/snapshots/camera:123/snapshot_2026.jpg",
			want: "/media/snapshots/camera:123/snapshot_2026.jpg",
		},
		{
			name: "empty path",
			path: "",
			want: "",
		},
		{
			name: "path outside snapshots tree",
			path: "/data/media/records/camera:123/clip.mp4",
			want: "",
		},
		{
			name: "path escaping the base dir",
			path: "/etc/passwd",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snapshotURL(tt.path, "/data/media"); got != tt.want {
				t.Errorf("snapshotURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordingResponse(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	rec := &models.Recording{
		ID:          "recording:abc",
		CameraID:    "camera:123",
		Date:        "2026-03-01",
		StartTime:   start,
		EndTime:     &end,
		DurationSec: 3600,
		SizeBytes:   1024,
		Format:      "mp4",
	}

	resp := recordingResponse(rec)

	if resp.ID != "recording:abc" {
		t.Errorf("recordingResponse().ID = %v, want %v", resp.ID, "recording:abc")
	}
	if resp.Active {
		t.Error("recordingResponse().Active = true, want false")
	}
	if want := "/api/v1/recordings/recording:abc/download"; resp.DownloadURL != want {
		t.Errorf("recordingResponse().DownloadURL = %v, want %v", resp.DownloadURL, want)
	}
}

func TestRecordingResponse_Active(t *testing.T) {
	rec := &models.Recording{
		ID:        "recording:live",
		CameraID:  "camera:123",
		StartTime: time.Now(),
	}

	if resp := recordingResponse(rec); !resp.Active {
		t.Error("recordingResponse().Active = false, want true")
	}
}

func TestMediaURL(t *testing.T) {
	cfg := &config.Config{}
	s := &Server{config: cfg}

	if got := s.mediaURL("/streams/camera:1/live/index.m3u8"); got != "/streams/camera:1/live/index.m3u8" {
		t.Errorf("mediaURL() without base = %v", got)
	}

	cfg.Media.BaseURL = "https://media.example.com/"
	if got, want := s.mediaURL("/media/snapshots/x.jpg"), "https://media.example.com/media/snapshots/x.jpg"; got != want {
		t.Errorf("mediaURL() = %v, want %v", got, want)
	}

	if got := s.mediaURL(""); got != "" {
		t.Errorf("mediaURL(empty) = %v, want empty", got)
	}
}
