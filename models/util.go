package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateID generates a unique ID with the given prefix
// Example: GenerateID("camera") -> "camera:uuid-here"
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s:%s", prefix, uuid.New().String())
}

// FilenameTimestamp renders t as an RFC 3339 timestamp safe for file
// names: ':' and '.' are replaced with '-'.
func FilenameTimestamp(t time.Time) string {
	s := t.UTC().Format("2006-01-02T15:04:05.000Z")
	s = strings.ReplaceAll(s, ":", "-")
	s = strings.ReplaceAll(s, ".", "-")
	return s
}

// SystemStats aggregates counters for the stats endpoint.
type SystemStats struct {
	TotalCameras     int     `json:"totalCameras"`
	CamerasOnline    int     `json:"camerasOnline"`
	ActiveRecordings int     `json:"activeRecordings"`
	ANPREventsToday  int     `json:"anprEventsToday"`
	StorageUsed      *uint64 `json:"storageUsedBytes,omitempty"`
	StorageTotal     *uint64 `json:"storageTotalBytes,omitempty"`
}
