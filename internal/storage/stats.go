package storage

import (
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/sentra-video/sentra/models"
)

// GetStatistics calculates and returns dashboard statistics. Disk usage
// figures are best effort and stay nil when the media directory cannot
// be inspected.
func (s *Storage) GetStatistics() (*models.SystemStats, error) {
	stats := &models.SystemStats{}

	cameras, err := s.ListCameras(nil)
	if err != nil {
		return nil, err
	}
	stats.TotalCameras = len(cameras)
	for _, camera := range cameras {
		if camera.Status == models.CameraStatusOnline {
			stats.CamerasOnline++
		}
	}

	for _, camera := range cameras {
		active, err := s.GetActiveRecording(camera.ID)
		if err != nil {
			return nil, err
		}
		if active != nil {
			stats.ActiveRecordings++
		}
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	count, err := s.CountANPREventsSince(midnight)
	if err != nil {
		return nil, err
	}
	stats.ANPREventsToday = count

	if usage, err := disk.Usage(s.config.Media.BaseDir); err == nil {
		stats.StorageUsed = &usage.Used
		stats.StorageTotal = &usage.Total
	} else {
		s.debugLog("disk usage unavailable for %s: %v", s.config.Media.BaseDir, err)
	}

	return stats, nil
}
