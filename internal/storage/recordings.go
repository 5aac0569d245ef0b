package storage

import (
	"fmt"
	"sort"
	"time"

	"eve.evalgo.org/db"

	"github.com/sentra-video/sentra/models"
)

// RecordingFilter narrows ListRecordings results. Zero values mean
// "no constraint".
type RecordingFilter struct {
	CameraID string
	From     time.Time
	To       time.Time
}

// SaveRecording saves a recording document to the database.
func (s *Storage) SaveRecording(rec *models.Recording) error {
	// Set JSON-LD context and type if not set
	if rec.Context == "" {
		rec.Context = defaultContext
	}
	if rec.Type == "" {
		rec.Type = TypeRecording
	}

	resp, err := s.service.SaveGenericDocument(rec)

	// If we get a conflict, fetch the existing document and retry with its revision
	if err != nil {
		if couchErr, ok := err.(*db.CouchDBError); ok && couchErr.IsConflict() {
			existing, getErr := s.GetRecording(rec.ID)
			if getErr == nil {
				rec.Rev = existing.Rev
				resp, err = s.service.SaveGenericDocument(rec)
			}
		}
	}
	if err != nil {
		return fmt.Errorf("failed to save recording: %w", err)
	}

	rec.Rev = resp.Rev
	return nil
}

// GetRecording retrieves a recording by ID.
func (s *Storage) GetRecording(id string) (*models.Recording, error) {
	var rec models.Recording
	if err := s.service.GetGenericDocument(id, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteRecording deletes a recording document by ID. The segment file on
// disk is the caller's responsibility.
func (s *Storage) DeleteRecording(id string) error {
	rec, err := s.GetRecording(id)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}

	if err := s.service.DeleteDocument(id, rec.Rev); err != nil {
		return fmt.Errorf("failed to delete recording: %w", err)
	}
	return nil
}

// ListRecordings retrieves recordings matching the filter, newest first.
func (s *Storage) ListRecordings(filter RecordingFilter) ([]*models.Recording, error) {
	qb := db.NewQueryBuilder().
		Where("@type", "$eq", TypeRecording)

	if filter.CameraID != "" {
		qb = qb.And().Where("cameraId", "$eq", filter.CameraID)
	}
	if !filter.From.IsZero() {
		qb = qb.And().Where("startTime", "$gte", filter.From.Format(time.RFC3339))
	}
	if !filter.To.IsZero() {
		qb = qb.And().Where("startTime", "$lte", filter.To.Format(time.RFC3339))
	}

	query := qb.Build()

	s.debugLog("ListRecordings query selector: %+v", query.Selector)

	recordings, err := db.FindTyped[models.Recording](s.service, query)
	if err != nil {
		return nil, err
	}

	result := make([]*models.Recording, len(recordings))
	for i := range recordings {
		result[i] = &recordings[i]
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.After(result[j].StartTime)
	})

	return result, nil
}

// GetActiveRecording returns the recording for a camera that has not been
// finalized yet, or nil when the camera is not recording.
func (s *Storage) GetActiveRecording(cameraID string) (*models.Recording, error) {
	query := db.MangoQuery{
		Selector: map[string]interface{}{
			"@type":    TypeRecording,
			"cameraId": cameraID,
			"endTime":  nil,
		},
	}

	recordings, err := db.FindTyped[models.Recording](s.service, query)
	if err != nil {
		return nil, err
	}
	if len(recordings) == 0 {
		return nil, nil
	}

	// More than one open recording means a crashed finalization; surface
	// the newest one so the supervisor can close it.
	active := &recordings[0]
	for i := range recordings {
		if recordings[i].StartTime.After(active.StartTime) {
			active = &recordings[i]
		}
	}
	return active, nil
}

// RecordingsOlderThan retrieves finalized recordings whose start time is
// before the cutoff, oldest first.
func (s *Storage) RecordingsOlderThan(cutoff time.Time) ([]*models.Recording, error) {
	query := db.NewQueryBuilder().
		Where("@type", "$eq", TypeRecording).
		And().
		Where("startTime", "$lt", cutoff.Format(time.RFC3339)).
		Build()

	recordings, err := db.FindTyped[models.Recording](s.service, query)
	if err != nil {
		return nil, err
	}

	result := make([]*models.Recording, 0, len(recordings))
	for i := range recordings {
		if recordings[i].EndTime == nil {
			continue
		}
		result = append(result, &recordings[i])
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})

	return result, nil
}

// DeleteRecordingsForCamera removes all recording documents that belong
// to a camera. Used when a camera is deleted.
func (s *Storage) DeleteRecordingsForCamera(cameraID string) (int, error) {
	recordings, err := s.ListRecordings(RecordingFilter{CameraID: cameraID})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, rec := range recordings {
		if err := s.service.DeleteDocument(rec.ID, rec.Rev); err != nil {
			if IsNotFound(err) {
				continue
			}
			return deleted, fmt.Errorf("failed to delete recording %s: %w", rec.ID, err)
		}
		deleted++
	}

	return deleted, nil
}
