package storage

import (
	"fmt"
	"sort"
	"time"

	"eve.evalgo.org/db"

	"github.com/sentra-video/sentra/models"
)

// SaveCamera saves a camera document to the database.
func (s *Storage) SaveCamera(camera *models.Camera) error {
	// Set JSON-LD context and type if not set
	if camera.Context == "" {
		camera.Context = defaultContext
	}
	if camera.Type == "" {
		camera.Type = TypeCamera
	}

	resp, err := s.service.SaveGenericDocument(camera)

	// If we get a conflict, fetch the existing document and retry with its revision
	if err != nil {
		if couchErr, ok := err.(*db.CouchDBError); ok && couchErr.IsConflict() {
			existing, getErr := s.GetCamera(camera.ID)
			if getErr == nil {
				camera.Rev = existing.Rev
				resp, err = s.service.SaveGenericDocument(camera)
			}
		}
	}
	if err != nil {
		return fmt.Errorf("failed to save camera: %w", err)
	}

	camera.Rev = resp.Rev
	return nil
}

// GetCamera retrieves a camera by ID.
func (s *Storage) GetCamera(id string) (*models.Camera, error) {
	var camera models.Camera
	if err := s.service.GetGenericDocument(id, &camera); err != nil {
		return nil, err
	}
	return &camera, nil
}

// DeleteCamera deletes a camera by ID. A missing camera is treated as
// already deleted.
func (s *Storage) DeleteCamera(id string) error {
	camera, err := s.GetCamera(id)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}

	if err := s.service.DeleteDocument(id, camera.Rev); err != nil {
		return fmt.Errorf("failed to delete camera: %w", err)
	}
	return nil
}

// ListCameras retrieves all cameras matching the given filters, sorted by
// name.
func (s *Storage) ListCameras(filters map[string]interface{}) ([]*models.Camera, error) {
	qb := db.NewQueryBuilder().
		Where("@type", "$eq", TypeCamera)

	for field, value := range filters {
		qb = qb.And().Where(field, "$eq", value)
	}

	query := qb.Build()

	s.debugLog("ListCameras query selector: %+v", query.Selector)

	cameras, err := db.FindTyped[models.Camera](s.service, query)
	if err != nil {
		return nil, err
	}

	result := make([]*models.Camera, len(cameras))
	for i := range cameras {
		result[i] = &cameras[i]
	}

	// Sort in Go rather than in Mango so no extra sort index is required.
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// UpdateCameraStatus updates only the status, last-seen timestamp and
// observed stream metadata of a camera, retrying on revision conflicts so
// concurrent supervisor and API writes both land.
func (s *Storage) UpdateCameraStatus(id, status string, observed *models.StreamMetadata) (*models.Camera, error) {
	for attempt := 0; attempt < 3; attempt++ {
		camera, err := s.GetCamera(id)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		camera.Status = status
		camera.LastSeen = &now
		if observed != nil {
			camera.Observed = observed
		}
		camera.Modified = now

		resp, err := s.service.SaveGenericDocument(camera)
		if err != nil {
			if IsConflict(err) {
				continue
			}
			return nil, fmt.Errorf("failed to update camera status: %w", err)
		}

		camera.Rev = resp.Rev
		return camera, nil
	}

	return nil, fmt.Errorf("failed to update camera status: too many conflicts for %s", id)
}
