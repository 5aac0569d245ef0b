package storage

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"eve.evalgo.org/db"

	"github.com/sentra-video/sentra/models"
)

// ANPREventFilter narrows ListANPREvents results. Zero values mean
// "no constraint". Plate matches as a case-insensitive substring.
type ANPREventFilter struct {
	CameraID string
	Plate    string
	From     time.Time
	To       time.Time
	Limit    int
}

// SaveANPREvent saves an ANPR event document to the database.
func (s *Storage) SaveANPREvent(event *models.ANPREvent) error {
	// Set JSON-LD context and type if not set
	if event.Context == "" {
		event.Context = defaultContext
	}
	if event.Type == "" {
		event.Type = TypeANPREvent
	}

	resp, err := s.service.SaveGenericDocument(event)
	if err != nil {
		return fmt.Errorf("failed to save ANPR event: %w", err)
	}

	event.Rev = resp.Rev
	return nil
}

// GetANPREvent retrieves an ANPR event by ID.
func (s *Storage) GetANPREvent(id string) (*models.ANPREvent, error) {
	var event models.ANPREvent
	if err := s.service.GetGenericDocument(id, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListANPREvents retrieves ANPR events matching the filter, newest first.
func (s *Storage) ListANPREvents(filter ANPREventFilter) ([]*models.ANPREvent, error) {
	qb := db.NewQueryBuilder().
		Where("@type", "$eq", TypeANPREvent)

	if filter.CameraID != "" {
		qb = qb.And().Where("cameraId", "$eq", filter.CameraID)
	}
	if filter.Plate != "" {
		qb = qb.And().Where("plate", "$regex", "(?i)"+regexp.QuoteMeta(filter.Plate))
	}
	if !filter.From.IsZero() {
		qb = qb.And().Where("timestamp", "$gte", filter.From.Format(time.RFC3339))
	}
	if !filter.To.IsZero() {
		qb = qb.And().Where("timestamp", "$lte", filter.To.Format(time.RFC3339))
	}

	query := qb.Build()

	s.debugLog("ListANPREvents query selector: %+v", query.Selector)

	events, err := db.FindTyped[models.ANPREvent](s.service, query)
	if err != nil {
		return nil, err
	}

	result := make([]*models.ANPREvent, len(events))
	for i := range events {
		result[i] = &events[i]
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result, nil
}

// CountANPREventsSince returns the number of ANPR events recorded at or
// after the given time.
func (s *Storage) CountANPREventsSince(since time.Time) (int, error) {
	query := db.NewQueryBuilder().
		Where("@type", "$eq", TypeANPREvent).
		And().
		Where("timestamp", "$gte", since.Format(time.RFC3339)).
		Build()

	events, err := db.FindTyped[models.ANPREvent](s.service, query)
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

// ANPREventsOlderThan retrieves ANPR events recorded before the cutoff.
func (s *Storage) ANPREventsOlderThan(cutoff time.Time) ([]*models.ANPREvent, error) {
	query := db.NewQueryBuilder().
		Where("@type", "$eq", TypeANPREvent).
		And().
		Where("timestamp", "$lt", cutoff.Format(time.RFC3339)).
		Build()

	events, err := db.FindTyped[models.ANPREvent](s.service, query)
	if err != nil {
		return nil, err
	}

	result := make([]*models.ANPREvent, len(events))
	for i := range events {
		result[i] = &events[i]
	}
	return result, nil
}

// DeleteANPREvent deletes an ANPR event document by ID.
func (s *Storage) DeleteANPREvent(id string) error {
	event, err := s.GetANPREvent(id)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}

	if err := s.service.DeleteDocument(id, event.Rev); err != nil {
		return fmt.Errorf("failed to delete ANPR event: %w", err)
	}
	return nil
}

// DeleteANPREventsForCamera removes all ANPR event documents that belong
// to a camera. Used when a camera is deleted.
func (s *Storage) DeleteANPREventsForCamera(cameraID string) (int, error) {
	events, err := s.ListANPREvents(ANPREventFilter{CameraID: cameraID})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, event := range events {
		if err := s.service.DeleteDocument(event.ID, event.Rev); err != nil {
			if IsNotFound(err) {
				continue
			}
			return deleted, fmt.Errorf("failed to delete ANPR event %s: %w", event.ID, err)
		}
		deleted++
	}

	return deleted, nil
}
