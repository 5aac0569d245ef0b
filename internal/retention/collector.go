// Package retention implements the background sweeper that deletes
// recordings past their camera's retention window. Files are removed
// before rows so a crash can only leave an orphaned row, never an
// unreferenced file, and the next sweep picks the row up again.
package retention

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/sentra-video/sentra/internal/storage"
	"github.com/sentra-video/sentra/models"
)

// Store is the slice of the metadata store the collector operates on.
type Store interface {
	ListCameras(filters map[string]interface{}) ([]*models.Camera, error)
	ListRecordings(filter storage.RecordingFilter) ([]*models.Recording, error)
	DeleteRecording(id string) error
}

// Collector sweeps expired recordings once per interval and once at
// startup.
type Collector struct {
	store    Store
	interval time.Duration
	now      func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// New creates a collector. Interval <= 0 selects the 24 h default.
func New(store Store, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Collector{
		store:    store,
		interval: interval,
		now:      time.Now,
	}
}

// Start launches the sweep loop. The first sweep runs immediately.
func (c *Collector) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.Sweep()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight sweep.
func (c *Collector) Stop() {
	c.once.Do(func() {
		if c.cancel != nil {
			c.cancel()
			<-c.done
		}
	})
}

// Sweep deletes every finalized recording older than its camera's
// retention window. In-progress recordings are never touched. A missing
// file is not an error; the row is deleted regardless.
func (c *Collector) Sweep() {
	cameras, err := c.store.ListCameras(nil)
	if err != nil {
		log.Printf("retention sweep: failed to list cameras: %v", err)
		return
	}

	total := 0
	for _, cam := range cameras {
		days := cam.Recording.RetentionDays
		if days < 1 {
			continue
		}
		cutoff := c.now().AddDate(0, 0, -days)

		recordings, err := c.store.ListRecordings(storage.RecordingFilter{
			CameraID: cam.ID,
			To:       cutoff,
		})
		if err != nil {
			log.Printf("retention sweep %s: %v", cam.ID, err)
			continue
		}

		for _, rec := range recordings {
			if rec.EndTime == nil {
				continue
			}
			if !rec.StartTime.Before(cutoff) {
				continue
			}

			if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
				log.Printf("retention sweep %s: failed to remove %s: %v", cam.ID, rec.Path, err)
				continue
			}
			if err := c.store.DeleteRecording(rec.ID); err != nil {
				log.Printf("retention sweep %s: failed to delete row %s: %v", cam.ID, rec.ID, err)
				continue
			}
			total++
		}
	}

	if total > 0 {
		log.Printf("retention sweep removed %d expired recordings", total)
	}
}
