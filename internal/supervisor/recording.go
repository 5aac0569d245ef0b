package supervisor

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/sentra-video/sentra/internal/bus"
	"github.com/sentra-video/sentra/models"
)

// activeRecording couples the recorder child with the open metadata row.
type activeRecording struct {
	handle Handle
	row    *models.Recording
}

// BeginRecording starts a manual recording. It fails with
// ErrAlreadyRecording when one is active and ErrUnavailable when the
// camera is not online.
func (s *Supervisor) BeginRecording() (string, error) {
	var id string
	var cmdErr error
	if err := s.do(func() {
		if s.state != StateOnline {
			cmdErr = ErrUnavailable
			return
		}
		if s.rec != nil {
			cmdErr = ErrAlreadyRecording
			return
		}
		cmdErr = s.beginRecordingLocked()
		if cmdErr == nil {
			id = s.recRow.ID
		}
	}); err != nil {
		return "", err
	}
	return id, cmdErr
}

// beginRecordingLocked spawns the recorder child and creates the open
// recording row. Loop goroutine only.
func (s *Supervisor) beginRecordingLocked() error {
	url, err := s.resolveURL()
	if err != nil {
		return err
	}

	now := time.Now()
	date := now.Format("2006-01-02")
	dir := s.deps.Driver.RecordingsDir(s.cameraID, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create recordings directory: %w", err)
	}

	row := &models.Recording{
		ID:        models.GenerateID("recording"),
		CameraID:  s.cameraID,
		Date:      date,
		StartTime: now,
		Path:      filepath.Join(dir, models.FilenameTimestamp(now)+".mp4"),
		Format:    "mp4",
		Observed:  s.cam.Observed,
	}
	if err := s.deps.Store.SaveRecording(row); err != nil {
		return err
	}

	handle, err := s.deps.Driver.StartRecording(s.cameraID, url, row.Path)
	if err != nil {
		// Roll the row back into a finalized zero-length marker so no
		// open recording lingers for a child that never ran.
		row.Finalize(time.Now(), 0)
		if saveErr := s.deps.Store.SaveRecording(row); saveErr != nil {
			log.Printf("camera %s: failed to close aborted recording row: %v", s.cameraID, saveErr)
		}
		return fmt.Errorf("failed to spawn recorder: %w", err)
	}

	s.rec = handle
	s.recRow = row
	s.recGen++
	gen := s.recGen

	go func() {
		<-handle.Done()
		s.postEvent(internalEvent{kind: evRecordingExited, gen: gen})
	}()

	if s.cam.Recording.Mode == models.RecordingModeContinuous && s.cam.Recording.SegmentSeconds > 0 {
		s.rollTimer = time.NewTimer(time.Duration(s.cam.Recording.SegmentSeconds) * time.Second)
	}

	s.deps.Bus.Publish(bus.TopicRecordingStarted, row)
	return nil
}

// detachRecording removes the active recording from loop state so the
// exit watcher and roll timer go quiet. Loop goroutine only.
func (s *Supervisor) detachRecording() *activeRecording {
	if s.rec == nil {
		return nil
	}
	active := &activeRecording{handle: s.rec, row: s.recRow}
	s.rec = nil
	s.recRow = nil
	s.recGen++
	if s.rollTimer != nil {
		s.rollTimer.Stop()
		s.rollTimer = nil
	}
	return active
}

// finalizeRecording terminates the recorder child (when still attached),
// stamps the row with the observed end time and file size, persists it
// and announces the stop. Safe to call off the loop goroutine because
// the recording was detached first.
func (s *Supervisor) finalizeRecording(active *activeRecording, endedAt *time.Time) *models.Recording {
	if active == nil {
		return nil
	}
	if active.handle != nil {
		active.handle.Terminate()
	}

	end := time.Now()
	if endedAt != nil {
		end = *endedAt
	}

	var size int64
	if info, err := os.Stat(active.row.Path); err == nil {
		size = info.Size()
	}

	active.row.Finalize(end, size)
	if err := s.deps.Store.SaveRecording(active.row); err != nil {
		log.Printf("camera %s: failed to finalize recording %s: %v", s.cameraID, active.row.ID, err)
	}

	s.deps.Bus.Publish(bus.TopicRecordingStopped, active.row)
	return active.row
}

// EndRecording stops the active recording and returns the finalized row.
func (s *Supervisor) EndRecording() (*models.Recording, error) {
	var active *activeRecording
	var cmdErr error
	if err := s.do(func() {
		if s.rec == nil {
			cmdErr = ErrNotRecording
			return
		}
		active = s.detachRecording()
	}); err != nil {
		return nil, err
	}
	if cmdErr != nil {
		return nil, cmdErr
	}
	return s.finalizeRecording(active, nil), nil
}

// rollRecording closes the current continuous segment and opens the next
// one. Loop goroutine only.
func (s *Supervisor) rollRecording() {
	if s.rec == nil || s.state != StateOnline {
		return
	}
	active := s.detachRecording()
	go s.finalizeRecording(active, nil)

	if err := s.beginRecordingLocked(); err != nil {
		log.Printf("camera %s: failed to roll recording segment: %v", s.cameraID, err)
	}
}

// Snapshot grabs one frame from the live camera and returns its absolute
// path. Only available while Online.
func (s *Supervisor) Snapshot(ctx context.Context) (string, error) {
	var url string
	var cmdErr error
	if err := s.do(func() {
		if s.state != StateOnline {
			cmdErr = ErrUnavailable
			return
		}
		url, cmdErr = s.resolveURL()
	}); err != nil {
		return "", err
	}
	if cmdErr != nil {
		return "", cmdErr
	}

	path := filepath.Join(s.deps.Driver.SnapshotsDir(s.cameraID), models.FilenameTimestamp(time.Now())+".jpg")
	if err := s.deps.Driver.Snapshot(ctx, url, path); err != nil {
		return "", err
	}
	return path, nil
}

// TriggerANPR runs one immediate ANPR pass, bypassing the sampling
// interval. The dedup filter still applies.
func (s *Supervisor) TriggerANPR(ctx context.Context) (*models.ANPREvent, error) {
	var runner ANPRRunner
	var cmdErr error
	if err := s.do(func() {
		if s.deps.ANPR == nil {
			cmdErr = ErrUnavailable
			return
		}
		if s.state != StateOnline {
			cmdErr = ErrUnavailable
			return
		}
		runner = s.deps.ANPR
	}); err != nil {
		return nil, err
	}
	if cmdErr != nil {
		return nil, cmdErr
	}
	return runner.TriggerOnce(ctx)
}

// UpdateConfig applies a mutated camera document and reports whether the
// document content actually differed. A changed ingress URL or credential
// set restarts the pipeline; an active recording survives unless the URL
// changed, in which case it is finalized and resumed once the pipeline is
// back. An identical document is a no-op.
func (s *Supervisor) UpdateConfig(next *models.Camera) (bool, error) {
	var changed bool
	err := s.do(func() {
		prev := s.cam
		if prev.SameConfig(next) {
			return
		}
		changed = true
		pipelineChanged := prev.PipelineConfigChanged(next)
		urlChanged := prev.IngressURL != next.IngressURL
		s.cam = next

		if s.deps.ANPR != nil {
			switch {
			case next.ANPR.Enabled && !prev.ANPR.Enabled && s.state == StateOnline:
				s.deps.ANPR.Start(next)
			case !next.ANPR.Enabled && prev.ANPR.Enabled:
				s.deps.ANPR.Stop()
			case next.ANPR.Enabled:
				s.deps.ANPR.Update(next)
			}
		}

		if pipelineChanged && s.state != StateIdle && s.state != StateFailed {
			s.restartLocked(urlChanged)
			return
		}

		// Recording policy transitions outside a pipeline restart.
		switch {
		case next.Recording.Mode == models.RecordingModeOff && s.rec != nil:
			active := s.detachRecording()
			go s.finalizeRecording(active, nil)
		case next.Recording.Mode == models.RecordingModeContinuous && s.rec == nil && s.state == StateOnline:
			if err := s.beginRecordingLocked(); err != nil {
				log.Printf("camera %s: failed to start continuous recording: %v", s.cameraID, err)
			}
		}
	})
	return changed, err
}

// Recording reports whether a recording is active and its id.
func (s *Supervisor) Recording() (string, bool) {
	var id string
	var active bool
	_ = s.do(func() {
		if s.recRow != nil {
			id = s.recRow.ID
			active = true
		}
	})
	return id, active
}
