package anpr

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sentra-video/sentra/internal/bus"
	"github.com/sentra-video/sentra/internal/transcoder"
	"github.com/sentra-video/sentra/models"
)

// FrameSource grabs still frames from a camera stream.
type FrameSource interface {
	ExtractFrame(ctx context.Context, ingressURL, outputPath string) error
	SnapshotsDir(cameraID string) string
}

// EventStore persists accepted ANPR events.
type EventStore interface {
	SaveANPREvent(event *models.ANPREvent) error
}

// Publisher is the slice of the event bus the worker publishes on.
type Publisher interface {
	Publish(topic string, payload interface{})
}

// SecretOpener decrypts sealed camera credentials.
type SecretOpener interface {
	Open(ciphertext string) (string, error)
}

// Archiver copies accepted snapshots to long-term object storage. It is
// optional and best effort.
type Archiver interface {
	Store(ctx context.Context, localPath string) (string, error)
}

// WorkerDeps carries the collaborators shared by all per-camera workers.
type WorkerDeps struct {
	Frames       FrameSource
	Detector     Detector
	Extractor    Extractor
	Store        EventStore
	Bus          Publisher
	Secrets      SecretOpener
	Archiver     Archiver // optional
	FrameTimeout time.Duration
	Debug        bool
}

// Worker is one camera's recognition loop.
type Worker struct {
	deps  WorkerDeps
	dedup *Deduper

	mu     sync.Mutex
	cam    *models.Camera
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker creates a stopped worker for one camera.
func NewWorker(cam *models.Camera, deps WorkerDeps) *Worker {
	return &Worker{
		deps:  deps,
		dedup: NewDeduper(),
		cam:   cam,
	}
}

func (w *Worker) debugLog(format string, args ...interface{}) {
	if w.deps.Debug {
		log.Printf(format, args...)
	}
}

// interval derives the sampling period from the camera policy.
func interval(cam *models.Camera) time.Duration {
	n := cam.ANPR.SampleEveryNFrames
	if n < 1 {
		n = 1
	}
	return time.Duration(n) * time.Second
}

// Start launches the periodic loop. Idempotent while running.
func (w *Worker) Start(cam *models.Camera) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cam = cam
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.loop(ctx, w.done)
}

// Update swaps in a mutated camera document. A changed sampling interval
// takes effect on the next tick.
func (w *Worker) Update(cam *models.Camera) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cam = cam
}

// Stop halts the loop and waits for an in-flight tick. Idempotent.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.cancel = nil
	w.done = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// TriggerOnce runs one immediate recognition pass, bypassing the
// sampling interval but not the dedup filter. It returns the first
// accepted event, or nil when the frame held no new plate.
func (w *Worker) TriggerOnce(ctx context.Context) (*models.ANPREvent, error) {
	return w.tick(ctx)
}

func (w *Worker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		w.mu.Lock()
		period := interval(w.cam)
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(period):
		}

		if _, err := w.tick(ctx); err != nil && ctx.Err() == nil {
			// A failed tick is logged and the loop continues; the next
			// sample starts from a clean slate.
			log.Printf("anpr %s: %v", w.cameraID(), err)
		}
	}
}

func (w *Worker) cameraID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cam.ID
}

func (w *Worker) snapshot() *models.Camera {
	w.mu.Lock()
	defer w.mu.Unlock()
	copied := *w.cam
	return &copied
}

// tick runs one full sample: frame grab, detection, extraction,
// acceptance, dedup, persistence and fan-out. The temporary frame file
// is removed on every exit path.
func (w *Worker) tick(ctx context.Context) (*models.ANPREvent, error) {
	cam := w.snapshot()

	url, err := w.resolveURL(cam)
	if err != nil {
		return nil, err
	}

	framePath := filepath.Join(os.TempDir(), fmt.Sprintf("anpr-%d.jpg", time.Now().UnixNano()))
	defer os.Remove(framePath)

	frameCtx, cancel := context.WithTimeout(ctx, w.deps.FrameTimeout)
	err = w.deps.Frames.ExtractFrame(frameCtx, url, framePath)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("frame extraction failed: %w", err)
	}

	detections, err := w.deps.Detector.Detect(ctx, framePath)
	if err != nil {
		return nil, err
	}
	w.debugLog("anpr %s: %d candidate regions", cam.ID, len(detections))

	var first *models.ANPREvent
	retained := ""

	for _, det := range detections {
		if det.Confidence < cam.ANPR.ConfidenceThreshold {
			continue
		}

		plate, err := w.deps.Extractor.Extract(ctx, framePath, det.Box)
		if err != nil {
			log.Printf("anpr %s: %v", cam.ID, err)
			continue
		}
		if plate == "" {
			continue
		}
		// A stopped worker lets the in-flight tick finish but drops its
		// event instead of persisting or publishing it.
		if ctx.Err() != nil {
			return first, ctx.Err()
		}
		if !w.dedup.Admit(plate) {
			w.debugLog("anpr %s: suppressed duplicate %s", cam.ID, plate)
			continue
		}

		if retained == "" {
			retained, err = w.retainSnapshot(cam.ID, framePath)
			if err != nil {
				return first, err
			}
		}

		event := &models.ANPREvent{
			ID:           models.GenerateID("anpr"),
			CameraID:     cam.ID,
			Timestamp:    time.Now(),
			Plate:        plate,
			Confidence:   det.Confidence,
			SnapshotPath: retained,
			Box:          det.Box,
			DetectorMeta: det.Meta,
		}
		if err := w.deps.Store.SaveANPREvent(event); err != nil {
			return first, err
		}
		w.deps.Bus.Publish(bus.TopicANPREvent, event)
		w.archive(event)

		if first == nil {
			first = event
		}
	}

	return first, nil
}

// retainSnapshot copies the sampled frame into the camera's snapshot
// directory so the event keeps its evidence after the temp file is gone.
func (w *Worker) retainSnapshot(cameraID, framePath string) (string, error) {
	dir := w.deps.Frames.SnapshotsDir(cameraID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	dest := filepath.Join(dir, "anpr_"+models.FilenameTimestamp(time.Now())+".jpg")
	if err := copyFile(framePath, dest); err != nil {
		return "", fmt.Errorf("failed to retain snapshot: %w", err)
	}
	return dest, nil
}

func (w *Worker) archive(event *models.ANPREvent) {
	if w.deps.Archiver == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := w.deps.Archiver.Store(ctx, event.SnapshotPath); err != nil {
			log.Printf("anpr %s: snapshot archive failed: %v", event.CameraID, err)
		}
	}()
}

func (w *Worker) resolveURL(cam *models.Camera) (string, error) {
	password := ""
	if cam.SealedPassword != "" {
		opened, err := w.deps.Secrets.Open(cam.SealedPassword)
		if err != nil {
			return "", fmt.Errorf("failed to open camera credentials: %w", err)
		}
		password = opened
	}
	return transcoder.ResolveIngressURL(cam.IngressURL, cam.Username, password)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
