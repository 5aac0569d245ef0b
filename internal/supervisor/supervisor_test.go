package supervisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-video/sentra/internal/bus"
	"github.com/sentra-video/sentra/models"
)

type fakeHandle struct {
	done chan struct{}
	once sync.Once
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{done: make(chan struct{})}
}

func (h *fakeHandle) Done() <-chan struct{} { return h.done }
func (h *fakeHandle) ExitCode() int         { return 0 }
func (h *fakeHandle) Terminate()            { h.exit() }
func (h *fakeHandle) exit()                 { h.once.Do(func() { close(h.done) }) }

type fakeDriver struct {
	mu        sync.Mutex
	liveCount int
	recCount  int
	lastURL   string
	live      *fakeHandle
	rec       *fakeHandle
	snapshots []string
	failLive  bool
	tmp       string
}

func (d *fakeDriver) StartLive(cameraID, ingressURL string) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failLive {
		return nil, errors.New("spawn failed")
	}
	d.liveCount++
	d.lastURL = ingressURL
	d.live = newFakeHandle()
	return d.live, nil
}

func (d *fakeDriver) StartRecording(cameraID, ingressURL, outputPath string) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recCount++
	d.rec = newFakeHandle()
	return d.rec, nil
}

func (d *fakeDriver) Snapshot(ctx context.Context, ingressURL, outputPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snapshots = append(d.snapshots, outputPath)
	return nil
}

func (d *fakeDriver) LiveDir(cameraID string) string             { return d.tmp + "/live" }
func (d *fakeDriver) RecordingsDir(cameraID, date string) string { return d.tmp + "/records/" + date }
func (d *fakeDriver) SnapshotsDir(cameraID string) string        { return d.tmp + "/snapshots" }

func (d *fakeDriver) currentLive() *fakeHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

func (d *fakeDriver) lives() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.liveCount
}

type fakeStore struct {
	mu         sync.Mutex
	cam        *models.Camera
	recordings map[string]*models.Recording
	statuses   []string
}

func newFakeStore(cam *models.Camera) *fakeStore {
	return &fakeStore{cam: cam, recordings: make(map[string]*models.Recording)}
}

func (s *fakeStore) SaveRecording(rec *models.Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := *rec
	s.recordings[rec.ID] = &saved
	return nil
}

func (s *fakeStore) GetActiveRecording(cameraID string) (*models.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.recordings {
		if rec.CameraID == cameraID && rec.EndTime == nil {
			return rec, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) UpdateCameraStatus(id, status string, observed *models.StreamMetadata) (*models.Camera, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam.Status = status
	now := time.Now()
	s.cam.LastSeen = &now
	if observed != nil {
		s.cam.Observed = observed
	}
	s.statuses = append(s.statuses, status)
	copied := *s.cam
	return &copied, nil
}

func (s *fakeStore) recording(id string) *models.Recording {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordings[id]
}

type fakeSecrets struct{}

func (fakeSecrets) Open(ciphertext string) (string, error) { return ciphertext, nil }

func instantReady(liveDir string, cancel <-chan struct{}, timeout time.Duration) error {
	return nil
}

func testCamera() *models.Camera {
	return &models.Camera{
		ID:         "camera:test",
		Name:       "lobby",
		IngressURL: "rtsp://cam.local/stream",
		Status:     models.CameraStatusOffline,
		Recording: models.RecordingPolicy{
			Mode:           models.RecordingModeManual,
			SegmentSeconds: 30,
			RetentionDays:  7,
		},
	}
}

func newTestSupervisor(t *testing.T, cam *models.Camera, driver *fakeDriver) (*Supervisor, *fakeStore, *bus.Bus) {
	t.Helper()
	driver.tmp = t.TempDir()
	store := newFakeStore(cam)
	b := bus.New(64)
	t.Cleanup(b.Close)

	s := New(cam, Deps{
		Driver:  driver,
		Store:   store,
		Secrets: fakeSecrets{},
		Bus:     b,
		Ready:   instantReady,
		Opts: Options{
			RetryBase:    10 * time.Millisecond,
			RetryCap:     40 * time.Millisecond,
			StableAfter:  time.Hour,
			MaxFailures:  5,
			StartTimeout: time.Second,
		},
	})
	t.Cleanup(s.Shutdown)
	return s, store, b
}

func waitForState(t *testing.T, s *Supervisor, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.State() == want
	}, 2*time.Second, 5*time.Millisecond, "expected state %s, got %s", want, s.State())
}

func TestStartReachesOnline(t *testing.T) {
	driver := &fakeDriver{}
	s, store, b := newTestSupervisor(t, testCamera(), driver)

	sub, err := b.Subscribe("test")
	require.NoError(t, err)

	require.NoError(t, s.Start())
	waitForState(t, s, StateOnline)

	assert.Equal(t, 1, driver.lives())

	ev := <-sub.C()
	assert.Equal(t, bus.TopicCameraStatus, ev.Topic)
	change := ev.Payload.(*models.StatusChange)
	assert.Equal(t, models.CameraStatusOnline, change.Status)

	store.mu.Lock()
	assert.Equal(t, models.CameraStatusOnline, store.cam.Status)
	store.mu.Unlock()
}

func TestStartIsIdempotent(t *testing.T) {
	driver := &fakeDriver{}
	s, _, _ := newTestSupervisor(t, testCamera(), driver)

	require.NoError(t, s.Start())
	waitForState(t, s, StateOnline)
	require.NoError(t, s.Start())

	assert.Equal(t, 1, driver.lives())
}

func TestSegmenterExitTriggersReconnect(t *testing.T) {
	driver := &fakeDriver{}
	s, _, _ := newTestSupervisor(t, testCamera(), driver)

	require.NoError(t, s.Start())
	waitForState(t, s, StateOnline)

	driver.currentLive().exit()

	// Backoff retry spawns a second segmenter and comes back online.
	require.Eventually(t, func() bool {
		return driver.lives() == 2 && s.State() == StateOnline
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRepeatedFailuresReachFailed(t *testing.T) {
	driver := &fakeDriver{failLive: true}
	s, store, _ := newTestSupervisor(t, testCamera(), driver)

	require.NoError(t, s.Start())
	waitForState(t, s, StateFailed)

	store.mu.Lock()
	assert.Equal(t, models.CameraStatusError, store.cam.Status)
	store.mu.Unlock()
}

func TestFailedRestartsOnCommand(t *testing.T) {
	driver := &fakeDriver{failLive: true}
	s, _, _ := newTestSupervisor(t, testCamera(), driver)

	require.NoError(t, s.Start())
	waitForState(t, s, StateFailed)

	driver.mu.Lock()
	driver.failLive = false
	driver.mu.Unlock()

	require.NoError(t, s.Start())
	waitForState(t, s, StateOnline)
}

func TestStopReturnsToIdle(t *testing.T) {
	driver := &fakeDriver{}
	s, store, _ := newTestSupervisor(t, testCamera(), driver)

	require.NoError(t, s.Start())
	waitForState(t, s, StateOnline)

	require.NoError(t, s.Stop())
	waitForState(t, s, StateIdle)

	store.mu.Lock()
	assert.Equal(t, models.CameraStatusOffline, store.cam.Status)
	store.mu.Unlock()
}

func TestBeginAndEndRecording(t *testing.T) {
	driver := &fakeDriver{}
	s, store, b := newTestSupervisor(t, testCamera(), driver)

	sub, err := b.Subscribe("rec")
	require.NoError(t, err)

	require.NoError(t, s.Start())
	waitForState(t, s, StateOnline)

	id, err := s.BeginRecording()
	require.NoError(t, err)
	require.NotEmpty(t, id)

	row := store.recording(id)
	require.NotNil(t, row)
	assert.Nil(t, row.EndTime)
	assert.NotEmpty(t, row.Path)

	_, err = s.BeginRecording()
	assert.ErrorIs(t, err, ErrAlreadyRecording)

	finalized, err := s.EndRecording()
	require.NoError(t, err)
	require.NotNil(t, finalized.EndTime)
	assert.False(t, finalized.EndTime.Before(finalized.StartTime))

	_, err = s.EndRecording()
	assert.ErrorIs(t, err, ErrNotRecording)

	var topics []string
	for i := 0; i < 3; i++ {
		select {
		case ev := <-sub.C():
			topics = append(topics, ev.Topic)
		case <-time.After(time.Second):
			t.Fatal("missing bus event")
		}
	}
	assert.Contains(t, topics, bus.TopicRecordingStarted)
	assert.Contains(t, topics, bus.TopicRecordingStopped)
}

func TestBeginRecordingRequiresOnline(t *testing.T) {
	driver := &fakeDriver{}
	s, _, _ := newTestSupervisor(t, testCamera(), driver)

	_, err := s.BeginRecording()
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSnapshotRequiresOnline(t *testing.T) {
	driver := &fakeDriver{}
	s, _, _ := newTestSupervisor(t, testCamera(), driver)

	_, err := s.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSnapshotWhenOnline(t *testing.T) {
	driver := &fakeDriver{}
	s, _, _ := newTestSupervisor(t, testCamera(), driver)

	require.NoError(t, s.Start())
	waitForState(t, s, StateOnline)

	path, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Contains(t, path, driver.SnapshotsDir("camera:test"))
}

func TestURLChangeRestartsPipeline(t *testing.T) {
	driver := &fakeDriver{}
	cam := testCamera()
	s, _, _ := newTestSupervisor(t, cam, driver)

	require.NoError(t, s.Start())
	waitForState(t, s, StateOnline)

	next := *cam
	next.IngressURL = "rtsp://cam.local/other"
	changed, err := s.UpdateConfig(&next)
	require.NoError(t, err)
	assert.True(t, changed)

	require.Eventually(t, func() bool {
		return driver.lives() == 2 && s.State() == StateOnline
	}, 2*time.Second, 5*time.Millisecond)

	driver.mu.Lock()
	assert.Equal(t, "rtsp://cam.local/other", driver.lastURL)
	driver.mu.Unlock()
}

func TestIdenticalConfigIsNoOp(t *testing.T) {
	driver := &fakeDriver{}
	cam := testCamera()
	s, _, _ := newTestSupervisor(t, cam, driver)

	require.NoError(t, s.Start())
	waitForState(t, s, StateOnline)

	next := *cam
	next.Modified = time.Now()
	next.Rev = "2-abc"
	changed, err := s.UpdateConfig(&next)
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Equal(t, StateOnline, s.State())
	assert.Equal(t, 1, driver.lives())
}

func TestURLChangeFinalizesAndResumesRecording(t *testing.T) {
	driver := &fakeDriver{}
	cam := testCamera()
	s, store, _ := newTestSupervisor(t, cam, driver)

	require.NoError(t, s.Start())
	waitForState(t, s, StateOnline)

	firstID, err := s.BeginRecording()
	require.NoError(t, err)

	next := *cam
	next.IngressURL = "rtsp://cam.local/other"
	_, err = s.UpdateConfig(&next)
	require.NoError(t, err)

	// The first recording is finalized and a fresh one begins once the
	// pipeline is back online.
	require.Eventually(t, func() bool {
		first := store.recording(firstID)
		if first == nil || first.EndTime == nil {
			return false
		}
		id, active := s.Recording()
		return active && id != firstID
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHealthFailureWhileOnline(t *testing.T) {
	driver := &fakeDriver{}
	s, _, _ := newTestSupervisor(t, testCamera(), driver)

	require.NoError(t, s.Start())
	waitForState(t, s, StateOnline)

	require.NoError(t, s.ReportHealth(false, nil))

	require.Eventually(t, func() bool {
		state := s.State()
		return state == StateReconnecting || state == StateOnline && driver.lives() > 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHealthRecoveryStartsIdleCamera(t *testing.T) {
	driver := &fakeDriver{}
	s, _, _ := newTestSupervisor(t, testCamera(), driver)

	require.NoError(t, s.ReportHealth(true, &models.StreamMetadata{FPS: 25}))
	waitForState(t, s, StateOnline)
}

func TestContinuousModeRecordsOnOnline(t *testing.T) {
	driver := &fakeDriver{}
	cam := testCamera()
	cam.Recording.Mode = models.RecordingModeContinuous
	cam.Recording.SegmentSeconds = 60
	s, _, _ := newTestSupervisor(t, cam, driver)

	require.NoError(t, s.Start())
	waitForState(t, s, StateOnline)

	require.Eventually(t, func() bool {
		_, active := s.Recording()
		return active
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	s := &Supervisor{deps: Deps{Opts: Options{RetryBase: 5 * time.Second, RetryCap: 60 * time.Second}}}

	expected := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}
	for i, want := range expected {
		s.failures = i + 1
		assert.Equal(t, want, s.backoffDelay(), "failure %d", i+1)
	}
}
