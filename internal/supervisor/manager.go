package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/sentra-video/sentra/internal/bus"
	"github.com/sentra-video/sentra/internal/transcoder"
	"github.com/sentra-video/sentra/models"
)

// ErrUnknownCamera is returned when no supervisor exists for the id.
var ErrUnknownCamera = errors.New("supervisor: unknown camera")

// ManagerStore extends Store with the camera-level operations the
// manager needs for bootstrap and cascade deletion.
type ManagerStore interface {
	Store
	ListCameras(filters map[string]interface{}) ([]*models.Camera, error)
	DeleteCamera(id string) error
	DeleteRecordingsForCamera(cameraID string) (int, error)
	DeleteANPREventsForCamera(cameraID string) (int, error)
}

// ANPRFactory builds the ANPR worker slot for one camera. A nil factory
// disables ANPR entirely.
type ANPRFactory func(cam *models.Camera) ANPRRunner

// Manager owns one supervisor per camera and routes control commands to
// them.
type Manager struct {
	driver  Driver
	store   ManagerStore
	secrets SecretOpener
	bus     *bus.Bus
	anpr    ANPRFactory
	opts    Options
	ready   ReadyCheck
	debug   bool

	mu          sync.RWMutex
	supervisors map[string]*Supervisor

	mediaDirs func(cameraID string) []string
}

// ManagerDeps carries the manager's collaborators.
type ManagerDeps struct {
	Driver    Driver
	Store     ManagerStore
	Secrets   SecretOpener
	Bus       *bus.Bus
	ANPR      ANPRFactory
	Opts      Options
	Ready     ReadyCheck
	Debug     bool
	MediaDirs func(cameraID string) []string // on-disk dirs removed on camera deletion
}

// NewManager creates an empty supervisor fabric.
func NewManager(deps ManagerDeps) *Manager {
	return &Manager{
		driver:      deps.Driver,
		store:       deps.Store,
		secrets:     deps.Secrets,
		bus:         deps.Bus,
		anpr:        deps.ANPR,
		opts:        deps.Opts,
		ready:       deps.Ready,
		debug:       deps.Debug,
		supervisors: make(map[string]*Supervisor),
		mediaDirs:   deps.MediaDirs,
	}
}

func (m *Manager) newSupervisor(cam *models.Camera) *Supervisor {
	var runner ANPRRunner
	if m.anpr != nil {
		runner = m.anpr(cam)
	}
	return New(cam, Deps{
		Driver:  m.driver,
		Store:   m.store,
		Secrets: m.secrets,
		Bus:     m.bus,
		ANPR:    runner,
		Ready:   m.ready,
		Opts:    m.opts,
		Debug:   m.debug,
	})
}

// Bootstrap loads every camera from the store, spawns its supervisor and
// starts the pipeline. Called once at process start.
func (m *Manager) Bootstrap() error {
	cameras, err := m.store.ListCameras(nil)
	if err != nil {
		return fmt.Errorf("failed to load cameras: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cam := range cameras {
		sup := m.newSupervisor(cam)
		m.supervisors[cam.ID] = sup
		if err := sup.Start(); err != nil {
			log.Printf("camera %s: bootstrap start failed: %v", cam.ID, err)
		}
	}

	log.Printf("supervisor fabric started with %d cameras", len(cameras))
	return nil
}

// Get returns the supervisor for a camera id.
func (m *Manager) Get(id string) (*Supervisor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sup, ok := m.supervisors[id]
	if !ok {
		return nil, ErrUnknownCamera
	}
	return sup, nil
}

// Cameras returns the ids of all supervised cameras.
func (m *Manager) Cameras() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.supervisors))
	for id := range m.supervisors {
		ids = append(ids, id)
	}
	return ids
}

// AddCamera spawns a supervisor for a freshly created camera and starts
// its pipeline.
func (m *Manager) AddCamera(cam *models.Camera) error {
	m.mu.Lock()
	if _, exists := m.supervisors[cam.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("supervisor already exists for camera %s", cam.ID)
	}
	sup := m.newSupervisor(cam)
	m.supervisors[cam.ID] = sup
	m.mu.Unlock()

	m.bus.Publish(bus.TopicCameraAdded, cam.Masked())
	return sup.Start()
}

// UpdateCamera pushes a mutated camera document into its supervisor. An
// update with identical content emits no event.
func (m *Manager) UpdateCamera(cam *models.Camera) error {
	sup, err := m.Get(cam.ID)
	if err != nil {
		return err
	}

	changed, err := sup.UpdateConfig(cam)
	if err != nil {
		return err
	}

	if changed {
		m.bus.Publish(bus.TopicCameraUpdated, cam.Masked())
	}
	return nil
}

// DeleteCamera tears the camera down completely: the recording is
// finalized, the live child stopped, metadata rows cascade-deleted and
// media directories removed.
func (m *Manager) DeleteCamera(ctx context.Context, id string) error {
	m.mu.Lock()
	sup, ok := m.supervisors[id]
	delete(m.supervisors, id)
	m.mu.Unlock()

	if ok {
		sup.Shutdown()
	}

	if n, err := m.store.DeleteRecordingsForCamera(id); err != nil {
		log.Printf("camera %s: recording cascade failed: %v", id, err)
	} else if n > 0 {
		log.Printf("camera %s: deleted %d recordings", id, n)
	}
	if n, err := m.store.DeleteANPREventsForCamera(id); err != nil {
		log.Printf("camera %s: ANPR event cascade failed: %v", id, err)
	} else if n > 0 {
		log.Printf("camera %s: deleted %d ANPR events", id, n)
	}

	if err := m.store.DeleteCamera(id); err != nil {
		return fmt.Errorf("failed to delete camera: %w", err)
	}

	if m.mediaDirs != nil {
		for _, dir := range m.mediaDirs(id) {
			if err := os.RemoveAll(dir); err != nil {
				log.Printf("camera %s: failed to remove %s: %v", id, dir, err)
			}
		}
	}

	m.bus.Publish(bus.TopicCameraDeleted, map[string]string{"id": id})
	return nil
}

// ReportHealth routes a prober verdict to the camera's supervisor.
func (m *Manager) ReportHealth(id string, online bool, observed *models.StreamMetadata) error {
	sup, err := m.Get(id)
	if err != nil {
		return err
	}
	return sup.ReportHealth(online, observed)
}

// Shutdown stops every supervisor. Recordings are finalized before the
// process exits.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sups := make([]*Supervisor, 0, len(m.supervisors))
	for id, sup := range m.supervisors {
		sups = append(sups, sup)
		delete(m.supervisors, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, sup := range sups {
		wg.Add(1)
		go func(s *Supervisor) {
			defer wg.Done()
			s.Shutdown()
		}(sup)
	}
	wg.Wait()
}

// FFmpegDriver adapts the concrete transcoder driver to the Driver
// interface.
type FFmpegDriver struct {
	*transcoder.Driver
}

// StartLive wraps the concrete handle in the Handle interface.
func (d FFmpegDriver) StartLive(cameraID, ingressURL string) (Handle, error) {
	h, err := d.Driver.StartLive(cameraID, ingressURL)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// StartRecording wraps the concrete handle in the Handle interface.
func (d FFmpegDriver) StartRecording(cameraID, ingressURL, outputPath string) (Handle, error) {
	h, err := d.Driver.StartRecording(cameraID, ingressURL, outputPath)
	if err != nil {
		return nil, err
	}
	return h, nil
}
