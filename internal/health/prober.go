// Package health runs the periodic reachability prober. One loop covers
// every camera; each camera is probed with a hard timeout of one third
// of the tick interval so a dead host can never stall the loop.
package health

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sentra-video/sentra/internal/bus"
	"github.com/sentra-video/sentra/internal/transcoder"
	"github.com/sentra-video/sentra/models"
)

// CameraStore is the slice of the metadata store the prober reads from
// and writes status transitions to.
type CameraStore interface {
	ListCameras(filters map[string]interface{}) ([]*models.Camera, error)
	UpdateCameraStatus(id, status string, observed *models.StreamMetadata) (*models.Camera, error)
}

// SecretOpener decrypts sealed camera credentials.
type SecretOpener interface {
	Open(ciphertext string) (string, error)
}

// Publisher is the slice of the event bus the prober publishes on.
type Publisher interface {
	Publish(topic string, payload interface{})
}

// Supervisors receives recovery notifications so an idle or failed
// camera is brought back up when its stream reappears.
type Supervisors interface {
	ReportHealth(id string, online bool, observed *models.StreamMetadata) error
}

// ProbeFunc checks one ingress URL and returns observed metadata on
// success. The context carries the per-probe deadline.
type ProbeFunc func(ctx context.Context, ingressURL string, timeout time.Duration) (*models.StreamMetadata, error)

// Prober periodically verifies RTSP reachability for every camera.
type Prober struct {
	store       CameraStore
	secrets     SecretOpener
	bus         Publisher
	supervisors Supervisors
	probe       ProbeFunc
	interval    time.Duration
	debug       bool

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Deps carries the prober's collaborators.
type Deps struct {
	Store       CameraStore
	Secrets     SecretOpener
	Bus         Publisher
	Supervisors Supervisors
	Probe       ProbeFunc
	Interval    time.Duration
	Debug       bool
}

// New creates a prober. Interval <= 0 selects the 30 s default.
func New(deps Deps) *Prober {
	if deps.Interval <= 0 {
		deps.Interval = 30 * time.Second
	}
	return &Prober{
		store:       deps.Store,
		secrets:     deps.Secrets,
		bus:         deps.Bus,
		supervisors: deps.Supervisors,
		probe:       deps.Probe,
		interval:    deps.Interval,
		debug:       deps.Debug,
	}
}

func (p *Prober) debugLog(format string, args ...interface{}) {
	if p.debug {
		log.Printf(format, args...)
	}
}

// Start launches the probe loop. The first sweep runs immediately.
func (p *Prober) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.sweep(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (p *Prober) Stop() {
	p.once.Do(func() {
		if p.cancel != nil {
			p.cancel()
			<-p.done
		}
	})
}

// sweep probes every camera once. Probes run concurrently, each bounded
// by a third of the tick interval; timeouts count as offline.
func (p *Prober) sweep(ctx context.Context) {
	cameras, err := p.store.ListCameras(nil)
	if err != nil {
		log.Printf("health sweep: failed to list cameras: %v", err)
		return
	}

	timeout := p.interval / 3

	var wg sync.WaitGroup
	for _, cam := range cameras {
		wg.Add(1)
		go func(cam *models.Camera) {
			defer wg.Done()
			p.probeCamera(ctx, cam, timeout)
		}(cam)
	}
	wg.Wait()
}

func (p *Prober) probeCamera(ctx context.Context, cam *models.Camera, timeout time.Duration) {
	url, err := p.resolveURL(cam)
	if err != nil {
		log.Printf("health probe %s: %v", cam.ID, err)
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	observed, probeErr := p.probe(probeCtx, url, timeout)

	derived := models.CameraStatusOnline
	errMsg := ""
	if probeErr != nil {
		derived = models.CameraStatusOffline
		errMsg = probeErr.Error()
		observed = nil
	}

	recorded := cam.Status
	if derived == recorded {
		return
	}

	// Supervisor-internal states are not overwritten by a probe: a
	// reconnecting camera is already being handled.
	if recorded == models.CameraStatusReconnecting && derived == models.CameraStatusOffline {
		return
	}

	p.debugLog("health probe %s: %s -> %s", cam.ID, recorded, derived)

	if _, err := p.store.UpdateCameraStatus(cam.ID, derived, observed); err != nil {
		log.Printf("health probe %s: failed to persist status: %v", cam.ID, err)
	}

	p.bus.Publish(bus.TopicCameraStatus, &models.StatusChange{
		CameraID: cam.ID,
		Status:   derived,
		Observed: observed,
		Error:    errMsg,
	})

	if p.supervisors != nil {
		online := derived == models.CameraStatusOnline
		if err := p.supervisors.ReportHealth(cam.ID, online, observed); err != nil {
			p.debugLog("health probe %s: supervisor report: %v", cam.ID, err)
		}
	}
}

func (p *Prober) resolveURL(cam *models.Camera) (string, error) {
	password := ""
	if cam.SealedPassword != "" {
		opened, err := p.secrets.Open(cam.SealedPassword)
		if err != nil {
			return "", err
		}
		password = opened
	}
	return transcoder.ResolveIngressURL(cam.IngressURL, cam.Username, password)
}
