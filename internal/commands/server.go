package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sentra-video/sentra/internal/anpr"
	"github.com/sentra-video/sentra/internal/api"
	"github.com/sentra-video/sentra/internal/archive"
	"github.com/sentra-video/sentra/internal/bus"
	"github.com/sentra-video/sentra/internal/health"
	"github.com/sentra-video/sentra/internal/retention"
	"github.com/sentra-video/sentra/internal/storage"
	"github.com/sentra-video/sentra/internal/supervisor"
	"github.com/sentra-video/sentra/internal/transcoder"
	"github.com/sentra-video/sentra/internal/uplink"
	"github.com/sentra-video/sentra/internal/vault"
	"github.com/sentra-video/sentra/models"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Sentra server",
	Long:  `Start the camera supervisors, background workers and the HTTP API`,
	RunE:  runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	// Initialize storage layer
	store, err := storage.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close() //nolint:errcheck

	secrets, err := vault.New([]byte(cfg.Security.EncryptionKey))
	if err != nil {
		return fmt.Errorf("failed to initialize credential vault: %w", err)
	}

	eventBus := bus.New(0)
	driver := transcoder.New(cfg)

	anprFactory, err := buildANPRFactory(store, eventBus, secrets, driver)
	if err != nil {
		return err
	}

	manager := supervisor.NewManager(supervisor.ManagerDeps{
		Driver:    supervisor.FFmpegDriver{Driver: driver},
		Store:     store,
		Secrets:   secrets,
		Bus:       eventBus,
		ANPR:      anprFactory,
		Debug:     cfg.Server.Debug,
		MediaDirs: driver.CameraDirs,
	})
	if err := manager.Bootstrap(); err != nil {
		return fmt.Errorf("failed to bootstrap cameras: %w", err)
	}

	prober := health.New(health.Deps{
		Store:       store,
		Secrets:     secrets,
		Bus:         eventBus,
		Supervisors: manager,
		Probe:       driver.Probe,
		Interval:    cfg.Health.Interval,
		Debug:       cfg.Server.Debug,
	})
	prober.Start()

	collector := retention.New(store, cfg.Retention.Interval)
	collector.Start()

	var up *uplink.Uplink
	if cfg.Uplink.Enabled {
		up, err = uplink.New(cfg.Uplink, eventBus)
		if err != nil {
			return fmt.Errorf("failed to connect uplink: %w", err)
		}
	}

	// Create API server
	server, err := api.New(cfg, store, manager, secrets, eventBus)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		fmt.Println("\nShutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			cfg.Server.ShutdownTimeout,
		)
		defer cancel()

		// New work stops first, then the supervisors finalize their
		// recordings, then the fan-out paths close.
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "server shutdown error: %v\n", err)
		}
		prober.Stop()
		collector.Stop()
		manager.Shutdown()
		if up != nil {
			up.Close()
		}
		eventBus.Close()

		return nil

	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// buildANPRFactory assembles the per-camera worker factory. A nil
// factory disables recognition for every camera regardless of policy.
func buildANPRFactory(store *storage.Storage, eventBus *bus.Bus, secrets *vault.Vault, driver *transcoder.Driver) (supervisor.ANPRFactory, error) {
	if !cfg.ANPR.Enabled {
		return nil, nil
	}

	deps := anpr.WorkerDeps{
		Frames:       driver,
		Detector:     anpr.StubDetector{},
		Extractor:    anpr.StubExtractor{},
		Store:        store,
		Bus:          eventBus,
		Secrets:      secrets,
		FrameTimeout: cfg.ANPR.FrameTimeout,
		Debug:        cfg.Server.Debug,
	}
	if cfg.ANPR.DetectorPath != "" {
		deps.Detector = &anpr.ExecDetector{Path: cfg.ANPR.DetectorPath, Timeout: cfg.ANPR.InferenceTimeout}
	}
	if cfg.ANPR.ExtractorPath != "" {
		deps.Extractor = &anpr.ExecExtractor{Path: cfg.ANPR.ExtractorPath, Timeout: cfg.ANPR.InferenceTimeout}
	}

	if cfg.Archive.Enabled {
		arc, err := archive.New(cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize snapshot archive: %w", err)
		}
		deps.Archiver = arc
	}

	return func(cam *models.Camera) supervisor.ANPRRunner {
		return anpr.NewWorker(cam, deps)
	}, nil
}
