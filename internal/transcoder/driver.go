// Package transcoder wraps the external ffmpeg and ffprobe binaries.
// It spawns, tracks and terminates child processes for live streaming,
// recording, snapshotting and single-frame extraction. The driver never
// restarts a child on its own; a non-zero exit surfaces through the
// handle's Done channel and it is the owning supervisor's decision what
// happens next.
package transcoder

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sentra-video/sentra/internal/config"
	"github.com/sentra-video/sentra/models"
)

// Activity names used in handle logging.
const (
	ActivityLive      = "live"
	ActivityRecording = "recording"
	ActivitySnapshot  = "snapshot"
)

// Handle tracks one spawned child process.
type Handle struct {
	Activity string
	CameraID string

	cmd   *exec.Cmd
	done  chan struct{}
	grace time.Duration

	mu       sync.Mutex
	exitCode int
	exitErr  error

	terminateOnce sync.Once
}

// Done is closed when the child process has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// ExitCode returns the child's exit code. Valid only after Done is
// closed; -1 while still running.
func (h *Handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode
}

// Err returns the child's exit error, nil on clean exit. Valid only
// after Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitErr
}

// Running reports whether the child is still alive.
func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Terminate requests a graceful stop and escalates to SIGKILL after the
// grace period. It blocks until the child has exited and is safe to call
// more than once.
func (h *Handle) Terminate() {
	h.terminateOnce.Do(func() {
		if h.cmd.Process != nil {
			// ffmpeg finalizes its output on SIGTERM, which matters for
			// recordings: the moov atom is only written on clean shutdown.
			_ = h.cmd.Process.Signal(syscall.SIGTERM)
		}

		select {
		case <-h.done:
			return
		case <-time.After(h.grace):
		}

		if h.cmd.Process != nil {
			_ = h.cmd.Process.Kill()
		}
	})
	<-h.done
}

func (h *Handle) wait() {
	err := h.cmd.Wait()

	h.mu.Lock()
	if err != nil {
		h.exitErr = err
		if exitErr, ok := err.(*exec.ExitError); ok {
			h.exitCode = exitErr.ExitCode()
		} else {
			h.exitCode = -1
		}
	} else {
		h.exitCode = 0
	}
	h.mu.Unlock()

	close(h.done)
}

// Driver spawns ffmpeg children for camera media activities.
type Driver struct {
	ffmpegPath  string
	ffprobePath string
	baseDir     string
	grace       time.Duration
	debug       bool
}

// New creates a Driver from the application configuration.
func New(cfg *config.Config) *Driver {
	ffmpeg := cfg.Media.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}

	// ffprobe ships next to ffmpeg in every distribution we care about.
	ffprobe := "ffprobe"
	if dir := filepath.Dir(ffmpeg); dir != "." {
		ffprobe = filepath.Join(dir, "ffprobe")
	}

	return &Driver{
		ffmpegPath:  ffmpeg,
		ffprobePath: ffprobe,
		baseDir:     cfg.Media.BaseDir,
		grace:       cfg.Media.TerminateGrace,
		debug:       cfg.Server.Debug,
	}
}

func (d *Driver) debugLog(format string, args ...interface{}) {
	if d.debug {
		log.Printf(format, args...)
	}
}

// LiveDir returns the on-disk directory holding a camera's rolling HLS
// playlist.
func (d *Driver) LiveDir(cameraID string) string {
	return filepath.Join(d.baseDir, "streams", cameraID, "live")
}

// RecordingsDir returns the on-disk directory holding a camera's
// recordings for a logical date.
func (d *Driver) RecordingsDir(cameraID, date string) string {
	return filepath.Join(d.baseDir, "records", cameraID, date)
}

// SnapshotsDir returns the on-disk directory holding a camera's
// snapshots.
func (d *Driver) SnapshotsDir(cameraID string) string {
	return filepath.Join(d.baseDir, "snapshots", cameraID)
}

// CameraDirs returns every on-disk directory belonging to a camera.
// Removed wholesale when the camera is deleted.
func (d *Driver) CameraDirs(cameraID string) []string {
	return []string{
		filepath.Join(d.baseDir, "streams", cameraID),
		filepath.Join(d.baseDir, "records", cameraID),
		filepath.Join(d.baseDir, "snapshots", cameraID),
	}
}

func (d *Driver) spawn(activity, cameraID string, args []string) (*Handle, error) {
	cmd := exec.Command(d.ffmpegPath, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	d.debugLog("spawning %s for %s: %s %s", activity, cameraID, d.ffmpegPath, sanitizeArgsForLog(args))

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s process: %w", activity, err)
	}

	h := &Handle{
		Activity: activity,
		CameraID: cameraID,
		cmd:      cmd,
		done:     make(chan struct{}),
		grace:    d.grace,
		exitCode: -1,
	}
	go h.wait()

	return h, nil
}

// StartLive spawns the rolling HLS segmenter for a camera. The live
// directory is recreated empty so stale segments from a previous run do
// not linger in the playlist window.
func (d *Driver) StartLive(cameraID, ingressURL string) (*Handle, error) {
	liveDir := d.LiveDir(cameraID)
	if err := os.RemoveAll(liveDir); err != nil {
		return nil, fmt.Errorf("failed to clear live directory: %w", err)
	}
	if err := os.MkdirAll(liveDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create live directory: %w", err)
	}

	return d.spawn(ActivityLive, cameraID, buildLiveArgs(ingressURL, liveDir))
}

// StartRecording spawns a single-file recording child writing to
// outputPath. The destination directory must already exist.
func (d *Driver) StartRecording(cameraID, ingressURL, outputPath string) (*Handle, error) {
	return d.spawn(ActivityRecording, cameraID, buildRecordingArgs(ingressURL, outputPath))
}

// Snapshot extracts one frame from the ingress URL to outputPath and
// waits for completion. The context bounds the whole operation.
func (d *Driver) Snapshot(ctx context.Context, ingressURL, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, d.ffmpegPath, buildSnapshotArgs(ingressURL, outputPath)...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("snapshot timed out: %w", ctx.Err())
		}
		return fmt.Errorf("snapshot failed: %w", err)
	}
	return nil
}

// ExtractFrame is Snapshot under a different name for callers that
// sample frames independently of any live pipeline.
func (d *Driver) ExtractFrame(ctx context.Context, ingressURL, outputPath string) error {
	return d.Snapshot(ctx, ingressURL, outputPath)
}

// probeStream models the subset of ffprobe's JSON output the prober
// cares about.
type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	BitRate      string `json:"bit_rate"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

// Probe checks RTSP reachability and returns observed stream metadata.
// A probe that produces no video stream counts as unreachable.
func (d *Driver) Probe(ctx context.Context, ingressURL string, timeout time.Duration) (*models.StreamMetadata, error) {
	cmd := exec.CommandContext(ctx, d.ffprobePath, buildProbeArgs(ingressURL, int(timeout.Seconds()))...)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("probe failed for %s: %w", RedactURL(ingressURL), err)
	}

	var probed probeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		return nil, fmt.Errorf("failed to parse probe output: %w", err)
	}

	for _, stream := range probed.Streams {
		if stream.CodecType != "video" {
			continue
		}
		meta := &models.StreamMetadata{
			FPS: parseFrameRate(stream.AvgFrameRate),
		}
		if stream.Width > 0 && stream.Height > 0 {
			meta.Resolution = fmt.Sprintf("%dx%d", stream.Width, stream.Height)
		}
		if stream.BitRate != "" {
			if bps, err := strconv.Atoi(stream.BitRate); err == nil {
				meta.BitrateKbs = bps / 1000
			}
		}
		return meta, nil
	}

	return nil, fmt.Errorf("probe found no video stream for %s", RedactURL(ingressURL))
}

// parseFrameRate converts ffprobe's "num/den" rational to a float.
func parseFrameRate(rate string) float64 {
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
