package transcoder

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

// ResolveIngressURL injects credentials into an RTSP URL as inline
// userinfo. Empty username leaves the URL untouched; reserved characters
// in either field are percent-escaped.
func ResolveIngressURL(ingressURL, username, password string) (string, error) {
	if username == "" {
		return ingressURL, nil
	}

	u, err := url.Parse(ingressURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse ingress URL: %w", err)
	}

	if password != "" {
		u.User = url.UserPassword(username, password)
	} else {
		u.User = url.User(username)
	}

	return u.String(), nil
}

// RedactURL replaces inline credentials with "***" for log output.
func RedactURL(ingressURL string) string {
	u, err := url.Parse(ingressURL)
	if err != nil || u.User == nil {
		return ingressURL
	}
	// url.User would percent-encode the asterisks, so the marker is
	// spliced in after the scheme instead.
	u.User = nil
	return strings.Replace(u.String(), "://", "://***@", 1)
}

// buildLiveArgs produces the argument list for the rolling HLS segmenter.
// Segments are 2 seconds with a 6-segment window, old segments deleted,
// wall-clock tags enabled, RTSP forced onto TCP.
func buildLiveArgs(ingressURL, liveDir string) []string {
	return []string{
		"-rtsp_transport", "tcp",
		"-i", ingressURL,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-tune", "zerolatency",
		"-c:a", "aac",
		"-f", "hls",
		"-hls_time", "2",
		"-hls_list_size", "6",
		"-hls_flags", "delete_segments+program_date_time",
		"-hls_segment_filename", filepath.Join(liveDir, "segment_%03d.ts"),
		filepath.Join(liveDir, "index.m3u8"),
	}
}

// buildRecordingArgs produces the argument list for a single-file
// recording. Codecs are copied so the camera's native encoding lands on
// disk unchanged.
func buildRecordingArgs(ingressURL, outputPath string) []string {
	return []string{
		"-rtsp_transport", "tcp",
		"-i", ingressURL,
		"-c:v", "copy",
		"-c:a", "copy",
		"-movflags", "+faststart",
		"-y",
		outputPath,
	}
}

// buildSnapshotArgs produces the argument list for grabbing one frame
// from a stream.
func buildSnapshotArgs(ingressURL, outputPath string) []string {
	return []string{
		"-rtsp_transport", "tcp",
		"-i", ingressURL,
		"-vframes", "1",
		"-q:v", "2",
		"-y",
		outputPath,
	}
}

// buildProbeArgs produces the ffprobe argument list used to read stream
// metadata as JSON.
func buildProbeArgs(ingressURL string, timeoutSec int) []string {
	return []string{
		"-rtsp_transport", "tcp",
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-timeout", strconv.Itoa(timeoutSec * 1000000),
		ingressURL,
	}
}

// sanitizeArgsForLog redacts credentials from any URL-looking argument.
func sanitizeArgsForLog(args []string) string {
	out := make([]string, len(args))
	for i, a := range args {
		if strings.Contains(a, "://") {
			out[i] = RedactURL(a)
		} else {
			out[i] = a
		}
	}
	return strings.Join(out, " ")
}
