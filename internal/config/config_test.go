package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sentra", cfg.CouchDB.Database)
	assert.Equal(t, 30*time.Second, cfg.Health.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Retention.Interval)
	assert.Equal(t, 2*time.Second, cfg.Media.TerminateGrace)
	assert.True(t, cfg.ANPR.Enabled)
	assert.False(t, cfg.Uplink.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9000
media:
  base_dir: /srv/media
anpr:
  enabled: false
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/srv/media", cfg.Media.BaseDir)
	assert.False(t, cfg.ANPR.Enabled)
}

func TestLegacyEnvOverrides(t *testing.T) {
	t.Setenv("FFMPEG_PATH", "/opt/bin/ffmpeg")
	t.Setenv("ENC_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("ANPR_ENABLED", "false")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/opt/bin/ffmpeg", cfg.Media.FFmpegPath)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Security.EncryptionKey)
	assert.False(t, cfg.ANPR.Enabled)
}

func TestValidateEncryptionKeyLength(t *testing.T) {
	t.Setenv("ENC_KEY", "too-short")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestValidateInvalidPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}
