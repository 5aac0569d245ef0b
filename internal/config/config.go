// Package config provides configuration management for Sentra.
//
// Configuration is loaded in the following order (later sources override
// earlier ones):
//  1. Default values (hardcoded)
//  2. Configuration files (./config.yaml, ./configs/config.yaml, ~/.sentra/config.yaml, /etc/sentra/config.yaml)
//  3. .env files
//  4. Environment variables (SENTRA_ prefix)
//  5. Legacy flat environment variables (FFMPEG_PATH, JWT_SECRET, ENC_KEY,
//     MEDIA_BASE_URL, ANPR_ENABLED)
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure for Sentra.
type Config struct {
	// Server contains HTTP server configuration
	Server ServerConfig `mapstructure:"server"`

	// CouchDB contains metadata store connection settings
	CouchDB CouchDBConfig `mapstructure:"couchdb"`

	// Media contains transcoder and filesystem settings
	Media MediaConfig `mapstructure:"media"`

	// Health contains health prober settings
	Health HealthConfig `mapstructure:"health"`

	// ANPR contains plate-recognition settings
	ANPR ANPRConfig `mapstructure:"anpr"`

	// Retention contains the retention collector settings
	Retention RetentionConfig `mapstructure:"retention"`

	// Uplink contains the optional MQTT event uplink settings
	Uplink UplinkConfig `mapstructure:"uplink"`

	// Archive contains the optional snapshot object-storage settings
	Archive ArchiveConfig `mapstructure:"archive"`

	// Security contains auth and rate limiting settings
	Security SecurityConfig `mapstructure:"security"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Host is the server bind address
	Host string `mapstructure:"host"`

	// Port is the server listen port
	Port int `mapstructure:"port"`

	// ReadTimeout is the maximum duration for reading requests
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WriteTimeout is the maximum duration for writing responses
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// ShutdownTimeout is the maximum duration for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Debug enables debug logging
	Debug bool `mapstructure:"debug"`
}

// CouchDBConfig contains metadata store connection settings.
type CouchDBConfig struct {
	// URL is the CouchDB server URL (e.g., http://localhost:5984)
	URL string `mapstructure:"url"`

	// Database is the database name to use
	Database string `mapstructure:"database"`

	// Username for CouchDB authentication
	Username string `mapstructure:"username"`

	// Password for CouchDB authentication
	Password string `mapstructure:"password"`
}

// MediaConfig contains transcoder and filesystem settings.
type MediaConfig struct {
	// FFmpegPath is the transcoder binary; looked up on PATH when empty
	FFmpegPath string `mapstructure:"ffmpeg_path"`

	// BaseDir is the root under which streams/, records/, snapshots/
	// and temp/anpr/ are created
	BaseDir string `mapstructure:"base_dir"`

	// BaseURL is an optional absolute URL for externally shareable
	// stream links
	BaseURL string `mapstructure:"base_url"`

	// TerminateGrace is the graceful child-termination window
	TerminateGrace time.Duration `mapstructure:"terminate_grace"`

	// SnapshotTimeout bounds single-frame snapshot extraction
	SnapshotTimeout time.Duration `mapstructure:"snapshot_timeout"`
}

// HealthConfig contains health prober settings.
type HealthConfig struct {
	// Interval is the probe loop tick
	Interval time.Duration `mapstructure:"interval"`
}

// ANPRConfig contains plate-recognition settings.
type ANPRConfig struct {
	// Enabled is the global master switch; when false no worker runs
	// regardless of per-camera policy
	Enabled bool `mapstructure:"enabled"`

	// DetectorPath is the external plate detector binary; the stub
	// engine is used when empty
	DetectorPath string `mapstructure:"detector_path"`

	// ExtractorPath is the external text extractor binary; the stub
	// engine is used when empty
	ExtractorPath string `mapstructure:"extractor_path"`

	// FrameTimeout bounds single-frame extraction for sampling
	FrameTimeout time.Duration `mapstructure:"frame_timeout"`

	// InferenceTimeout bounds each detector and extractor call
	InferenceTimeout time.Duration `mapstructure:"inference_timeout"`
}

// RetentionConfig contains the retention collector settings.
type RetentionConfig struct {
	// Interval is the sweep period; a sweep also runs at startup
	Interval time.Duration `mapstructure:"interval"`
}

// UplinkConfig contains the optional MQTT event uplink settings.
type UplinkConfig struct {
	// Enabled turns the uplink on
	Enabled bool `mapstructure:"enabled"`

	// BrokerURL is the MQTT broker address (tcp://host:1883)
	BrokerURL string `mapstructure:"broker_url"`

	// BaseTopic prefixes every published topic
	BaseTopic string `mapstructure:"base_topic"`

	// ClientID identifies this instance to the broker
	ClientID string `mapstructure:"client_id"`

	// Username for broker authentication
	Username string `mapstructure:"username"`

	// Password for broker authentication
	Password string `mapstructure:"password"`
}

// ArchiveConfig contains the optional snapshot object-storage settings.
type ArchiveConfig struct {
	// Enabled turns snapshot archiving on
	Enabled bool `mapstructure:"enabled"`

	// Endpoint is the S3-compatible endpoint (host:port)
	Endpoint string `mapstructure:"endpoint"`

	// AccessKey for the object store
	AccessKey string `mapstructure:"access_key"`

	// SecretKey for the object store
	SecretKey string `mapstructure:"secret_key"`

	// Bucket is the target bucket name
	Bucket string `mapstructure:"bucket"`

	// UseSSL enables TLS to the endpoint
	UseSSL bool `mapstructure:"use_ssl"`
}

// SecurityConfig contains auth and rate limiting settings.
type SecurityConfig struct {
	// RateLimit is the maximum requests per second per client
	RateLimit int `mapstructure:"rate_limit"`

	// AllowedOrigins are the CORS allowed origins
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// JWTSecret is the HMAC key for signing JWT tokens
	JWTSecret string `mapstructure:"jwt_secret"`

	// JWTExpiration is the token expiration duration
	JWTExpiration time.Duration `mapstructure:"jwt_expiration"`

	// EncryptionKey is the 32-byte key sealing camera credentials
	EncryptionKey string `mapstructure:"encryption_key"`
}

// Load reads configuration from a file and environment variables.
// If cfgFile is empty, it searches for config.yaml in standard locations.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.sentra")
		v.AddConfigPath("/etc/sentra")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			if !isFileNotFoundError(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.MergeInConfig() // Ignore error if .env file doesn't exist

	v.SetEnvPrefix("SENTRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindLegacyEnv(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// bindLegacyEnv overlays the flat environment variables that predate the
// structured configuration.
func bindLegacyEnv(v *viper.Viper) {
	legacy := map[string]string{
		"media.ffmpeg_path":       "FFMPEG_PATH",
		"media.base_url":          "MEDIA_BASE_URL",
		"security.jwt_secret":     "JWT_SECRET",
		"security.encryption_key": "ENC_KEY",
		"anpr.enabled":            "ANPR_ENABLED",
	}
	for key, env := range legacy {
		if val, ok := os.LookupEnv(env); ok {
			v.Set(key, val)
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.debug", false)

	v.SetDefault("couchdb.url", "http://localhost:5984")
	v.SetDefault("couchdb.database", "sentra")
	v.SetDefault("couchdb.username", "admin")
	v.SetDefault("couchdb.password", "password")

	v.SetDefault("media.ffmpeg_path", "")
	v.SetDefault("media.base_dir", "./media")
	v.SetDefault("media.base_url", "")
	v.SetDefault("media.terminate_grace", "2s")
	v.SetDefault("media.snapshot_timeout", "10s")

	v.SetDefault("health.interval", "30s")

	v.SetDefault("anpr.enabled", true)
	v.SetDefault("anpr.detector_path", "")
	v.SetDefault("anpr.extractor_path", "")
	v.SetDefault("anpr.frame_timeout", "5s")
	v.SetDefault("anpr.inference_timeout", "15s")

	v.SetDefault("retention.interval", "24h")

	v.SetDefault("uplink.enabled", false)
	v.SetDefault("uplink.broker_url", "tcp://localhost:1883")
	v.SetDefault("uplink.base_topic", "sentra")
	v.SetDefault("uplink.client_id", "sentra-core")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.endpoint", "localhost:9000")
	v.SetDefault("archive.bucket", "anpr-snapshots")
	v.SetDefault("archive.use_ssl", false)

	v.SetDefault("security.rate_limit", 100)
	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.jwt_secret", "change-me-in-production")
	v.SetDefault("security.jwt_expiration", "24h")
	v.SetDefault("security.encryption_key", "")
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.CouchDB.URL == "" {
		return fmt.Errorf("couchdb url is required")
	}

	if cfg.CouchDB.Database == "" {
		return fmt.Errorf("couchdb database is required")
	}

	if cfg.Security.EncryptionKey != "" && len(cfg.Security.EncryptionKey) != 32 {
		return fmt.Errorf("encryption key must be exactly 32 bytes, got %d", len(cfg.Security.EncryptionKey))
	}

	if cfg.Media.TerminateGrace < 2*time.Second {
		return fmt.Errorf("terminate grace must be at least 2s, got %s", cfg.Media.TerminateGrace)
	}

	return nil
}

// isFileNotFoundError checks if an error is a file not found error.
func isFileNotFoundError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr, os.ErrNotExist)
	}
	return false
}
