package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	UploadDir  string `toml:"upload_dir"`
	PublicDir  string `toml:"public_dir"`
	ProgramDir string `toml:"program_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// Server contains the externally visible service settings.
type Server struct {
	PublicBaseURL string `toml:"public_base_url"`
	MaxFileSizeMB int    `toml:"max_file_size_mb"`
}

// Tools names the external converter binaries.
type Tools struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	SofficeBinary string `toml:"soffice_binary"`
}

// Conversion contains execution limits for the dispatcher.
type Conversion struct {
	MaxConcurrent             int `toml:"max_concurrent"`
	QueueDepth                int `toml:"queue_depth"`
	TimeoutSeconds            int `toml:"timeout_seconds"`
	PDFLargeThresholdMB       int `toml:"pdf_large_threshold_mb"`
	RemoteFetchTimeoutSeconds int `toml:"remote_fetch_timeout_seconds"`
}

// Store selects the task store backend. A non-empty RedisURL requests the
// shared TTL-backed store; otherwise (or when the backend is unreachable at
// startup) the in-process store is used.
type Store struct {
	RedisURL string `toml:"redis_url"`
}

// Cleanup contains the scheduler interval and age thresholds.
type Cleanup struct {
	IntervalSeconds     int `toml:"interval_seconds"`
	TaskExpirySeconds   int `toml:"task_expiry_seconds"`
	UploadMaxAgeSeconds int `toml:"upload_max_age_seconds"`
	PublicMaxAgeSeconds int `toml:"public_max_age_seconds"`
}

// RateLimit configures the per-client request limiter.
type RateLimit struct {
	Points          int `toml:"points"`
	DurationSeconds int `toml:"duration_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the service.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Server     Server     `toml:"server"`
	Tools      Tools      `toml:"tools"`
	Conversion Conversion `toml:"conversion"`
	Store      Store      `toml:"store"`
	Cleanup    Cleanup    `toml:"cleanup"`
	RateLimit  RateLimit  `toml:"rate_limit"`
	Logging    Logging    `toml:"logging"`
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The returned string is
// the resolved path; the bool reports whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/converteasy/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("converteasy.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.PublicDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RedisURL returns the shared-store address, letting the REDIS_URL
// environment variable override the file setting.
func (c *Config) RedisURL() string {
	if env := strings.TrimSpace(os.Getenv("REDIS_URL")); env != "" {
		return env
	}
	return strings.TrimSpace(c.Store.RedisURL)
}

// ConversionTimeout returns the per-invocation external process timeout.
func (c *Config) ConversionTimeout() time.Duration {
	return time.Duration(c.Conversion.TimeoutSeconds) * time.Second
}

// RemoteFetchTimeout bounds remote-input downloads on the ingestion path.
func (c *Config) RemoteFetchTimeout() time.Duration {
	return time.Duration(c.Conversion.RemoteFetchTimeoutSeconds) * time.Second
}

// CleanupInterval returns the period between cleanup sweeps.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Cleanup.IntervalSeconds) * time.Second
}

// TaskExpiry returns the age after which a task and its artifacts are
// reclaimed. The shared store uses the same window as its record TTL.
func (c *Config) TaskExpiry() time.Duration {
	return time.Duration(c.Cleanup.TaskExpirySeconds) * time.Second
}

// UploadMaxAge returns the orphan threshold for the uploads directory.
func (c *Config) UploadMaxAge() time.Duration {
	return time.Duration(c.Cleanup.UploadMaxAgeSeconds) * time.Second
}

// PublicMaxAge returns the orphan threshold for the public directory.
func (c *Config) PublicMaxAge() time.Duration {
	return time.Duration(c.Cleanup.PublicMaxAgeSeconds) * time.Second
}

// MaxFileSizeBytes returns the upload size cap in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Server.MaxFileSizeMB) * 1024 * 1024
}

// PDFLargeThresholdBytes returns the size above which PDF extraction prefers
// the layout-aware strategy.
func (c *Config) PDFLargeThresholdBytes() int64 {
	return int64(c.Conversion.PDFLargeThresholdMB) * 1024 * 1024
}

// PublicFileURL returns the externally reachable URL for a file in the
// public directory.
func (c *Config) PublicFileURL(name string) string {
	return c.publicURL("/public/" + name)
}

// DownloadFileURL returns the attachment-download URL for a public file.
func (c *Config) DownloadFileURL(name string) string {
	return c.publicURL("/download/" + name)
}

// PreviewFileURL returns the inline-preview URL for a public file.
func (c *Config) PreviewFileURL(name string) string {
	return c.publicURL("/preview/" + name)
}

func (c *Config) publicURL(pathname string) string {
	return strings.TrimRight(c.Server.PublicBaseURL, "/") + pathname
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
