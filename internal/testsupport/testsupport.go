// Package testsupport provides helpers shared by package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"converteasy/internal/config"
)

// NewConfig builds a validated configuration rooted in per-test temp
// directories.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.PublicDir = filepath.Join(base, "public")
	cfg.Paths.ProgramDir = filepath.Join(base, "programs")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Server.PublicBaseURL = "http://localhost:8080"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("create test directories: %v", err)
	}
	return &cfg
}
