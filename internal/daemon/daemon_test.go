package daemon_test

import (
	"context"
	"strings"
	"testing"

	"converteasy/internal/cleanup"
	"converteasy/internal/config"
	"converteasy/internal/daemon"
	"converteasy/internal/dispatcher"
	"converteasy/internal/logging"
	"converteasy/internal/registry"
	"converteasy/internal/server"
	"converteasy/internal/store"
	"converteasy/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	logger := logging.NewNop()
	st := store.NewMemory()
	reg := registry.New(cfg.Paths.ProgramDir)
	disp := dispatcher.New(cfg, st, reg, dispatcher.Backends{}, logger)
	scheduler := cleanup.New(cfg, st, logger)
	srv := server.New(cfg, st, disp, reg, scheduler, logger)

	d, err := daemon.New(cfg, st, disp, scheduler, srv, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:0"

	d := newDaemon(t, cfg)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !d.Running() {
		t.Fatal("daemon should report running")
	}
	if err := d.Start(ctx); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("second start error = %v", err)
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon should report stopped")
	}
	d.Stop()
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:0"

	first := newDaemon(t, cfg)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first start: %v", err)
	}

	second := newDaemon(t, cfg)
	err := second.Start(context.Background())
	if err == nil {
		t.Fatal("second instance should fail to acquire the lock")
	}
	if !strings.Contains(err.Error(), "instance") {
		t.Fatalf("second start error = %v", err)
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("second start after release: %v", err)
	}
	second.Stop()
}

func TestDaemonRequiresComponents(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil, nil, nil, nil); err == nil {
		t.Fatal("nil components should be rejected")
	}
}
