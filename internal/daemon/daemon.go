// Package daemon binds the dispatcher, cleanup scheduler, and HTTP server
// into a single lifecycle with flock-based locking to prevent multiple
// daemon instances from sharing one working tree.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"converteasy/internal/cleanup"
	"converteasy/internal/config"
	"converteasy/internal/dispatcher"
	"converteasy/internal/logging"
	"converteasy/internal/server"
	"converteasy/internal/store"
)

// Daemon coordinates the background services and enforces single-instance
// execution over the shared directories.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      store.Store
	dispatcher *dispatcher.Dispatcher
	scheduler  *cleanup.Scheduler
	server     *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon over initialized components.
func New(cfg *config.Config, st store.Store, disp *dispatcher.Dispatcher, scheduler *cleanup.Scheduler, srv *server.Server, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || disp == nil || scheduler == nil || srv == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, dispatcher, scheduler, server, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "converteasyd.lock")
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      st,
		dispatcher: disp,
		scheduler:  scheduler,
		server:     srv,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches every service. On any failure
// the services already started are torn back down.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another converteasy daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.dispatcher.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start dispatcher: %w", err)
	}
	d.scheduler.Start(runCtx)

	if err := d.server.Start(runCtx); err != nil {
		d.scheduler.Stop()
		d.dispatcher.Stop()
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the services down in reverse start order and releases the lock.
// The server stops first so no new work arrives while the dispatcher drains.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.server.Stop()
	d.scheduler.Stop()
	d.dispatcher.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and releases the task store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Running reports whether the daemon services are up.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath returns the flock path used for single-instance enforcement.
func (d *Daemon) LockPath() string {
	return d.lockPath
}
