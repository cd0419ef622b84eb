// Package cleanup reclaims expired task records and orphaned files on a
// fixed schedule.
//
// The sweep is two-layered: task-indexed reclamation via the store, plus an
// independent filesystem sweep of the upload and public directories. The
// second layer exists because artifacts can outlive their record (crash
// mid-write, TTL-backed store evicting a record before the scheduler runs).
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"converteasy/internal/config"
	"converteasy/internal/fileutil"
	"converteasy/internal/logging"
	"converteasy/internal/store"
)

// Summary reports what one sweep removed.
type Summary struct {
	ExpiredTasks   int `json:"expired_tasks"`
	OrphanedFiles  int `json:"orphaned_files"`
	ArtifactsFreed int `json:"artifacts_freed"`
}

// Scheduler runs cleanup sweeps on an interval plus once at start.
type Scheduler struct {
	cfg    *config.Config
	store  store.Store
	logger *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New builds a scheduler over the given store and directories.
func New(cfg *config.Config, st store.Store, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		store:  st,
		logger: logging.NewComponentLogger(logger, "cleanup"),
	}
}

// Start launches the sweep loop. The first sweep runs immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(runCtx)
	s.logger.Info("cleanup scheduler started",
		logging.Duration("interval", s.cfg.CleanupInterval()),
		logging.Duration("task_expiry", s.cfg.TaskExpiry()),
	)
}

// Stop cancels the loop and waits for any in-progress sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("cleanup scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.cfg.CleanupInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one full sweep. Per-item errors are logged and skipped;
// a sweep never propagates a failure to its caller beyond the summary.
func (s *Scheduler) RunOnce(ctx context.Context) Summary {
	var summary Summary
	summary.ExpiredTasks, summary.ArtifactsFreed = s.sweepExpiredTasks(ctx)
	summary.OrphanedFiles += s.sweepOrphans(s.cfg.Paths.UploadDir, s.cfg.UploadMaxAge())
	summary.OrphanedFiles += s.sweepOrphans(s.cfg.Paths.PublicDir, s.cfg.PublicMaxAge())

	if summary.ExpiredTasks > 0 || summary.OrphanedFiles > 0 {
		s.logger.Info("cleanup sweep finished",
			logging.Int("expired_tasks", summary.ExpiredTasks),
			logging.Int("orphaned_files", summary.OrphanedFiles),
			logging.Int("artifacts_freed", summary.ArtifactsFreed),
		)
	}
	return summary
}

func (s *Scheduler) sweepExpiredTasks(ctx context.Context) (tasks, artifacts int) {
	expired, err := s.store.ListExpired(ctx, s.cfg.TaskExpiry())
	if err != nil {
		s.logger.Warn("failed to list expired tasks", logging.Error(err))
		return 0, 0
	}

	for _, t := range expired {
		for _, path := range []string{t.InputPath, t.OutputPath} {
			if path == "" {
				continue
			}
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := os.Remove(path); err != nil {
				s.logger.Warn("failed to remove expired artifact",
					logging.String(logging.FieldTaskID, t.ID),
					logging.String("path", path),
					logging.Error(err),
				)
				continue
			}
			artifacts++
		}
		if err := s.store.Delete(ctx, t.ID); err != nil {
			s.logger.Warn("failed to delete expired task record",
				logging.String(logging.FieldTaskID, t.ID),
				logging.Error(err),
			)
			continue
		}
		tasks++
	}
	return tasks, artifacts
}

// sweepOrphans removes files older than maxAge, skipping friendly
// timestamped names so a finished artifact is not deleted before a client
// fetches it through its URL.
func (s *Scheduler) sweepOrphans(dir string, maxAge time.Duration) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read directory", logging.String("dir", dir), logging.Error(err))
		}
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if fileutil.IsTimestampedName(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("failed to remove orphaned file",
				logging.String("path", path),
				logging.Error(err),
			)
			continue
		}
		removed++
	}
	return removed
}
