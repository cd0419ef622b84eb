// Package store persists conversion task records.
//
// Two backends satisfy the same contract: an in-process map for
// single-instance deployments and a Redis-backed store whose per-record TTL
// equals the task expiry window for multi-instance deployments. Open selects
// between them from configuration and silently falls back to the in-process
// store when the shared backend is unreachable.
package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"converteasy/internal/config"
	"converteasy/internal/logging"
	"converteasy/internal/task"
)

// ErrNilTask is returned when a caller passes a nil task record.
var ErrNilTask = errors.New("task is nil")

// Store is the shared mutable state of the service. All implementations must
// be safe for concurrent callers, and each operation must be atomic per task
// record.
type Store interface {
	// Create persists a new task record.
	Create(ctx context.Context, t *task.Task) error
	// Get returns the task with the given id, or (nil, nil) when absent.
	Get(ctx context.Context, id string) (*task.Task, error)
	// Update persists changes to an existing record, refreshing UpdatedAt.
	// On TTL-backed implementations the remaining expiry is preserved so a
	// task's absolute expiry stays anchored to its creation time.
	Update(ctx context.Context, t *task.Task) error
	// Delete removes a record; deleting an absent record is not an error.
	Delete(ctx context.Context, id string) error
	// List returns all live task records.
	List(ctx context.Context) ([]*task.Task, error)
	// ListExpired returns records older than maxAge. TTL-backed
	// implementations always return an empty slice because the backend
	// evicts records itself.
	ListExpired(ctx context.Context, maxAge time.Duration) ([]*task.Task, error)
	// Stats aggregates task counts by state.
	Stats(ctx context.Context) (task.Stats, error)
	// Close releases backend resources.
	Close() error
}

// Open selects a store implementation from configuration. A configured but
// unreachable shared backend degrades to the in-process store with a warning;
// store selection is never a startup failure.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) Store {
	log := logging.NewComponentLogger(logger, "store")

	url := cfg.RedisURL()
	if url == "" {
		log.Info("using in-process task store")
		return NewMemory()
	}

	shared, err := NewRedis(ctx, url, cfg.TaskExpiry())
	if err != nil {
		log.Warn("shared task store unavailable; falling back to in-process store",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check REDIS_URL and backend availability"),
		)
		return NewMemory()
	}
	log.Info("using shared task store", logging.Duration("record_ttl", cfg.TaskExpiry()))
	return shared
}
