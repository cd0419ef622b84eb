package store

import (
	"context"
	"sync"
	"time"

	"converteasy/internal/task"
)

// Memory is the in-process store used for single-instance deployments. State
// is visible only within one process; ListExpired scans by CreatedAt.
type Memory struct {
	mu    sync.RWMutex
	tasks map[string]*task.Task
}

// NewMemory constructs an empty in-process store.
func NewMemory() *Memory {
	return &Memory{tasks: make(map[string]*task.Task)}
}

func (m *Memory) Create(_ context.Context, t *task.Task) error {
	if t == nil {
		return ErrNilTask
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tasks[id].Clone(), nil
}

func (m *Memory) Update(_ context.Context, t *task.Task) error {
	if t == nil {
		return ErrNilTask
	}
	t.UpdatedAt = time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	return nil
}

func (m *Memory) List(_ context.Context) ([]*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*task.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (m *Memory) ListExpired(_ context.Context, maxAge time.Duration) ([]*task.Task, error) {
	cutoff := time.Now().Add(-maxAge)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var expired []*task.Task
	for _, t := range m.tasks {
		if t.CreatedAt.Before(cutoff) {
			expired = append(expired, t.Clone())
		}
	}
	return expired, nil
}

func (m *Memory) Stats(ctx context.Context) (task.Stats, error) {
	tasks, err := m.List(ctx)
	if err != nil {
		return task.Stats{}, err
	}
	return countByState(tasks), nil
}

func (m *Memory) Close() error { return nil }

func countByState(tasks []*task.Task) task.Stats {
	stats := task.Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.State {
		case task.StateQueued:
			stats.Queued++
		case task.StateProcessing:
			stats.Processing++
		case task.StateFinished:
			stats.Finished++
		case task.StateError:
			stats.Error++
		}
	}
	return stats
}
