package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"converteasy/internal/task"
)

const keyPrefix = "converteasy:task:"

// redisCommands is the slice of the client surface the store uses. Tests
// substitute a fake; production always passes *redis.Client.
type redisCommands interface {
	SetEx(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Close() error
}

// Redis is the shared store for multi-instance deployments. Every record
// carries a TTL equal to the task expiry window, so the backend reclaims
// records on its own and the cleanup scheduler only has to sweep orphan
// files.
type Redis struct {
	client redisCommands
	ttl    time.Duration
}

// NewRedis connects to the shared backend and verifies it responds before
// returning. The caller treats any error as a signal to fall back to the
// in-process store.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

func taskKey(id string) string { return keyPrefix + id }

func (r *Redis) Create(ctx context.Context, t *task.Task) error {
	if t == nil {
		return ErrNilTask
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := r.client.SetEx(ctx, taskKey(t.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (*task.Task, error) {
	data, err := r.client.Get(ctx, taskKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	var t task.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}

// Update rewrites the record under its remaining TTL rather than restarting
// the clock, so the absolute expiry stays anchored to creation time no
// matter how many state transitions the task goes through.
func (r *Redis) Update(ctx context.Context, t *task.Task) error {
	if t == nil {
		return ErrNilTask
	}
	t.UpdatedAt = time.Now().UTC()

	key := taskKey(t.ID)
	remaining, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("read task ttl: %w", err)
	}
	if remaining <= 0 {
		remaining = r.ttl
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := r.client.SetEx(ctx, key, data, remaining).Err(); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// Delete is best-effort: records the backend already evicted are simply gone.
func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, taskKey(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context) ([]*task.Task, error) {
	var tasks []*task.Task
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // evicted between scan and get
		}
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		var t task.Task
		if err := json.Unmarshal(data, &t); err != nil {
			continue
		}
		tasks = append(tasks, &t)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan tasks: %w", err)
	}
	return tasks, nil
}

// ListExpired always returns empty: expiry is delegated to the backend TTL.
func (r *Redis) ListExpired(context.Context, time.Duration) ([]*task.Task, error) {
	return nil, nil
}

func (r *Redis) Stats(ctx context.Context) (task.Stats, error) {
	tasks, err := r.List(ctx)
	if err != nil {
		return task.Stats{}, err
	}
	return countByState(tasks), nil
}

func (r *Redis) Close() error { return r.client.Close() }
