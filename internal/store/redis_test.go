package store

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"converteasy/internal/task"
)

// fakeRedisClient keeps records and their TTLs in memory and records the
// expiry passed to every SetEx, so tests can observe the TTL the store
// re-arms on update.
type fakeRedisClient struct {
	records map[string]string
	ttls    map[string]time.Duration
	setTTLs map[string]time.Duration

	// evictedKeys are returned by Scan but have no record, simulating a
	// backend eviction between the scan and the get.
	evictedKeys []string

	closed bool
}

func newFakeRedisClient() *fakeRedisClient {
	return &fakeRedisClient{
		records: make(map[string]string),
		ttls:    make(map[string]time.Duration),
		setTTLs: make(map[string]time.Duration),
	}
}

func (f *fakeRedisClient) SetEx(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.records[key] = string(value.([]byte))
	f.ttls[key] = expiration
	f.setTTLs[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedisClient) Get(_ context.Context, key string) *redis.StringCmd {
	data, ok := f.records[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(data, nil)
}

func (f *fakeRedisClient) TTL(_ context.Context, key string) *redis.DurationCmd {
	ttl, ok := f.ttls[key]
	if !ok {
		// Matches the backend's reply for a missing key.
		return redis.NewDurationResult(-2*time.Second, nil)
	}
	return redis.NewDurationResult(ttl, nil)
}

func (f *fakeRedisClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	removed := int64(0)
	for _, key := range keys {
		if _, ok := f.records[key]; ok {
			removed++
		}
		delete(f.records, key)
		delete(f.ttls, key)
	}
	return redis.NewIntResult(removed, nil)
}

func (f *fakeRedisClient) Scan(_ context.Context, _ uint64, match string, _ int64) *redis.ScanCmd {
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for key := range f.records {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	for _, key := range f.evictedKeys {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return redis.NewScanCmdResult(keys, 0, nil)
}

func (f *fakeRedisClient) Close() error {
	f.closed = true
	return nil
}

func newRedisStore(ttl time.Duration) (*Redis, *fakeRedisClient) {
	fake := newFakeRedisClient()
	return &Redis{client: fake, ttl: ttl}, fake
}

func TestRedisCreateArmsFullExpiryWindow(t *testing.T) {
	st, fake := newRedisStore(24 * time.Hour)
	ctx := context.Background()

	rec := &task.Task{ID: "t1", State: task.StateQueued, CreatedAt: time.Now().UTC()}
	if err := st.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := fake.setTTLs[taskKey("t1")]; got != 24*time.Hour {
		t.Fatalf("create ttl = %v, want full window", got)
	}

	loaded, err := st.Get(ctx, "t1")
	if err != nil || loaded == nil {
		t.Fatalf("Get = %v err = %v", loaded, err)
	}
	if loaded.State != task.StateQueued {
		t.Fatalf("state = %s", loaded.State)
	}
}

func TestRedisUpdatePreservesRemainingTTL(t *testing.T) {
	st, fake := newRedisStore(24 * time.Hour)
	ctx := context.Background()

	rec := &task.Task{ID: "t1", State: task.StateQueued, CreatedAt: time.Now().UTC()}
	if err := st.Create(ctx, rec); err != nil {
		t.Fatal(err)
	}

	// The backend has counted 14 hours down since creation.
	fake.ttls[taskKey("t1")] = 10 * time.Hour

	rec.State = task.StateProcessing
	if err := st.Update(ctx, rec); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if got := fake.setTTLs[taskKey("t1")]; got != 10*time.Hour {
		t.Fatalf("update re-armed ttl = %v, want the remaining 10h", got)
	}
	loaded, err := st.Get(ctx, "t1")
	if err != nil || loaded == nil {
		t.Fatal(err)
	}
	if loaded.State != task.StateProcessing {
		t.Fatalf("state after update = %s", loaded.State)
	}
}

func TestRedisUpdateMissingRecordUsesFullWindow(t *testing.T) {
	st, fake := newRedisStore(24 * time.Hour)
	ctx := context.Background()

	// No Create: the record was evicted, TTL reports missing.
	rec := &task.Task{ID: "gone", State: task.StateProcessing}
	if err := st.Update(ctx, rec); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := fake.setTTLs[taskKey("gone")]; got != 24*time.Hour {
		t.Fatalf("ttl = %v, want full window for a rewritten record", got)
	}
}

func TestRedisGetMissingReturnsNil(t *testing.T) {
	st, _ := newRedisStore(time.Hour)

	got, err := st.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("Get absent = %+v, want nil", got)
	}
}

func TestRedisDeleteIsBestEffort(t *testing.T) {
	st, fake := newRedisStore(time.Hour)
	ctx := context.Background()

	if err := st.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}

	if err := st.Create(ctx, &task.Task{ID: "t1"}); err != nil {
		t.Fatal(err)
	}
	if err := st.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := fake.records[taskKey("t1")]; ok {
		t.Fatal("record should be gone")
	}
}

func TestRedisListSkipsEvictedKeys(t *testing.T) {
	st, fake := newRedisStore(time.Hour)
	ctx := context.Background()

	if err := st.Create(ctx, &task.Task{ID: "a", State: task.StateFinished}); err != nil {
		t.Fatal(err)
	}
	if err := st.Create(ctx, &task.Task{ID: "b", State: task.StateError}); err != nil {
		t.Fatal(err)
	}
	fake.evictedKeys = []string{taskKey("c")}

	tasks, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want the evicted key skipped", len(tasks))
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := task.Stats{Total: 2, Finished: 1, Error: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
}

func TestRedisListExpiredAlwaysEmpty(t *testing.T) {
	st, _ := newRedisStore(time.Hour)
	ctx := context.Background()

	if err := st.Create(ctx, &task.Task{ID: "old", CreatedAt: time.Now().Add(-48 * time.Hour)}); err != nil {
		t.Fatal(err)
	}

	expired, err := st.ListExpired(ctx, time.Nanosecond)
	if err != nil {
		t.Fatalf("ListExpired: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("expired = %d, expiry belongs to the backend ttl", len(expired))
	}
}

func TestRedisCloseReleasesClient(t *testing.T) {
	st, fake := newRedisStore(time.Hour)
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !fake.closed {
		t.Fatal("client should be closed")
	}
}
