package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"quarterly-status/internal/core"
	"quarterly-status/internal/features/status/models"
	"quarterly-status/internal/features/status/store"
)

// testClock is a settable clock shared by services under test
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeSource returns canned activities and counts calls
type fakeSource struct {
	name       string
	activities []models.Activity
	err        error
	panicMsg   string
	before     func()
	calls      atomic.Int32
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context) ([]models.Activity, error) {
	f.calls.Add(1)
	if f.before != nil {
		f.before()
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Activity, len(f.activities))
	copy(out, f.activities)
	return out, nil
}

// failingKV fails every operation
type failingKV struct{}

var errStoreDown = errors.New("store down")

func (failingKV) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errStoreDown
}

func (failingKV) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return errStoreDown
}

func (failingKV) Close() error { return nil }

func newTestRepo(clock *testClock) *store.Repository {
	return store.NewRepository(store.NewMemoryKVWithClock(clock.Now), core.NewDiscardLogger()).WithClock(clock.Now)
}

func activity(id string, ts time.Time) models.Activity {
	return models.Activity{
		ID:          id,
		Type:        models.ActivityContent,
		Title:       "Content Publication",
		Description: "Published: " + id,
		Timestamp:   ts,
		Source:      "Test",
	}
}

func ids(activities []models.Activity) []string {
	out := make([]string, len(activities))
	for i, a := range activities {
		out[i] = a.ID
	}
	return out
}
