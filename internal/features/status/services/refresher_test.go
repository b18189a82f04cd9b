package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"quarterly-status/internal/core"
	"quarterly-status/internal/features/status/models"
	"quarterly-status/internal/features/status/store"
)

func newRefresher(clock *testClock, repo *store.Repository, sources ...Source) *Refresher {
	return NewRefresher(repo, sources, DefaultRefresherConfig(), core.NewDiscardLogger()).WithClock(clock.Now)
}

func TestRefreshMergesSources(t *testing.T) {
	clock := newTestClock()
	repo := newTestRepo(clock)
	ctx := context.Background()

	commits := &fakeSource{name: "commits", activities: []models.Activity{
		activity("github-aaaa", clock.Now().Add(-2*time.Hour)),
		activity("shared", clock.Now().Add(-3*time.Hour)),
	}}
	posts := &fakeSource{name: "feeds", activities: []models.Activity{
		activity("rss-1", clock.Now().Add(-time.Hour)),
		activity("shared", clock.Now().Add(-30*time.Minute)),
	}}

	res, err := newRefresher(clock, repo, commits, posts).Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if res.RunID == "" {
		t.Error("Expected a run id")
	}

	history, _ := repo.History(ctx)
	want := []string{"rss-1", "github-aaaa", "shared"}
	if got := ids(history); len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("Expected history %v, got %v", want, got)
	}
	if len(res.Appended) != 3 {
		t.Errorf("Expected 3 appended, got %d", len(res.Appended))
	}
	if res.View.LastUpdate != clock.Now().UnixMilli() || len(res.View.Activities) != 3 {
		t.Errorf("Unexpected view %+v", res.View)
	}
	for _, a := range history {
		if a.Location != models.DefaultLocationName || a.Coordinates == nil || a.LocationTimestamp == nil {
			t.Errorf("Expected %s to carry the location stamp, got %+v", a.ID, a)
		}
	}
}

func TestRefreshSourceIsolation(t *testing.T) {
	clock := newTestClock()
	repo := newTestRepo(clock)

	broken := &fakeSource{name: "broken", err: errors.New("connection refused")}
	panicky := &fakeSource{name: "panicky", panicMsg: "nil map"}
	healthy := &fakeSource{name: "healthy", activities: []models.Activity{activity("rss-ok", clock.Now())}}

	res, err := newRefresher(clock, repo, broken, panicky, healthy).Refresh(context.Background())
	if err != nil {
		t.Fatalf("Expected source failures not to propagate, got %v", err)
	}
	if len(res.View.Activities) != 1 || res.View.Activities[0].ID != "rss-ok" {
		t.Errorf("Expected the surviving source's activity, got %v", ids(res.View.Activities))
	}
	if len(res.Failed) != 2 || len(res.Succeeded) != 1 {
		t.Errorf("Expected 2 failed and 1 succeeded, got %v / %v", res.Failed, res.Succeeded)
	}
}

func TestRefreshDropsInvalidActivities(t *testing.T) {
	clock := newTestClock()
	repo := newTestRepo(clock)

	src := &fakeSource{name: "s", activities: []models.Activity{
		activity("ok", clock.Now()),
		{ID: "", Type: models.ActivityContent, Timestamp: clock.Now()},
		{ID: "no-time", Type: models.ActivityContent},
	}}

	res, err := newRefresher(clock, repo, src).Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := ids(res.View.Activities); len(got) != 1 || got[0] != "ok" {
		t.Errorf("Expected only the valid activity, got %v", got)
	}
}

func TestRefreshLocationSnapshot(t *testing.T) {
	clock := newTestClock()
	repo := newTestRepo(clock)
	ctx := context.Background()
	locations := newLocationService(clock, repo, nil)

	if _, err := locations.Set(ctx, models.LocationUpdate{Location: "Austin, TX"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	clock.Advance(time.Minute)

	// the location moves while the source is in flight
	src := &fakeSource{
		name:       "feeds",
		activities: []models.Activity{activity("rss-during", clock.Now().Add(-time.Second))},
		before: func() {
			if _, err := locations.Set(ctx, models.LocationUpdate{Location: "Denver, CO"}); err != nil {
				t.Errorf("Set during refresh failed: %v", err)
			}
		},
	}

	res, err := newRefresher(clock, repo, src).Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	var stamped *models.Activity
	history, _ := repo.History(ctx)
	for i := range history {
		if history[i].ID == "rss-during" {
			stamped = &history[i]
		}
	}
	if stamped == nil {
		t.Fatalf("Expected rss-during in history, got %v", ids(history))
	}
	if stamped.Location != "Austin, TX" {
		t.Errorf("Expected location from the start of the refresh, got %q", stamped.Location)
	}

	// both location activities survive alongside the merged one
	if len(history) != 3 {
		t.Errorf("Expected 3 history entries, got %v", ids(history))
	}
	if res.View.Location.Name != "Denver, CO" {
		t.Errorf("Expected view to show the current location, got %q", res.View.Location.Name)
	}
}

func TestRefreshIdempotentScenario(t *testing.T) {
	clock := newTestClock()
	repo := newTestRepo(clock)
	ctx := context.Background()

	ts, _ := time.Parse(time.RFC3339, "2024-01-01T00:00:00Z")
	src := &fakeSource{name: "feeds", activities: []models.Activity{activity("rss-abc123", ts)}}
	r := newRefresher(clock, repo, src)

	first, err := r.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(first.View.Activities) != 1 {
		t.Errorf("Expected 1 activity in view, got %d", len(first.View.Activities))
	}

	clock.Advance(time.Hour)
	second, err := r.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(second.Appended) != 0 {
		t.Errorf("Expected nothing appended, got %v", ids(second.Appended))
	}

	history, _ := repo.History(ctx)
	if len(history) != 1 {
		t.Errorf("Expected history to stay at 1, got %d", len(history))
	}
	if !history[0].LocationTimestamp.Equal(clock.Now().Add(-time.Hour)) {
		t.Errorf("Expected the original location stamp to be kept, got %v", history[0].LocationTimestamp)
	}
}

func TestStatusFreshness(t *testing.T) {
	clock := newTestClock()
	repo := newTestRepo(clock)
	ctx := context.Background()

	src := &fakeSource{name: "feeds", activities: []models.Activity{activity("rss-1", clock.Now())}}
	r := newRefresher(clock, repo, src)

	view, err := r.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if src.calls.Load() != 1 {
		t.Fatalf("Expected a refresh on empty cache, got %d calls", src.calls.Load())
	}

	clock.Advance(5 * time.Minute)
	again, _ := r.Status(ctx)
	if src.calls.Load() != 1 {
		t.Errorf("Expected cached view within freshness window, got %d calls", src.calls.Load())
	}
	if again.LastUpdate != view.LastUpdate {
		t.Errorf("Expected the cached view, got lastUpdate %d", again.LastUpdate)
	}

	clock.Advance(6 * time.Minute)
	stale, _ := r.Status(ctx)
	if src.calls.Load() != 2 {
		t.Errorf("Expected a refresh after the freshness window, got %d calls", src.calls.Load())
	}
	if stale.LastUpdate != clock.Now().UnixMilli() {
		t.Errorf("Expected a new view, got lastUpdate %d", stale.LastUpdate)
	}
}

func TestStatusAfterCacheExpiry(t *testing.T) {
	clock := newTestClock()
	repo := newTestRepo(clock)
	cfg := DefaultRefresherConfig()
	cfg.FreshnessWindow = time.Hour
	cfg.View.CacheTTL = 30 * time.Minute

	src := &fakeSource{name: "feeds"}
	r := NewRefresher(repo, []Source{src}, cfg, core.NewDiscardLogger()).WithClock(clock.Now)

	r.Status(context.Background())
	clock.Advance(31 * time.Minute)
	r.Status(context.Background())

	if src.calls.Load() != 2 {
		t.Errorf("Expected store expiry to force a refresh inside the freshness window, got %d calls", src.calls.Load())
	}
}

func TestRefreshStoreFailure(t *testing.T) {
	clock := newTestClock()
	repo := store.NewRepository(failingKV{}, core.NewDiscardLogger())

	_, err := newRefresher(clock, repo, &fakeSource{name: "s"}).Refresh(context.Background())
	var appErr *core.AppError
	if !errors.As(err, &appErr) || appErr.Code != core.ErrCodeStore {
		t.Errorf("Expected store error, got %v", err)
	}
}

func TestSchedulerRunsRefresh(t *testing.T) {
	clock := newTestClock()
	repo := newTestRepo(clock)
	src := &fakeSource{name: "feeds"}
	r := newRefresher(clock, repo, src)

	s := NewScheduler(r, repo, 10*time.Millisecond, core.NewDiscardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if src.calls.Load() < 2 {
		t.Errorf("Expected the initial and at least one scheduled refresh, got %d", src.calls.Load())
	}

	// stopping twice is harmless
	if err := s.Stop(stopCtx); err != nil {
		t.Errorf("Second Stop failed: %v", err)
	}
}

func TestSchedulerDisabled(t *testing.T) {
	clock := newTestClock()
	repo := newTestRepo(clock)
	src := &fakeSource{name: "feeds"}

	s := NewScheduler(newRefresher(clock, repo, src), repo, 0, core.NewDiscardLogger())
	s.Start(context.Background())
	s.Stop(context.Background())

	if src.calls.Load() != 0 {
		t.Errorf("Expected no refresh when disabled, got %d", src.calls.Load())
	}
}
