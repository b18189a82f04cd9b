package status

import (
	"context"
	"net/http"
	"testing"
	"time"

	"quarterly-status/internal/core"
	"quarterly-status/internal/features/status/models"
	"quarterly-status/internal/features/status/services"
	"quarterly-status/internal/features/status/store"
)

type stubSource struct {
	activities []models.Activity
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(ctx context.Context) ([]models.Activity, error) {
	return s.activities, nil
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *Config {
	return &Config{
		Enabled:         true,
		Store:           core.StoreConfig{Driver: core.StoreDriverMemory},
		FreshnessWindow: 10 * time.Minute,
		CacheTTL:        30 * time.Minute,
		FetchTimeout:    time.Second,
		ViewLimit:       20,
		UserAgent:       "test-agent",
	}
}

func newTestFeature(t *testing.T, config *Config, sources ...services.Source) (*Feature, store.KV) {
	t.Helper()
	kv := store.NewMemoryKVWithClock(func() time.Time { return testNow })
	f := NewFeature(core.NewDiscardLogger(), config, Options{
		KV:      kv,
		Sources: sources,
		Now:     func() time.Time { return testNow },
	})
	return f, kv
}

func TestFeatureInit(t *testing.T) {
	f, _ := newTestFeature(t, testConfig(), &stubSource{})
	if err := f.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer f.Shutdown(context.Background())

	if f.Name() != "status" || !f.Enabled() {
		t.Errorf("Unexpected feature identity %s enabled=%v", f.Name(), f.Enabled())
	}

	routes := f.Routes()
	want := map[string][]string{
		"/api/status":     {http.MethodGet},
		"/api/refresh":    {http.MethodGet, http.MethodPost},
		"/api/location":   {http.MethodPost},
		"/api/activities": {http.MethodGet},
	}
	if len(routes) != len(want) {
		t.Fatalf("Expected %d routes, got %d", len(want), len(routes))
	}
	for _, r := range routes {
		methods, ok := want[r.Path]
		if !ok {
			t.Errorf("Unexpected route %s", r.Path)
			continue
		}
		if len(methods) != len(r.Methods) {
			t.Errorf("Expected methods %v for %s, got %v", methods, r.Path, r.Methods)
		}
	}
}

func TestFeatureRoutesBeforeInit(t *testing.T) {
	f, _ := newTestFeature(t, testConfig())
	if routes := f.Routes(); routes != nil {
		t.Errorf("Expected no routes before Init, got %d", len(routes))
	}
	if err := f.Start(context.Background()); err == nil {
		t.Error("Expected Start to fail before Init")
	}
}

func TestFeatureInitRejectsInvalidConfig(t *testing.T) {
	config := testConfig()
	config.ViewLimit = 0

	f, _ := newTestFeature(t, config)
	if err := f.Init(context.Background()); err == nil {
		t.Error("Expected Init to fail on invalid config")
	}
}

func TestFeatureRefreshJob(t *testing.T) {
	src := &stubSource{activities: []models.Activity{{
		ID:        "rss-abc",
		Type:      models.ActivityContent,
		Title:     "Content Publication",
		Timestamp: testNow.Add(-time.Hour),
		Source:    "Test",
	}}}
	f, kv := newTestFeature(t, testConfig(), src)
	ctx := context.Background()
	if err := f.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	jobs := f.Jobs()
	if len(jobs) != 1 || jobs[0].Name != "refresh" {
		t.Fatalf("Expected a single refresh job, got %+v", jobs)
	}
	if err := jobs[0].Run(ctx); err != nil {
		t.Fatalf("Refresh job failed: %v", err)
	}

	raw, ok, err := kv.Get(ctx, store.KeyHistory)
	if err != nil || !ok {
		t.Fatalf("Expected history to be stored, got ok=%v err=%v", ok, err)
	}
	if raw == "" || raw == "[]" {
		t.Errorf("Expected history to contain the activity, got %s", raw)
	}
}

func TestFeatureSetLocation(t *testing.T) {
	f, _ := newTestFeature(t, testConfig())
	ctx := context.Background()
	if err := f.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	loc, err := f.SetLocation(ctx, models.LocationUpdate{Location: "Austin, TX"})
	if err != nil {
		t.Fatalf("SetLocation failed: %v", err)
	}
	if loc.Name != "Austin, TX" || loc.Coordinates != models.DefaultCoordinates {
		t.Errorf("Unexpected location %+v", loc)
	}
	if !loc.Timestamp.Equal(testNow) {
		t.Errorf("Expected timestamp %v, got %v", testNow, loc.Timestamp)
	}
}

func TestFeatureStartAndShutdown(t *testing.T) {
	config := testConfig()
	config.RefreshInterval = time.Hour

	src := &stubSource{}
	f, _ := newTestFeature(t, config, src)
	ctx := context.Background()
	if err := f.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := f.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := f.Shutdown(shutdownCtx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestFeatureBuildsSourcesFromCatalogue(t *testing.T) {
	config := testConfig()
	f := NewFeature(core.NewDiscardLogger(), config, Options{KV: store.NewMemoryKV()})

	catalogue, err := LoadSources("")
	if err != nil {
		t.Fatalf("LoadSources failed: %v", err)
	}

	sources, err := f.buildSources(context.Background(), catalogue, core.NewDiscardLogger())
	if err != nil {
		t.Fatalf("buildSources failed: %v", err)
	}
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name()
	}
	if len(names) != 2 || names[0] != "commits" || names[1] != "feeds" {
		t.Errorf("Expected [commits feeds] without a token, got %v", names)
	}

	config.GitHubToken = "token"
	sources, err = f.buildSources(context.Background(), catalogue, core.NewDiscardLogger())
	if err != nil {
		t.Fatalf("buildSources failed: %v", err)
	}
	if len(sources) != 3 || sources[1].Name() != "github-events" {
		t.Errorf("Expected github-events between commits and feeds, got %d sources", len(sources))
	}

	config.FeedParser = "nope"
	if _, err := f.buildSources(context.Background(), catalogue, core.NewDiscardLogger()); err == nil {
		t.Error("Expected an unknown parser to fail")
	}
}

func TestFeatureGeocoder(t *testing.T) {
	config := testConfig()
	f := NewFeature(core.NewDiscardLogger(), config, Options{})
	if g := f.geocoder(); g != nil {
		t.Errorf("Expected no geocoder when disabled, got %T", g)
	}

	config.GeocodeEnabled = true
	config.GeocodeURL = "https://nominatim.example.com/reverse"
	if _, ok := f.geocoder().(*services.NominatimGeocoder); !ok {
		t.Errorf("Expected a Nominatim geocoder, got %T", f.geocoder())
	}
}
