package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"STATUS_PORT", "STATUS_STORE_DRIVER", "STATUS_CORS_ORIGINS",
		"STATUS_FRESHNESS_WINDOW", "STATUS_CACHE_TTL", "STATUS_ENABLE_AGGREGATOR",
		"STATUS_LOG_LEVEL", "STATUS_FEED_PARSER",
	} {
		t.Setenv(key, "")
	}

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Server.Port != 8787 {
		t.Errorf("Expected port 8787, got %d", config.Server.Port)
	}
	if config.Store.Driver != StoreDriverSQLite {
		t.Errorf("Expected sqlite store, got %s", config.Store.Driver)
	}
	if len(config.CORS.AllowedOrigins) != len(DefaultAllowedOrigins) {
		t.Errorf("Expected default origins, got %v", config.CORS.AllowedOrigins)
	}
	s := config.Features.Status
	if s.FreshnessWindow != 10*time.Minute || s.CacheTTL != 30*time.Minute {
		t.Errorf("Unexpected freshness %v / ttl %v", s.FreshnessWindow, s.CacheTTL)
	}
	if !config.IsFeatureEnabled("status") || config.IsFeatureEnabled("uptime") {
		t.Error("Expected only the status feature to be enabled")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STATUS_PORT", "9000")
	t.Setenv("STATUS_STORE_DRIVER", "Memory")
	t.Setenv("STATUS_CORS_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("STATUS_FRESHNESS_WINDOW", "90")
	t.Setenv("STATUS_CACHE_TTL", "1h")
	t.Setenv("STATUS_ENABLE_AGGREGATOR", "off")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Server.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", config.Server.Port)
	}
	if config.Store.Driver != StoreDriverMemory {
		t.Errorf("Expected memory store, got %s", config.Store.Driver)
	}
	origins := config.CORS.AllowedOrigins
	if len(origins) != 2 || origins[1] != "https://b.example.com" {
		t.Errorf("Unexpected origins %v", origins)
	}
	if config.Features.Status.FreshnessWindow != 90*time.Second {
		t.Errorf("Expected bare integers to be seconds, got %v", config.Features.Status.FreshnessWindow)
	}
	if config.Features.Status.CacheTTL != time.Hour {
		t.Errorf("Expected 1h TTL, got %v", config.Features.Status.CacheTTL)
	}
	if config.IsFeatureEnabled("status") {
		t.Error("Expected the status feature to be disabled")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8787},
			Store:   StoreConfig{Driver: StoreDriverSQLite, Path: "status.db"},
			CORS:    CORSConfig{AllowedOrigins: []string{"https://quarterly.systems"}},
			Logging: LoggingConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"sqlite without path", func(c *Config) { c.Store.Path = "" }, true},
		{"postgres without url", func(c *Config) { c.Store.Driver = StoreDriverPostgres }, true},
		{"postgres with url", func(c *Config) {
			c.Store.Driver = StoreDriverPostgres
			c.Store.DatabaseURL = "postgres://localhost/status"
		}, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "redis" }, true},
		{"no origins", func(c *Config) { c.CORS.AllowedOrigins = nil }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLogLevel(name)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q): expected %v, got %v (%v)", name, want, got, err)
		}
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		expose  bool
		status  int
		message string
	}{
		{"validation", NewValidationError("location is required", nil), true, http.StatusBadRequest, "location is required"},
		{"wrapped validation", fmt.Errorf("handler: %w", NewValidationError("bad page", errors.New("strconv"))), true, http.StatusBadRequest, "bad page"},
		{"store exposed", NewStoreError("failed to read history", errors.New("disk full")), true, http.StatusInternalServerError, "failed to read history: disk full"},
		{"store hidden", NewStoreError("failed to read history", errors.New("disk full")), false, http.StatusInternalServerError, "failed to read history"},
		{"plain exposed", errors.New("unexpected EOF"), true, http.StatusInternalServerError, "unexpected EOF"},
		{"plain hidden", errors.New("unexpected EOF"), false, http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err, tt.expose)

			if rec.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rec.Code)
			}
			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if body.Error != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, body.Error)
			}
		})
	}
}

type testFeature struct {
	*BaseFeature
	jobs    []Job
	failOn  string
	started bool
}

func (f *testFeature) Init(ctx context.Context) error {
	if f.failOn == "init" {
		return errors.New("init failed")
	}
	return nil
}

func (f *testFeature) Start(ctx context.Context) error {
	f.started = true
	return nil
}

func (f *testFeature) Jobs() []Job { return f.jobs }

func TestRegistry(t *testing.T) {
	logger := NewDiscardLogger()
	registry := NewRegistry(logger)

	on := &testFeature{
		BaseFeature: NewBaseFeature("on", "enabled", true, logger),
		jobs:        []Job{{Name: "refresh", Run: func(ctx context.Context) error { return nil }}},
	}
	off := &testFeature{BaseFeature: NewBaseFeature("off", "disabled", false, logger)}

	for _, f := range []Feature{on, off} {
		if err := registry.Register(f); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	if err := registry.Register(on); err == nil {
		t.Error("Expected duplicate registration to fail")
	}

	enabled := registry.ListEnabled()
	if len(enabled) != 1 || enabled[0].Name() != "on" {
		t.Errorf("Expected only 'on' enabled, got %d features", len(enabled))
	}

	ctx := context.Background()
	if err := registry.InitAll(ctx); err != nil {
		t.Fatalf("InitAll failed: %v", err)
	}
	if err := registry.StartAll(ctx); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if !on.started || off.started {
		t.Error("Expected only enabled features to start")
	}

	if _, ok := registry.FindJob("refresh"); !ok {
		t.Error("Expected to find the refresh job")
	}
	if _, ok := registry.FindJob("missing"); ok {
		t.Error("Expected no job named missing")
	}
	if err := registry.ShutdownAll(ctx); err != nil {
		t.Errorf("ShutdownAll failed: %v", err)
	}

	on.failOn = "init"
	if err := registry.InitAll(ctx); err == nil {
		t.Error("Expected InitAll to report a failing feature")
	}
}

func TestRebind(t *testing.T) {
	query := `INSERT INTO t (a, b) VALUES (?, ?)`

	sqlite := NewDatabase(nil, NewDiscardLogger())
	if got := sqlite.Rebind(query); got != query {
		t.Errorf("Expected sqlite query unchanged, got %s", got)
	}

	postgres := NewDatabaseWithDialect(nil, DialectPostgres, NewDiscardLogger())
	if got := postgres.Rebind(query); got != `INSERT INTO t (a, b) VALUES ($1, $2)` {
		t.Errorf("Unexpected postgres query %s", got)
	}
}
