package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the main configuration for the status service
type Config struct {
	Server   ServerConfig  `json:"server"`
	Store    StoreConfig   `json:"store"`
	CORS     CORSConfig    `json:"cors"`
	Features FeatureConfig `json:"features"`
	Logging  LoggingConfig `json:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port         int    `json:"port"`
	Host         string `json:"host"`
	ExposeErrors bool   `json:"expose_errors"`
}

// StoreConfig selects and configures the key-value backend
type StoreConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	DatabaseURL string `json:"-"`
}

// CORSConfig lists the origins allowed to call the API
type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
}

// LoggingConfig contains logger configuration
type LoggingConfig struct {
	Level string `json:"level"`
}

// FeatureConfig contains feature-specific configuration
type FeatureConfig struct {
	Status StatusConfig `json:"status"`
}

// StatusConfig contains activity aggregation configuration
type StatusConfig struct {
	Enabled         bool          `json:"enabled"`
	FreshnessWindow time.Duration `json:"freshness_window"`
	CacheTTL        time.Duration `json:"cache_ttl"`
	RefreshInterval time.Duration `json:"refresh_interval"`
	FetchTimeout    time.Duration `json:"fetch_timeout"`
	ViewLimit       int           `json:"view_limit"`
	UserAgent       string        `json:"user_agent"`
	SourcesFile     string        `json:"sources_file"`
	FeedParser      string        `json:"feed_parser"`
	GitHubToken     string        `json:"-"`
	GeocodeEnabled  bool          `json:"geocode_enabled"`
	GeocodeURL      string        `json:"geocode_url"`
}

// Supported store drivers
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// DefaultAllowedOrigins are the origins allowed when STATUS_CORS_ORIGINS is unset.
// The first entry is the fallback origin for disallowed callers.
var DefaultAllowedOrigins = []string{
	"https://quarterly.systems",
	"https://www.quarterly.systems",
	"https://quarterly-systems-landing.pages.dev",
	"http://localhost:4321",
	"http://localhost:3000",
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("STATUS_PORT", 8787),
			Host:         getEnvOrDefault("STATUS_HOST", "0.0.0.0"),
			ExposeErrors: getEnvAsBool("STATUS_EXPOSE_ERRORS", true),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(getEnvOrDefault("STATUS_STORE_DRIVER", StoreDriverSQLite)),
			Path:        getEnvOrDefault("STATUS_DB_PATH", "./status.db"),
			DatabaseURL: getEnvOrDefault("STATUS_DATABASE_URL", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("STATUS_CORS_ORIGINS", DefaultAllowedOrigins),
		},
		Logging: LoggingConfig{
			Level: getEnvOrDefault("STATUS_LOG_LEVEL", "info"),
		},
		Features: FeatureConfig{
			Status: StatusConfig{
				Enabled:         getEnvAsBool("STATUS_ENABLE_AGGREGATOR", true),
				FreshnessWindow: getEnvAsDuration("STATUS_FRESHNESS_WINDOW", 10*time.Minute),
				CacheTTL:        getEnvAsDuration("STATUS_CACHE_TTL", 30*time.Minute),
				RefreshInterval: getEnvAsDuration("STATUS_REFRESH_INTERVAL", 15*time.Minute),
				FetchTimeout:    getEnvAsDuration("STATUS_FETCH_TIMEOUT", 15*time.Second),
				ViewLimit:       getEnvAsInt("STATUS_VIEW_LIMIT", 20),
				UserAgent:       getEnvOrDefault("STATUS_USER_AGENT", "Quarterly-Systems-Status/1.0"),
				SourcesFile:     getEnvOrDefault("STATUS_SOURCES_FILE", ""),
				FeedParser:      strings.ToLower(getEnvOrDefault("STATUS_FEED_PARSER", "scanner")),
				GitHubToken:     getEnvOrDefault("GITHUB_TOKEN", ""),
				GeocodeEnabled:  getEnvAsBool("STATUS_GEOCODE_ENABLED", false),
				GeocodeURL:      getEnvOrDefault("STATUS_GEOCODE_URL", "https://nominatim.openstreetmap.org/reverse"),
			},
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Store.Driver {
	case StoreDriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("database path is required for the sqlite store")
		}
	case StoreDriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("STATUS_DATABASE_URL is required for the postgres store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one CORS origin is required")
	}

	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return err
	}

	return nil
}

// IsFeatureEnabled checks if a feature is enabled
func (c *Config) IsFeatureEnabled(featureName string) bool {
	switch strings.ToLower(featureName) {
	case "status":
		return c.Features.Status.Enabled
	default:
		return false
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Bare integers are seconds
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
