package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// defaultMaxBodyBytes bounds how much of an upstream response is read
const defaultMaxBodyBytes = 5 << 20

// FetcherConfig holds configuration for the fetcher
type FetcherConfig struct {
	UserAgent string
	Timeout   time.Duration
	// PerHostInterval is the minimum spacing between requests to one host
	PerHostInterval time.Duration
	PerHostBurst    int
	// MaxBodyBytes is the largest accepted response body
	MaxBodyBytes int64
}

// DefaultFetcherConfig returns the fetcher defaults
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		UserAgent:       "Quarterly-Systems-Status/1.0",
		Timeout:         15 * time.Second,
		PerHostInterval: 500 * time.Millisecond,
		PerHostBurst:    3,
		MaxBodyBytes:    defaultMaxBodyBytes,
	}
}

// Fetcher performs rate-limited GET requests against upstream feeds
type Fetcher struct {
	client *http.Client
	config FetcherConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher creates a new fetcher
func NewFetcher(config FetcherConfig) *Fetcher {
	if config.PerHostBurst < 1 {
		config.PerHostBurst = 1
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Fetcher{
		client:   &http.Client{Timeout: config.Timeout},
		config:   config,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[host]
	if !ok {
		limit := rate.Inf
		if f.config.PerHostInterval > 0 {
			limit = rate.Every(f.config.PerHostInterval)
		}
		l = rate.NewLimiter(limit, f.config.PerHostBurst)
		f.limiters[host] = l
	}
	return l
}

// Get fetches rawURL and returns the body. Non-2xx responses are errors.
func (f *Fetcher) Get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	if err := f.limiter(u.Host).Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait for %s: %w", u.Host, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > f.config.MaxBodyBytes {
		return nil, fmt.Errorf("%s response body exceeds %d bytes", rawURL, f.config.MaxBodyBytes)
	}
	return body, nil
}
