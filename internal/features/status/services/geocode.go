package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"quarterly-status/internal/features/status/models"
)

// Place is the human-readable area around a coordinate pair
type Place struct {
	Neighborhood string
	City         string
}

// Geocoder resolves coordinates to a Place
type Geocoder interface {
	Reverse(ctx context.Context, coords models.Coordinates) (Place, error)
}

type nominatimResponse struct {
	Address *struct {
		Suburb        string `json:"suburb"`
		Neighbourhood string `json:"neighbourhood"`
		CityDistrict  string `json:"city_district"`
		City          string `json:"city"`
		Town          string `json:"town"`
		Village       string `json:"village"`
		State         string `json:"state"`
		Province      string `json:"province"`
	} `json:"address"`
}

// NominatimGeocoder queries an OpenStreetMap Nominatim reverse endpoint.
// Requests are limited to one per second as the public instance requires.
type NominatimGeocoder struct {
	client    *http.Client
	endpoint  string
	userAgent string
	limiter   *rate.Limiter
}

// NewNominatimGeocoder creates a geocoder for endpoint
func NewNominatimGeocoder(endpoint, userAgent string, timeout time.Duration) *NominatimGeocoder {
	return &NominatimGeocoder{
		client:    &http.Client{Timeout: timeout},
		endpoint:  endpoint,
		userAgent: userAgent,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Reverse implements Geocoder
func (g *NominatimGeocoder) Reverse(ctx context.Context, coords models.Coordinates) (Place, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return Place{}, fmt.Errorf("geocode rate limit: %w", err)
	}

	u, err := url.Parse(g.endpoint)
	if err != nil {
		return Place{}, fmt.Errorf("invalid geocode endpoint: %w", err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(coords.Lat(), 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coords.Lng(), 'f', -1, 64))
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Place{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("geocoding API error: %d", resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, defaultMaxBodyBytes)).Decode(&body); err != nil {
		return Place{}, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if body.Address == nil {
		return Place{}, fmt.Errorf("geocode response has no address")
	}

	addr := body.Address
	neighborhood := firstOf(addr.Suburb, addr.Neighbourhood, addr.CityDistrict, addr.City, "Unknown")
	city := firstOf(addr.City, addr.Town, addr.Village, "Unknown")
	if state := firstOf(addr.State, addr.Province); state != "" {
		city = city + ", " + state
	}

	return Place{Neighborhood: neighborhood, City: city}, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
