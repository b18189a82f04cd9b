package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ActivityType classifies an activity
type ActivityType string

const (
	ActivityDevelopment ActivityType = "development"
	ActivityDeployment  ActivityType = "deployment"
	ActivityContent     ActivityType = "content"
	ActivityResearch    ActivityType = "research"
	ActivityLocation    ActivityType = "location"
)

// Valid reports whether t is one of the known activity types
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityDevelopment, ActivityDeployment, ActivityContent, ActivityResearch, ActivityLocation:
		return true
	}
	return false
}

// Well-known activity sources
const (
	SourceGitHub = "GitHub"
	SourceManual = "Manual"
)

// Activity is one deduplicated event in the feed
type Activity struct {
	ID                string         `json:"id"`
	Type              ActivityType   `json:"type"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Timestamp         time.Time      `json:"timestamp"`
	Source            string         `json:"source"`
	Location          string         `json:"location,omitempty"`
	Coordinates       *Coordinates   `json:"coordinates,omitempty"`
	LocationTimestamp *time.Time     `json:"locationTimestamp,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// Validate checks the fields every stored activity must carry
func (a Activity) Validate() error {
	if a.ID == "" {
		return errors.New("activity id is required")
	}
	if a.Timestamp.IsZero() {
		return fmt.Errorf("activity %s: timestamp is required", a.ID)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("activity %s: unknown type %q", a.ID, a.Type)
	}
	return nil
}

// StampLocation returns a copy of a carrying the given location context
func (a Activity) StampLocation(loc LocationState) Activity {
	coords := loc.Coordinates
	ts := loc.Timestamp
	a.Location = loc.Name
	a.Coordinates = &coords
	a.LocationTimestamp = &ts
	return a
}

// Coordinates is a [latitude, longitude] pair
type Coordinates [2]float64

// DefaultCoordinates is used whenever no coordinates are supplied (Los Angeles)
var DefaultCoordinates = Coordinates{34.0522, -118.2437}

// NewCoordinates validates and builds a coordinate pair
func NewCoordinates(lat, lng float64) (Coordinates, error) {
	c := Coordinates{lat, lng}
	return c, c.Validate()
}

// Lat returns the latitude
func (c Coordinates) Lat() float64 { return c[0] }

// Lng returns the longitude
func (c Coordinates) Lng() float64 { return c[1] }

// Validate checks that the pair is a finite, in-range position
func (c Coordinates) Validate() error {
	for _, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("coordinates must be finite numbers")
		}
	}
	if c.Lat() < -90 || c.Lat() > 90 {
		return fmt.Errorf("latitude %v out of range", c.Lat())
	}
	if c.Lng() < -180 || c.Lng() > 180 {
		return fmt.Errorf("longitude %v out of range", c.Lng())
	}
	return nil
}

// UnmarshalJSON accepts exactly two numbers
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("coordinates: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("coordinates: expected [lat, lng], got %d values", len(raw))
	}
	parsed := Coordinates{raw[0], raw[1]}
	if err := parsed.Validate(); err != nil {
		return err
	}
	*c = parsed
	return nil
}
