package models

import "time"

// DefaultLocationName is reported until a location is set manually
const DefaultLocationName = "Los Angeles, CA"

// LocationState is the single current location record
type LocationState struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	Timestamp   time.Time   `json:"timestamp"`
}

// DefaultLocation returns the fallback location stamped at now
func DefaultLocation(now time.Time) LocationState {
	return LocationState{
		Name:        DefaultLocationName,
		Coordinates: DefaultCoordinates,
		Timestamp:   now.UTC(),
	}
}

// LocationUpdate is a manual location change request
type LocationUpdate struct {
	Location    string       `json:"location"`
	Activity    string       `json:"activity,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Timestamp   *time.Time   `json:"timestamp,omitempty"`
}
