package models

import "time"

// StatusView is the bounded, cached projection of history and location
type StatusView struct {
	LastUpdate int64                    `json:"lastUpdate"`
	Location   ViewLocation             `json:"location"`
	Activities []Activity               `json:"activities"`
	Services   map[string]ServiceHealth `json:"services"`
}

// ViewLocation is the location block of a StatusView
type ViewLocation struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	LastSeen    time.Time   `json:"lastSeen"`
}

// ServiceHealth is a synthetic health entry for one service
type ServiceHealth struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	ResponseTime string `json:"responseTime"`
}

// UpdatedAt returns LastUpdate as a time
func (v StatusView) UpdatedAt() time.Time {
	return time.UnixMilli(v.LastUpdate).UTC()
}

// BuildStatusView assembles a view from the first limit entries of history
func BuildStatusView(history []Activity, loc LocationState, services map[string]ServiceHealth, limit int, now time.Time) StatusView {
	if limit < 0 {
		limit = 0
	}
	n := min(limit, len(history))

	activities := make([]Activity, n)
	copy(activities, history[:n])

	svc := make(map[string]ServiceHealth, len(services))
	for name, health := range services {
		svc[name] = health
	}

	return StatusView{
		LastUpdate: now.UnixMilli(),
		Location: ViewLocation{
			Name:        loc.Name,
			Coordinates: loc.Coordinates,
			LastSeen:    loc.Timestamp,
		},
		Activities: activities,
		Services:   svc,
	}
}
