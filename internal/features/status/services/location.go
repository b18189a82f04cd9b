package services

import (
	"context"
	"strings"
	"time"

	"quarterly-status/internal/core"
	"quarterly-status/internal/features/status/models"
	"quarterly-status/internal/features/status/store"
)

// LocationService owns the current location and records manual updates
type LocationService struct {
	repo      *store.Repository
	publisher *publisher
	geocoder  Geocoder
	logger    *core.Logger
	now       func() time.Time
}

// NewLocationService creates a location service. geocoder may be nil.
func NewLocationService(repo *store.Repository, view ViewConfig, geocoder Geocoder, logger *core.Logger) *LocationService {
	s := &LocationService{
		repo:     repo,
		geocoder: geocoder,
		logger:   logger,
		now:      time.Now,
	}
	s.publisher = &publisher{repo: repo, config: view, now: s.clock}
	return s
}

// WithClock overrides the service clock
func (s *LocationService) WithClock(now func() time.Time) *LocationService {
	s.now = now
	return s
}

func (s *LocationService) clock() time.Time { return s.now() }

// Get returns the current location, or the default if never set
func (s *LocationService) Get(ctx context.Context) (models.LocationState, error) {
	return s.repo.Location(ctx)
}

// Set replaces the current location, records a location activity and
// republishes the status view immediately.
func (s *LocationService) Set(ctx context.Context, update models.LocationUpdate) (models.LocationState, error) {
	name := strings.TrimSpace(update.Location)
	if name == "" {
		return models.LocationState{}, core.NewValidationError("location is required", nil)
	}

	coords := models.DefaultCoordinates
	if update.Coordinates != nil {
		if err := update.Coordinates.Validate(); err != nil {
			return models.LocationState{}, core.NewValidationError(err.Error(), err)
		}
		coords = *update.Coordinates
	}

	now := s.now()
	ts := now.UTC()
	if update.Timestamp != nil && !update.Timestamp.IsZero() {
		ts = update.Timestamp.UTC()
	}

	loc := models.LocationState{Name: name, Coordinates: coords, Timestamp: ts}
	activity := LocationActivity(loc, strings.TrimSpace(update.Activity), update.Coordinates, now)
	s.enrich(ctx, &activity, update.Coordinates)

	if err := s.repo.PutLocation(ctx, loc); err != nil {
		return models.LocationState{}, err
	}

	history, err := s.repo.History(ctx)
	if err != nil {
		return models.LocationState{}, err
	}
	activity.ID = freshLocationID(history, now)
	merged, _ := Merge(history, []models.Activity{activity})

	if _, err := s.publisher.publish(ctx, merged, loc); err != nil {
		return models.LocationState{}, err
	}

	s.logger.Info("Location updated", "location", name, "timestamp", ts, "activity_id", activity.ID)
	return loc, nil
}

// freshLocationID returns the location id for now, moved forward a
// millisecond at a time past any id already in history, so that every
// update lands in history even when two share a millisecond.
func freshLocationID(history []models.Activity, now time.Time) string {
	taken := make(map[string]struct{}, len(history))
	for _, a := range history {
		taken[a.ID] = struct{}{}
	}

	id := LocationActivityID(now)
	for {
		if _, ok := taken[id]; !ok {
			return id
		}
		now = now.Add(time.Millisecond)
		id = LocationActivityID(now)
	}
}

// enrich adds reverse-geocoded area names to the activity metadata.
// Failures are logged and otherwise ignored.
func (s *LocationService) enrich(ctx context.Context, activity *models.Activity, coords *models.Coordinates) {
	if s.geocoder == nil || coords == nil {
		return
	}

	place, err := s.geocoder.Reverse(ctx, *coords)
	if err != nil {
		s.logger.Warn("Reverse geocoding failed", "error", err)
		return
	}
	activity.Metadata["neighborhood"] = place.Neighborhood
	activity.Metadata["city"] = place.City
}
