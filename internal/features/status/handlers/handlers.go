package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"quarterly-status/internal/core"
	"quarterly-status/internal/features/status/models"
	"quarterly-status/internal/features/status/services"
)

const (
	defaultPage  = 1
	defaultLimit = 50
	maxBodyBytes = 1 << 20
)

// StatusResponse acknowledges a state-changing request
type StatusResponse struct {
	Status string `json:"status"`
}

// Handlers contains all status feature HTTP handlers
type Handlers struct {
	logger       *core.Logger
	refresher    *services.Refresher
	locations    *services.LocationService
	history      *services.HistoryReader
	exposeErrors bool
}

// NewHandlers creates a new handlers instance
func NewHandlers(logger *core.Logger, refresher *services.Refresher, locations *services.LocationService, history *services.HistoryReader, exposeErrors bool) *Handlers {
	return &Handlers{
		logger:       logger,
		refresher:    refresher,
		locations:    locations,
		history:      history,
		exposeErrors: exposeErrors,
	}
}

// GetStatus serves the cached status view, refreshing it when stale
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.refresher.Status(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to get status", err)
		return
	}
	core.WriteJSON(w, http.StatusOK, view)
}

// Refresh forces a full refresh cycle
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.refresher.Refresh(r.Context()); err != nil {
		h.fail(w, r, "Failed to refresh status", err)
		return
	}
	core.WriteJSON(w, http.StatusOK, StatusResponse{Status: "refreshed"})
}

// UpdateLocation records a manual location update
func (h *Handlers) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var update models.LocationUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&update); err != nil {
		h.fail(w, r, "Failed to decode location update", fmt.Errorf("invalid request body: %w", err))
		return
	}

	if _, err := h.locations.Set(r.Context(), update); err != nil {
		h.fail(w, r, "Failed to update location", err)
		return
	}
	core.WriteJSON(w, http.StatusOK, StatusResponse{Status: "location updated"})
}

// ListActivities serves one page of the full history
func (h *Handlers) ListActivities(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", defaultPage)
	if err != nil {
		h.fail(w, r, "Invalid page", err)
		return
	}
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil {
		h.fail(w, r, "Invalid limit", err)
		return
	}

	result, err := h.history.List(r.Context(), page, limit)
	if err != nil {
		h.fail(w, r, "Failed to list activities", err)
		return
	}
	core.WriteJSON(w, http.StatusOK, result)
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logger.WithContext(r.Context()).Error(message, "error", err, "path", r.URL.Path)
	core.HandleError(w, err, h.exposeErrors)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.NewValidationError(fmt.Sprintf("%s must be an integer", name), err)
	}
	return n, nil
}
