package handlers

import (
	"net/http"

	"quarterly-status/internal/core"
)

// HealthResponse is the body of the liveness endpoint
type HealthResponse struct {
	Status string `json:"status"`
}

// SystemHandler serves the endpoints that belong to the server rather than a feature
type SystemHandler struct {
	logger *core.Logger
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(logger *core.Logger) *SystemHandler {
	return &SystemHandler{logger: logger}
}

// HealthCheckHandler provides a health check endpoint
func (h *SystemHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// NotFoundHandler answers every unrouted request, including unsupported methods
func (h *SystemHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.logger.WithContext(r.Context()).Debug("No route", "method", r.Method, "path", r.URL.Path)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("Not Found"))
}
