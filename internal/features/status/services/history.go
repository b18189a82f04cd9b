package services

import (
	"context"

	"quarterly-status/internal/core"
	"quarterly-status/internal/features/status/models"
	"quarterly-status/internal/features/status/store"
)

// HistoryReader serves pages of the full activity history
type HistoryReader struct {
	repo *store.Repository
}

// NewHistoryReader creates a history reader
func NewHistoryReader(repo *store.Repository) *HistoryReader {
	return &HistoryReader{repo: repo}
}

// List returns the page-th window of limit activities. Pages past the end
// are empty rather than an error.
func (h *HistoryReader) List(ctx context.Context, page, limit int) (models.Page, error) {
	if page < 1 {
		return models.Page{}, core.NewValidationError("page must be at least 1", nil)
	}
	if limit < 1 {
		return models.Page{}, core.NewValidationError("limit must be at least 1", nil)
	}

	history, err := h.repo.History(ctx)
	if err != nil {
		return models.Page{}, err
	}
	return Paginate(history, page, limit), nil
}

// Paginate slices history for page and limit, both at least 1.
// Arbitrarily large page and limit values must not overflow.
func Paginate(history []models.Activity, page, limit int) models.Page {
	total := len(history)

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	activities := []models.Activity{}
	if page <= totalPages {
		// page-1 < totalPages, so start < total and cannot overflow
		start := (page - 1) * limit
		end := total
		if total-start > limit {
			end = start + limit
		}
		activities = append(activities, history[start:end]...)
	}

	return models.Page{
		Activities: activities,
		Pagination: models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}
}
