package services

import (
	"sort"

	"quarterly-status/internal/features/status/models"
)

// Merge folds candidates into history by id.
//
// A candidate is accepted when its id is neither in history nor already
// accepted earlier in the same batch. Accepted candidates are placed ahead of
// history and the result is stably sorted newest first. appended holds exactly
// the accepted candidates in the order they were encountered. history is not
// modified.
func Merge(history, candidates []models.Activity) (merged, appended []models.Activity) {
	seen := make(map[string]struct{}, len(history)+len(candidates))
	for _, a := range history {
		seen[a.ID] = struct{}{}
	}

	appended = make([]models.Activity, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		appended = append(appended, c)
	}

	merged = make([]models.Activity, 0, len(appended)+len(history))
	merged = append(merged, appended...)
	merged = append(merged, history...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})

	return merged, appended
}
