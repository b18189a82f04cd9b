package services

import (
	"slices"
	"testing"
	"time"

	"quarterly-status/internal/features/status/models"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMergeIdempotent(t *testing.T) {
	candidates := []models.Activity{
		activity("a", base.Add(time.Hour)),
		activity("b", base),
	}

	first, appended := Merge(nil, candidates)
	if len(first) != 2 || len(appended) != 2 {
		t.Fatalf("Expected 2 merged and 2 appended, got %d and %d", len(first), len(appended))
	}

	second, appended := Merge(first, candidates)
	if len(appended) != 0 {
		t.Errorf("Expected nothing appended on repeat, got %v", ids(appended))
	}
	if len(second) != len(first) {
		t.Errorf("Expected history to stay at %d, got %d", len(first), len(second))
	}
}

func TestMergeSortsNewestFirst(t *testing.T) {
	history := []models.Activity{
		activity("h1", base.Add(5*time.Hour)),
		activity("h2", base.Add(1*time.Hour)),
	}
	candidates := []models.Activity{
		activity("c1", base.Add(3*time.Hour)),
		activity("c2", base.Add(9*time.Hour)),
		activity("c3", base),
	}

	merged, _ := Merge(history, candidates)

	want := []string{"c2", "h1", "c1", "h2", "c3"}
	if got := ids(merged); !slices.Equal(got, want) {
		t.Errorf("Expected order %v, got %v", want, got)
	}

	for i := 1; i < len(merged); i++ {
		if merged[i].Timestamp.After(merged[i-1].Timestamp) {
			t.Fatalf("History not descending at %d", i)
		}
	}
}

func TestMergeStableTies(t *testing.T) {
	history := []models.Activity{activity("old", base)}
	candidates := []models.Activity{activity("new1", base), activity("new2", base)}

	merged, _ := Merge(history, candidates)

	want := []string{"new1", "new2", "old"}
	if got := ids(merged); !slices.Equal(got, want) {
		t.Errorf("Expected tie order %v, got %v", want, got)
	}
}

func TestMergeDedupesWithinBatch(t *testing.T) {
	first := activity("dup", base.Add(time.Hour))
	first.Source = "commits"
	second := activity("dup", base.Add(2*time.Hour))
	second.Source = "feeds"

	merged, appended := Merge(nil, []models.Activity{first, second})

	if len(merged) != 1 || len(appended) != 1 {
		t.Fatalf("Expected one surviving activity, got %v", ids(merged))
	}
	if merged[0].Source != "commits" {
		t.Errorf("Expected first-encountered candidate to win, got source %q", merged[0].Source)
	}
}

func TestMergeDoesNotTouchInput(t *testing.T) {
	history := []models.Activity{activity("b", base), activity("a", base.Add(time.Hour))}
	before := ids(history)

	Merge(history, []models.Activity{activity("c", base.Add(2*time.Hour))})

	if got := ids(history); !slices.Equal(got, before) {
		t.Errorf("Expected input history untouched, got %v", got)
	}
}

func TestMergeEmptyHistoryScenario(t *testing.T) {
	ts, _ := time.Parse(time.RFC3339, "2024-01-01T00:00:00Z")
	candidate := activity("rss-abc123", ts)

	history, _ := Merge([]models.Activity{}, []models.Activity{candidate})
	if len(history) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(history))
	}

	view := models.BuildStatusView(history, models.DefaultLocation(ts), nil, 20, ts)
	if len(view.Activities) != 1 {
		t.Errorf("Expected view with 1 activity, got %d", len(view.Activities))
	}

	history, appended := Merge(history, []models.Activity{candidate})
	if len(history) != 1 || len(appended) != 0 {
		t.Errorf("Expected history to stay at 1, got %d (%d appended)", len(history), len(appended))
	}
}
