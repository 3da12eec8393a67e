package storage

import (
	"testing"
	"time"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestStreakFromDays(t *testing.T) {
	now := time.Date(2025, 8, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		days []string
		want int
	}{
		{"empty", nil, 0},
		{"only today", []string{"2025-08-10"}, 1},
		{"three days ending today", []string{"2025-08-08", "2025-08-09", "2025-08-10"}, 3},
		{"ends yesterday, still alive", []string{"2025-08-08", "2025-08-09"}, 2},
		{"gap two days ago breaks it", []string{"2025-08-06", "2025-08-07", "2025-08-10"}, 1},
		{"stale history only", []string{"2025-08-01", "2025-08-02"}, 0},
		{"duplicates collapse", []string{"2025-08-09", "2025-08-09", "2025-08-10"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var days []time.Time
			for _, s := range tt.days {
				days = append(days, day(t, s))
			}
			if got := StreakFromDays(days, now); got != tt.want {
				t.Errorf("StreakFromDays = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAccuracyFromRatings(t *testing.T) {
	if got := AccuracyFromRatings(nil); got != 0 {
		t.Errorf("empty accuracy = %v, want 0", got)
	}
	if got := AccuracyFromRatings([]int{3, 4, 1, 2}); got != 0.75 {
		t.Errorf("accuracy = %v, want 0.75", got)
	}
}

func TestListOptionsNormalize(t *testing.T) {
	o := ListOptions{}
	o.Normalize()
	if o.Page != 1 || o.Limit != 20 {
		t.Errorf("defaults = page %d limit %d, want 1/20", o.Page, o.Limit)
	}

	o = ListOptions{Page: 3, Limit: 500}
	o.Normalize()
	if o.Limit != 100 {
		t.Errorf("limit = %d, want clamp to 100", o.Limit)
	}
	if o.Offset() != 200 {
		t.Errorf("offset = %d, want 200", o.Offset())
	}
}
