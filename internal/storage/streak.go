package storage

import "time"

// StreakFromDays computes the current review streak from the set of calendar
// days that have at least one logged review. days may be in any order and
// may contain duplicates; each entry is truncated to its calendar day in
// now's location. A streak is alive if it includes today or yesterday, so a
// learner who has not yet reviewed today does not see the streak reset.
func StreakFromDays(days []time.Time, now time.Time) int {
	if len(days) == 0 {
		return 0
	}

	seen := make(map[time.Time]bool, len(days))
	for _, d := range days {
		seen[dayOf(d, now.Location())] = true
	}

	today := dayOf(now, now.Location())
	start := today
	if !seen[start] {
		start = today.AddDate(0, 0, -1)
		if !seen[start] {
			return 0
		}
	}

	streak := 0
	for d := start; seen[d]; d = d.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// AccuracyFromRatings is the fraction of ratings above again.
func AccuracyFromRatings(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	correct := 0
	for _, r := range ratings {
		if r > 1 {
			correct++
		}
	}
	return float64(correct) / float64(len(ratings))
}
