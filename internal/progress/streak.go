// Package progress derives streaks, points, statistics and milestone messages
// from a habit's completion history. Everything here is pure; callers own state.
package progress

import (
	"sort"
	"time"

	"github.com/julianstephens/habita/internal/models"
	"github.com/julianstephens/habita/internal/utils"
)

// DistinctDays returns the distinct calendar days of records, most recent first.
func DistinctDays(records []models.CompletionRecord, loc *time.Location) []time.Time {
	seen := make(map[time.Time]struct{}, len(records))
	days := make([]time.Time, 0, len(records))
	for _, rec := range records {
		d := utils.DayKey(rec.Date, loc)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days
}

// ComputeStreak walks back from today one day at a time over the distinct
// completion days. The current streak is zero unless today itself is completed.
// best never drops below previousBest.
func ComputeStreak(records []models.CompletionRecord, today time.Time, loc *time.Location, previousBest int) (current, best int) {
	cursor := utils.DayKey(today, loc)
	for _, day := range DistinctDays(records, loc) {
		if day.Equal(cursor) {
			current++
			cursor = utils.AddDays(cursor, -1, loc)
			continue
		}
		if day.Before(cursor) {
			break
		}
		// future-dated record, skip it
	}
	return current, max(previousBest, current)
}

// ApplyStreak recomputes the streak fields of h in place.
func ApplyStreak(h *models.Habit, today time.Time, loc *time.Location) {
	h.CurrentStreak, h.BestStreak = ComputeStreak(h.CompletionRecords, today, loc, h.BestStreak)
}
