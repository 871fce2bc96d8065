package progress

import (
	"sort"
	"time"

	"github.com/julianstephens/habita/internal/constants"
	"github.com/julianstephens/habita/internal/models"
	"github.com/julianstephens/habita/internal/utils"
)

// Stats summarizes one habit for detail views.
type Stats struct {
	CurrentStreak    int     `json:"currentStreak"`
	BestStreak       int     `json:"bestStreak"`
	TotalCompletions int     `json:"totalCompletions"`
	TotalPoints      int     `json:"totalPoints"`
	Last7DaysRate    float64 `json:"last7DaysRate"`
	Last30DaysRate   float64 `json:"last30DaysRate"`
}

// Partner is a habit paired with its compatibility score against another.
type Partner struct {
	HabitID string  `json:"habitId"`
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
}

// completedDays indexes the distinct completion days of h.
func completedDays(h models.Habit, loc *time.Location) map[time.Time]struct{} {
	days := make(map[time.Time]struct{}, len(h.CompletionRecords))
	for _, rec := range h.CompletionRecords {
		days[utils.DayKey(rec.Date, loc)] = struct{}{}
	}
	return days
}

// CompletionRate is the fraction of target days in the last windowDays days
// (today included) on which h was completed. Zero when there are no target days.
func CompletionRate(h models.Habit, windowDays int, now time.Time, loc *time.Location) float64 {
	done := completedDays(h, loc)
	today := utils.DayKey(now, loc)

	var targets, completed int
	for i := 0; i < windowDays; i++ {
		day := utils.AddDays(today, -i, loc)
		if !h.IsTargetDay(day, loc) {
			continue
		}
		targets++
		if _, ok := done[day]; ok {
			completed++
		}
	}
	if targets == 0 {
		return 0
	}
	return float64(completed) / float64(targets)
}

// Statistics computes the 7- and 30-day rates alongside the cached counters.
func Statistics(h models.Habit, now time.Time, loc *time.Location) Stats {
	return Stats{
		CurrentStreak:    h.CurrentStreak,
		BestStreak:       h.BestStreak,
		TotalCompletions: h.TotalCompletions,
		TotalPoints:      h.TotalPoints,
		Last7DaysRate:    CompletionRate(h, constants.WeekWindowDays, now, loc),
		Last30DaysRate:   CompletionRate(h, constants.MonthWindowDays, now, loc),
	}
}

// Compatibility is the fraction of mutually scheduled days in the window on
// which both habits were completed. It is symmetric in a and b.
func Compatibility(a, b models.Habit, windowDays int, now time.Time, loc *time.Location) float64 {
	doneA := completedDays(a, loc)
	doneB := completedDays(b, loc)
	today := utils.DayKey(now, loc)

	var bothTarget, bothCompleted int
	for i := 0; i < windowDays; i++ {
		day := utils.AddDays(today, -i, loc)
		if !a.IsTargetDay(day, loc) || !b.IsTargetDay(day, loc) {
			continue
		}
		bothTarget++
		_, okA := doneA[day]
		_, okB := doneB[day]
		if okA && okB {
			bothCompleted++
		}
	}
	if bothTarget == 0 {
		return 0
	}
	return float64(bothCompleted) / float64(bothTarget)
}

// RankPartners scores every other habit against h, best first. Ties are
// ordered by name.
func RankPartners(h models.Habit, others []models.Habit, now time.Time, loc *time.Location) []Partner {
	partners := make([]Partner, 0, len(others))
	for _, o := range others {
		if o.ID == h.ID {
			continue
		}
		partners = append(partners, Partner{
			HabitID: o.ID,
			Name:    o.Name,
			Score:   Compatibility(h, o, constants.CompatibilityWindowDays, now, loc),
		})
	}
	sort.SliceStable(partners, func(i, j int) bool {
		if partners[i].Score != partners[j].Score {
			return partners[i].Score > partners[j].Score
		}
		return partners[i].Name < partners[j].Name
	})
	return partners
}

// BestPartner is the top-ranked partner of h, false when there are no others.
func BestPartner(h models.Habit, others []models.Habit, now time.Time, loc *time.Location) (Partner, bool) {
	ranked := RankPartners(h, others, now, loc)
	if len(ranked) == 0 {
		return Partner{}, false
	}
	return ranked[0], true
}
