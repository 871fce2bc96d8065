package progress

import (
	"github.com/julianstephens/habita/internal/constants"
	"github.com/julianstephens/habita/internal/models"
)

// Multiplier is the additive bonus multiplier for a completion whose resulting
// streak is streakAfter. A 30-day streak earns both streak bonuses.
func Multiplier(streakAfter int, timedGoalMet bool) float64 {
	m := constants.BaseMultiplier
	if timedGoalMet {
		m += constants.TimedGoalBonus
	}
	if streakAfter >= constants.WeekStreakLength {
		m += constants.WeekStreakBonus
	}
	if streakAfter >= constants.MonthStreakLength {
		m += constants.MonthStreakBonus
	}
	return m
}

// EarnedPoints truncates base points times the multiplier.
func EarnedPoints(d models.Difficulty, streakAfter int, timedGoalMet bool) int {
	return int(float64(d.Points()) * Multiplier(streakAfter, timedGoalMet))
}

// ReversalPoints is what an un-completion takes back. It is the base amount
// only, not whatever bonus was awarded when the completion was made.
func ReversalPoints(d models.Difficulty) int {
	return d.Points()
}

// TimedGoalMet reports whether a timed session reached the habit's target duration.
func TimedGoalMet(h models.Habit, actualSeconds float64) bool {
	return actualSeconds >= h.TimerDuration
}

// ClampSub subtracts b from a without going below zero.
func ClampSub(a, b int) int {
	return max(0, a-b)
}
