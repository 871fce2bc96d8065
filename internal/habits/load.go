package habits

import (
	"time"

	"github.com/julianstephens/habita/internal/logger"
	"github.com/julianstephens/habita/internal/models"
)

// Source is the read side of a storage provider.
type Source interface {
	LoadHabits() ([]models.Habit, error)
	LoadPoints() (int, error)
}

// DemoHabits is the starter set shown when there is no saved data.
func DemoHabits(now time.Time) []models.Habit {
	exercise := models.NewHabit("Morning exercise")
	exercise.Icon, exercise.Color = "figure.run", "orange"

	reading := models.NewHabit("Reading")
	reading.Icon, reading.Color = "book.fill", "blue"
	reading.Difficulty = models.DifficultyEasy
	reading.Position = 1

	meditation := models.NewHabit("Meditation")
	meditation.Icon, meditation.Color = "brain.head.profile", "purple"
	meditation.Type = models.HabitTypeTimed
	meditation.Difficulty = models.DifficultyHard
	meditation.TimerDuration = 600
	meditation.Position = 2

	junkFood := models.NewHabit("No junk food")
	junkFood.Icon, junkFood.Color = "xmark.circle.fill", "red"
	junkFood.Type = models.HabitTypeNegative
	junkFood.Difficulty = models.DifficultyHard
	junkFood.Position = 3

	habits := []models.Habit{exercise, reading, meditation, junkFood}
	for i := range habits {
		habits[i].CreatedDate = now
	}
	return habits
}

// Load restores state from src. A failed or empty habit load is not an error:
// the manager falls back to the demo set. It reports whether the demo set was used.
func (m *Manager) Load(src Source) bool {
	points, err := src.LoadPoints()
	if err != nil {
		logger.Warn("Failed to load point total, starting from zero", "error", err)
		points = 0
	}

	habits, err := src.LoadHabits()
	seeded := false
	switch {
	case err != nil:
		logger.Warn("Saved habits could not be loaded, using demo data", "error", err)
		habits, seeded = DemoHabits(m.now()), true
	case len(habits) == 0 && points == 0:
		habits, seeded = DemoHabits(m.now()), true
	}

	m.Restore(habits, points)
	m.RecomputeStreaks()
	return seeded
}
