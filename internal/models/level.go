package models

import "github.com/julianstephens/habita/internal/constants"

// UserLevel is one rung of the fixed level ladder.
type UserLevel struct {
	Level          int    `json:"level"`
	Title          string `json:"title"`
	Icon           string `json:"icon"`
	Color          string `json:"color"`
	RequiredPoints int    `json:"requiredPoints"`
}

var levelMeta = [...]struct{ title, icon, color string }{
	{"Habit Beginner", "leaf.fill", "green"},
	{"Habit Apprentice", "sparkles", "blue"},
	{"Habit Keeper", "flame.fill", "orange"},
	{"Habit Master", "bolt.fill", "purple"},
	{"Habit Expert", "star.fill", "yellow"},
	{"Habit Virtuoso", "crown.fill", "pink"},
	{"Habit Iron Will", "trophy.fill", "red"},
	{"Habit Legend", "rosette", "indigo"},
}

// Levels is the ordered ladder, lowest first.
var Levels = buildLevels()

func buildLevels() []UserLevel {
	levels := make([]UserLevel, len(constants.LevelThresholds))
	for i, pts := range constants.LevelThresholds {
		levels[i] = UserLevel{
			Level:          i + 1,
			Title:          levelMeta[i].title,
			Icon:           levelMeta[i].icon,
			Color:          levelMeta[i].color,
			RequiredPoints: pts,
		}
	}
	return levels
}

// LevelForPoints returns the highest level whose threshold does not exceed points.
func LevelForPoints(points int) UserLevel {
	for i := len(Levels) - 1; i >= 0; i-- {
		if Levels[i].RequiredPoints <= points {
			return Levels[i]
		}
	}
	return Levels[0]
}

// NextLevel returns the rung after l, or nil when l is the top.
func NextLevel(l UserLevel) *UserLevel {
	if l.Level < 1 || l.Level >= len(Levels) {
		return nil
	}
	next := Levels[l.Level]
	return &next
}
