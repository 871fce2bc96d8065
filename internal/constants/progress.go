package constants

const (
	// Difficulty base points
	PointsEasy   = 10
	PointsMedium = 25
	PointsHard   = 50

	// Bonus multipliers are additive on top of BaseMultiplier.
	BaseMultiplier     = 1.0
	TimedGoalBonus     = 0.5
	WeekStreakBonus    = 0.2
	MonthStreakBonus   = 0.3
	WeekStreakLength   = 7
	MonthStreakLength  = 30
	GenericMilestoneOf = 100
)

// LevelThresholds are the point totals required for levels 1..8.
var LevelThresholds = [...]int{0, 100, 300, 600, 1000, 1500, 2000, 3000}

func init() {
	for i := 1; i < len(LevelThresholds); i++ {
		if LevelThresholds[i] <= LevelThresholds[i-1] {
			panic("LevelThresholds must be strictly increasing")
		}
	}
	if LevelThresholds[0] != 0 {
		panic("the first level must require zero points")
	}
}
