package models

// Display names are presentation metadata and are kept apart from the domain types.

var habitTypeNames = map[HabitType]string{
	HabitTypePositive: "Positive habit",
	HabitTypeNegative: "Negative habit",
	HabitTypeTimed:    "Timed habit",
}

var difficultyNames = map[Difficulty]string{
	DifficultyEasy:   "Easy",
	DifficultyMedium: "Medium",
	DifficultyHard:   "Hard",
}

var frequencyNames = map[Frequency]string{
	FrequencyDaily:  "Daily",
	FrequencyWeekly: "Weekly",
	FrequencyCustom: "Custom",
}

func HabitTypeName(t HabitType) string {
	if n, ok := habitTypeNames[t]; ok {
		return n
	}
	return string(t)
}

func DifficultyName(d Difficulty) string {
	if n, ok := difficultyNames[d]; ok {
		return n
	}
	return string(d)
}

func FrequencyName(f Frequency) string {
	if n, ok := frequencyNames[f]; ok {
		return n
	}
	return string(f)
}
