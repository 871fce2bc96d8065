package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habita/internal/constants"
	"github.com/julianstephens/habita/internal/utils"
)

type HabitType string

type Difficulty string

type Frequency string

const (
	HabitTypePositive HabitType = "positive"
	HabitTypeNegative HabitType = "negative"
	HabitTypeTimed    HabitType = "timed"

	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"

	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

var (
	ErrInvalidHabitType  = errors.New("invalid habit type")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrInvalidFrequency  = errors.New("invalid frequency")
	ErrInvalidTargetDay  = errors.New("target days must be between 0 (Sunday) and 6 (Saturday)")
	ErrInvalidPlacement  = errors.New("invalid page or position")
	ErrEmptyName         = errors.New("habit name cannot be empty")
)

// Points returns the base points awarded for one completion.
func (d Difficulty) Points() int {
	switch d {
	case DifficultyEasy:
		return constants.PointsEasy
	case DifficultyHard:
		return constants.PointsHard
	default:
		return constants.PointsMedium
	}
}

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

func (t HabitType) Valid() bool {
	return t == HabitTypePositive || t == HabitTypeNegative || t == HabitTypeTimed
}

func (f Frequency) Valid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly || f == FrequencyCustom
}

// CompletionRecord is one instance of a habit being performed on a given day.
type CompletionRecord struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Duration *float64  `json:"duration,omitempty"` // seconds, timed habits only
	Note     *string   `json:"note,omitempty"`
	Mood     *string   `json:"mood,omitempty"`
}

// Habit represents a tracked recurring behavior
type Habit struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Icon            string     `json:"icon"`
	Color           string     `json:"color"`
	Type            HabitType  `json:"type"`
	Difficulty      Difficulty `json:"difficulty"`
	Frequency       Frequency  `json:"frequency"`
	TargetDays      []int      `json:"targetDays"`
	TargetCount     int        `json:"targetCount"`
	TimerDuration   float64    `json:"timerDuration"` // seconds
	ReminderEnabled bool       `json:"isReminderEnabled"`
	ReminderTime    string     `json:"reminderTime,omitempty"` // HH:MM
	Notes           string     `json:"notes"`
	PageIndex       int        `json:"pageIndex"`
	Position        int        `json:"position"`

	CompletionRecords []CompletionRecord `json:"completionRecords"`
	CurrentStreak     int                `json:"currentStreak"`
	BestStreak        int                `json:"bestStreak"`
	TotalCompletions  int                `json:"totalCompletions"`
	TotalPoints       int                `json:"totalPoints"`
	CreatedDate       time.Time          `json:"createdDate"`
}

// NewHabit returns a habit with the default attributes of a freshly created one.
func NewHabit(name string) Habit {
	return Habit{
		ID:          uuid.New().String(),
		Name:        name,
		Icon:        "star.fill",
		Color:       "blue",
		Type:        HabitTypePositive,
		Difficulty:  DifficultyMedium,
		Frequency:   FrequencyDaily,
		TargetDays:  []int{0, 1, 2, 3, 4, 5, 6},
		TargetCount: 7,
		CreatedDate: time.Now(),
	}
}

// NewCompletionRecord creates a record attributed to date.
func NewCompletionRecord(date time.Time, mood string) CompletionRecord {
	rec := CompletionRecord{
		ID:   uuid.New().String(),
		Date: date,
	}
	if mood != "" {
		rec.Mood = &mood
	}
	return rec
}

// Validate checks the enumerations and placement of a habit.
func (h Habit) Validate() error {
	if h.Name == "" {
		return ErrEmptyName
	}
	if !h.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidHabitType, h.Type)
	}
	if !h.Difficulty.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDifficulty, h.Difficulty)
	}
	if !h.Frequency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, h.Frequency)
	}
	for _, d := range h.TargetDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: %d", ErrInvalidTargetDay, d)
		}
	}
	if h.PageIndex < 0 || h.PageIndex >= constants.MaxPages ||
		h.Position < 0 || h.Position >= constants.MaxSlotsPerPage {
		return fmt.Errorf("%w: page %d position %d", ErrInvalidPlacement, h.PageIndex, h.Position)
	}
	if h.ReminderEnabled && h.ReminderTime != "" && !utils.ValidateTimeFormat(h.ReminderTime) {
		return fmt.Errorf("invalid reminder time %q (expected HH:MM)", h.ReminderTime)
	}
	return nil
}

// IsCompletedOn reports whether any record falls on the calendar day of t.
func (h Habit) IsCompletedOn(t time.Time, loc *time.Location) bool {
	day := utils.DayKey(t, loc)
	for _, rec := range h.CompletionRecords {
		if utils.DayKey(rec.Date, loc).Equal(day) {
			return true
		}
	}
	return false
}

func (h Habit) IsCompletedToday(now time.Time, loc *time.Location) bool {
	return h.IsCompletedOn(now, loc)
}

// IsTargetDay reports whether the weekday of t is one of the habit's target days.
func (h Habit) IsTargetDay(t time.Time, loc *time.Location) bool {
	wd := utils.Weekday(t, loc)
	for _, d := range h.TargetDays {
		if d == wd {
			return true
		}
	}
	return false
}

// HasReminder reports whether an external reminder should exist for this habit.
func (h Habit) HasReminder() bool {
	return h.ReminderEnabled && h.ReminderTime != ""
}

// Clone returns a deep copy so callers can never alias manager-owned state.
func (h Habit) Clone() Habit {
	c := h
	if h.TargetDays != nil {
		c.TargetDays = append([]int(nil), h.TargetDays...)
	}
	if h.CompletionRecords != nil {
		c.CompletionRecords = make([]CompletionRecord, len(h.CompletionRecords))
		for i, rec := range h.CompletionRecords {
			c.CompletionRecords[i] = rec.clone()
		}
	}
	return c
}

func (r CompletionRecord) clone() CompletionRecord {
	c := r
	if r.Duration != nil {
		d := *r.Duration
		c.Duration = &d
	}
	if r.Note != nil {
		n := *r.Note
		c.Note = &n
	}
	if r.Mood != nil {
		m := *r.Mood
		c.Mood = &m
	}
	return c
}
