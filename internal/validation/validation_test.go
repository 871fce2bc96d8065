package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/habita/internal/models"
)

var now = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newTestValidator() *Validator {
	v := New(time.UTC)
	v.now = func() time.Time { return now }
	return v
}

func habitAt(name string, page, pos int) models.Habit {
	h := models.NewHabit(name)
	h.PageIndex = page
	h.Position = pos
	return h
}

func TestValidateHabits_Clean(t *testing.T) {
	a := habitAt("Reading", 0, 0)
	a.CompletionRecords = []models.CompletionRecord{models.NewCompletionRecord(now, "")}
	b := habitAt("Running", 0, 1)

	result := newTestValidator().ValidateHabits([]models.Habit{a, b})
	if result.HasConflicts() {
		t.Errorf("expected no conflicts, got:\n%s", result.FormatReport())
	}
	if result.FormatReport() != "No conflicts detected." {
		t.Errorf("unexpected report: %q", result.FormatReport())
	}
}

func TestValidateHabits_DuplicateIDs(t *testing.T) {
	a := habitAt("Reading", 0, 0)
	b := habitAt("Running", 0, 1)
	b.ID = a.ID
	c := habitAt("Rowing", 0, 2)
	c.ID = a.ID

	result := newTestValidator().ValidateHabits([]models.Habit{a, b, c})
	if got := result.Count(ConflictDuplicateID); got != 1 {
		t.Errorf("expected 1 duplicate id conflict, got %d", got)
	}
}

func TestValidateHabits_DuplicateNames(t *testing.T) {
	a := habitAt("Reading", 0, 0)
	b := habitAt(" reading ", 0, 1)

	result := newTestValidator().ValidateHabits([]models.Habit{a, b})
	if got := result.Count(ConflictDuplicateName); got != 1 {
		t.Fatalf("expected 1 duplicate name conflict, got %d", got)
	}
	for _, c := range result.Conflicts {
		if c.Type == ConflictDuplicateName && len(c.HabitIDs) != 2 {
			t.Errorf("expected both habits in the conflict, got %v", c.HabitIDs)
		}
	}
}

func TestValidateHabits_SlotCollision(t *testing.T) {
	a := habitAt("Reading", 1, 3)
	b := habitAt("Running", 1, 3)

	result := newTestValidator().ValidateHabits([]models.Habit{a, b})
	if got := result.Count(ConflictSlotCollision); got != 1 {
		t.Fatalf("expected 1 slot collision, got %d", got)
	}
	if !strings.Contains(result.FormatReport(), "Page 2 position 4") {
		t.Errorf("report should name the slot one-based:\n%s", result.FormatReport())
	}
}

func TestValidateHabits_InvalidHabit(t *testing.T) {
	a := habitAt("Reading", 0, 0)
	a.Difficulty = "legendary"
	b := habitAt("Running", 0, 1)
	b.TargetDays = []int{7}

	result := newTestValidator().ValidateHabits([]models.Habit{a, b})
	if got := result.Count(ConflictInvalidHabit); got != 2 {
		t.Errorf("expected 2 invalid habit conflicts, got %d", got)
	}
}

func TestValidateHabits_Records(t *testing.T) {
	h := habitAt("Reading", 0, 0)
	good := models.NewCompletionRecord(now.AddDate(0, 0, -1), "")
	repeated := good
	undated := models.NewCompletionRecord(time.Time{}, "")
	future := models.NewCompletionRecord(now.AddDate(0, 0, 1), "")
	laterToday := models.NewCompletionRecord(now.Add(10*time.Hour), "")
	h.CompletionRecords = []models.CompletionRecord{good, repeated, undated, future, laterToday}

	result := newTestValidator().ValidateHabits([]models.Habit{h})
	if got := result.Count(ConflictInvalidRecord); got != 2 {
		t.Errorf("expected 2 invalid record conflicts, got %d", got)
	}
	if got := result.Count(ConflictFutureRecord); got != 1 {
		t.Errorf("expected 1 future record conflict, got %d", got)
	}
}

func TestValidateHabits_MissingReminderTime(t *testing.T) {
	h := habitAt("Reading", 0, 0)
	h.ReminderEnabled = true

	result := newTestValidator().ValidateHabits([]models.Habit{h})
	if got := result.Count(ConflictMissingReminder); got != 1 {
		t.Errorf("expected 1 missing reminder conflict, got %d", got)
	}
}
