// Package validation inspects a stored habit set for inconsistencies that the
// mutation path cannot produce but hand edits, imports or sync merges can.
package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/habita/internal/models"
	"github.com/julianstephens/habita/internal/utils"
)

type ConflictType string

const (
	ConflictDuplicateID     ConflictType = "duplicate_id"
	ConflictDuplicateName   ConflictType = "duplicate_name"
	ConflictSlotCollision   ConflictType = "slot_collision"
	ConflictInvalidHabit    ConflictType = "invalid_habit"
	ConflictInvalidRecord   ConflictType = "invalid_record"
	ConflictFutureRecord    ConflictType = "future_record"
	ConflictMissingReminder ConflictType = "missing_reminder_time"
)

// Conflict is one detected problem.
type Conflict struct {
	Type        ConflictType
	Description string
	HabitIDs    []string
}

type Result struct {
	Conflicts []Conflict
}

func (r Result) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// Count returns how many conflicts are of type t.
func (r Result) Count(t ConflictType) int {
	n := 0
	for _, c := range r.Conflicts {
		if c.Type == t {
			n++
		}
	}
	return n
}

// FormatReport returns a human-readable report of all conflicts.
func (r Result) FormatReport() string {
	if !r.HasConflicts() {
		return "No conflicts detected."
	}
	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range r.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c.Description)
	}
	return b.String()
}

type Validator struct {
	now func() time.Time
	loc *time.Location
}

func New(loc *time.Location) *Validator {
	if loc == nil {
		loc = time.Local
	}
	return &Validator{now: time.Now, loc: loc}
}

// ValidateHabits checks the whole set. Reported order is stable.
func (v *Validator) ValidateHabits(habits []models.Habit) Result {
	var res Result
	add := func(t ConflictType, desc string, ids ...string) {
		res.Conflicts = append(res.Conflicts, Conflict{Type: t, Description: desc, HabitIDs: ids})
	}

	ids := make(map[string]int)
	names := make(map[string][]string)
	slots := make(map[[2]int][]string)
	tomorrow := utils.AddDays(utils.DayKey(v.now(), v.loc), 1, v.loc)

	for _, h := range habits {
		ids[h.ID]++
		if ids[h.ID] == 2 {
			add(ConflictDuplicateID, fmt.Sprintf("Habit id %s is used more than once", h.ID), h.ID)
		}
		key := strings.ToLower(strings.TrimSpace(h.Name))
		names[key] = append(names[key], h.ID)
		slot := [2]int{h.PageIndex, h.Position}
		slots[slot] = append(slots[slot], h.ID)

		if err := h.Validate(); err != nil {
			add(ConflictInvalidHabit, fmt.Sprintf("Habit %q is invalid: %v", h.Name, err), h.ID)
		}
		if h.ReminderEnabled && h.ReminderTime == "" {
			add(ConflictMissingReminder, fmt.Sprintf("Habit %q has reminders enabled but no reminder time", h.Name), h.ID)
		}

		seen := make(map[string]bool, len(h.CompletionRecords))
		for _, rec := range h.CompletionRecords {
			switch {
			case rec.ID == "" || seen[rec.ID]:
				add(ConflictInvalidRecord, fmt.Sprintf("Habit %q has a completion with a missing or repeated id", h.Name), h.ID)
			case rec.Date.IsZero():
				add(ConflictInvalidRecord, fmt.Sprintf("Habit %q has an undated completion %s", h.Name, rec.ID), h.ID)
			case !rec.Date.Before(tomorrow):
				add(ConflictFutureRecord, fmt.Sprintf("Habit %q has a completion dated %s, after today", h.Name, utils.FormatDay(rec.Date.In(v.loc))), h.ID)
			}
			seen[rec.ID] = true
		}
	}

	for _, key := range sortedKeys(names) {
		if group := names[key]; len(group) > 1 && key != "" {
			add(ConflictDuplicateName, fmt.Sprintf("%d habits are named %q", len(group), key), group...)
		}
	}

	slotKeys := make([][2]int, 0, len(slots))
	for k := range slots {
		slotKeys = append(slotKeys, k)
	}
	sort.Slice(slotKeys, func(i, j int) bool {
		if slotKeys[i][0] != slotKeys[j][0] {
			return slotKeys[i][0] < slotKeys[j][0]
		}
		return slotKeys[i][1] < slotKeys[j][1]
	})
	for _, k := range slotKeys {
		if group := slots[k]; len(group) > 1 {
			add(ConflictSlotCollision, fmt.Sprintf("Page %d position %d holds %d habits", k[0]+1, k[1]+1, len(group)), group...)
		}
	}

	return res
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
