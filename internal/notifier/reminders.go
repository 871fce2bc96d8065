package notifier

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/julianstephens/habita/internal/utils"
)

// Reminder is a daily reminder for one habit.
type Reminder struct {
	HabitID string `json:"habitId"`
	Name    string `json:"name"`
	Time    string `json:"time"` // HH:MM

	lastFired string
}

// Reminders is the in-process daily reminder schedule keyed by habit id.
type Reminders struct {
	mu    sync.Mutex
	items map[string]*Reminder
}

func NewReminders() *Reminders {
	return &Reminders{items: make(map[string]*Reminder)}
}

// Set adds or replaces the reminder of a habit.
func (r *Reminders) Set(habitID, name, hhmm string) error {
	if !utils.ValidateTimeFormat(hhmm) {
		return fmt.Errorf("invalid reminder time %q (expected HH:MM)", hhmm)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[habitID]; ok && existing.Time == hhmm {
		existing.Name = name
		return nil
	}
	r.items[habitID] = &Reminder{HabitID: habitID, Name: name, Time: hhmm}
	return nil
}

func (r *Reminders) Remove(habitID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, habitID)
}

// List returns the schedule ordered by time of day.
func (r *Reminders) List() []Reminder {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Reminder, 0, len(r.items))
	for _, rem := range r.items {
		out = append(out, *rem)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Due returns the reminders whose time of day has passed by now and which have
// not fired yet on now's calendar day, and marks them fired.
func (r *Reminders) Due(now time.Time) []Reminder {
	day := utils.FormatDay(now)
	clock := now.Format("15:04")

	r.mu.Lock()
	defer r.mu.Unlock()

	var due []Reminder
	for _, rem := range r.items {
		if rem.lastFired == day || rem.Time > clock {
			continue
		}
		rem.lastFired = day
		due = append(due, *rem)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Time < due[j].Time })
	return due
}
