// Package habits owns the in-memory habit set and applies every mutation to
// it. A Manager is the single writer; readers always receive deep copies.
package habits

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habita/internal/constants"
	apperrors "github.com/julianstephens/habita/internal/errors"
	"github.com/julianstephens/habita/internal/logger"
	"github.com/julianstephens/habita/internal/models"
	"github.com/julianstephens/habita/internal/progress"
	"github.com/julianstephens/habita/internal/utils"
)

var (
	ErrNotFound    = errors.New("habit not found")
	ErrPageFull    = errors.New("page has no free slot")
	ErrDuplicateID = errors.New("habit id already exists")
)

// Notifier receives reminder and milestone requests. Calls are made off the
// mutation path and their errors never reach the caller of a mutation.
type Notifier interface {
	ScheduleReminder(habitID, name, hhmm string) error
	CancelReminder(habitID string) error
	SendMilestone(habitName string, streak int) error
}

// ChangeListener is told after every applied mutation, typically a write-behind saver.
type ChangeListener interface {
	MarkDirty()
}

// ToggleResult describes the outcome of a completion mutation.
type ToggleResult struct {
	Found         bool             `json:"found"`
	Completed     bool             `json:"completed"`
	PointsDelta   int              `json:"pointsDelta"`
	CurrentStreak int              `json:"currentStreak"`
	BestStreak    int              `json:"bestStreak"`
	Milestone     string           `json:"milestone,omitempty"`
	LeveledUp     bool             `json:"leveledUp"`
	Level         models.UserLevel `json:"level"`
}

type Config struct {
	// Location defines calendar days. Nil means time.Local.
	Location *time.Location
	// Now is the clock, time.Now when nil.
	Now      func() time.Time
	Notifier Notifier
	Listener ChangeListener
}

type Manager struct {
	mu     sync.RWMutex
	habits []models.Habit
	points int
	level  models.UserLevel

	loc      *time.Location
	now      func() time.Time
	notifier Notifier
	listener ChangeListener

	// Notifier calls run one at a time, in the order the mutations were applied.
	bg       sync.WaitGroup
	qmu      sync.Mutex
	queue    []notifyJob
	draining bool
	advisory apperrors.Advisory
}

type notifyJob struct {
	source string
	fn     func(Notifier) error
}

func NewManager(cfg Config) *Manager {
	m := &Manager{
		loc:      cfg.Location,
		now:      cfg.Now,
		notifier: cfg.Notifier,
		listener: cfg.Listener,
		level:    models.LevelForPoints(0),
	}
	if m.loc == nil {
		m.loc = time.Local
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// SetListener attaches the change listener. The saver usually needs the
// manager's snapshot before it can be constructed, hence the late binding.
func (m *Manager) SetListener(l ChangeListener) {
	m.mu.Lock()
	m.listener = l
	m.mu.Unlock()
}

// Location returns the calendar timezone of the manager.
func (m *Manager) Location() *time.Location {
	return m.loc
}

// Now reads the manager's clock.
func (m *Manager) Now() time.Time {
	return m.now()
}

// Restore replaces the whole state, e.g. after loading from storage. It does
// not mark the state dirty.
func (m *Manager) Restore(habits []models.Habit, points int) {
	copied := make([]models.Habit, len(habits))
	for i, h := range habits {
		copied[i] = h.Clone()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.habits = copied
	m.points = max(0, points)
	m.level = models.LevelForPoints(m.points)
}

// Snapshot returns a consistent copy of the habit set and the point total.
func (m *Manager) Snapshot() ([]models.Habit, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cloneAllLocked(), m.points
}

// RecomputeStreaks refreshes every cached streak against today. Run once after load.
func (m *Manager) RecomputeStreaks() {
	m.mu.Lock()
	today := m.now()
	for i := range m.habits {
		progress.ApplyStreak(&m.habits[i], today, m.loc)
	}
	m.mu.Unlock()
	m.changed()
}

// AddHabit places h in the lowest free slot of its page. It reports false and
// leaves the state untouched when the page is full or h is invalid.
func (m *Manager) AddHabit(h models.Habit) bool {
	_, err := m.Create(h)
	return err == nil
}

// Create is AddHabit for callers that need the stored habit or the reason it was rejected.
func (m *Manager) Create(h models.Habit) (models.Habit, error) {
	h = h.Clone()
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.CreatedDate.IsZero() {
		h.CreatedDate = m.now()
	}
	if h.PageIndex < 0 || h.PageIndex >= constants.MaxPages {
		return models.Habit{}, models.ErrInvalidPlacement
	}

	m.mu.Lock()
	if m.indexLocked(h.ID) >= 0 {
		m.mu.Unlock()
		return models.Habit{}, ErrDuplicateID
	}
	slot, ok := m.freeSlotLocked(h.PageIndex, "")
	if !ok {
		m.mu.Unlock()
		return models.Habit{}, ErrPageFull
	}
	h.Position = slot
	if err := h.Validate(); err != nil {
		m.mu.Unlock()
		return models.Habit{}, err
	}
	m.habits = append(m.habits, h)
	if h.HasReminder() {
		m.background("schedule reminder", func(n Notifier) error {
			return n.ScheduleReminder(h.ID, h.Name, h.ReminderTime)
		})
	}
	m.mu.Unlock()

	logger.Debug("Habit added", "id", h.ID, "page", h.PageIndex, "position", h.Position)
	m.changed()
	return h.Clone(), nil
}

// freeSlotLocked returns the lowest free position on page, ignoring the habit
// with id exclude. A page holding MaxSlotsPerPage habits has none.
func (m *Manager) freeSlotLocked(page int, exclude string) (int, bool) {
	occupied := make(map[int]bool, constants.MaxSlotsPerPage)
	count := 0
	for _, h := range m.habits {
		if h.PageIndex == page && h.ID != exclude {
			occupied[h.Position] = true
			count++
		}
	}
	if count >= constants.MaxSlotsPerPage {
		return 0, false
	}
	for pos := 0; pos < constants.MaxSlotsPerPage; pos++ {
		if !occupied[pos] {
			return pos, true
		}
	}
	return 0, false
}

// DeleteHabit removes a habit and cancels its reminder. Unknown ids are ignored.
func (m *Manager) DeleteHabit(id string) {
	m.mu.Lock()
	i := m.indexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return
	}
	m.habits = append(m.habits[:i], m.habits[i+1:]...)
	m.background("cancel reminder", func(n Notifier) error {
		return n.CancelReminder(id)
	})
	m.mu.Unlock()

	logger.Debug("Habit deleted", "id", id)
	m.changed()
}

// UpdateHabit replaces the stored habit with the same id and reschedules its
// reminder. Unknown ids are ignored. A placement that is taken by another habit
// moves to the lowest free slot of the requested page, or stays where it was
// when that page is full.
func (m *Manager) UpdateHabit(h models.Habit) {
	h = h.Clone()

	m.mu.Lock()
	i := m.indexLocked(h.ID)
	if i < 0 {
		m.mu.Unlock()
		return
	}
	if !m.placementFreeLocked(h) {
		if slot, ok := m.freeSlotLocked(h.PageIndex, h.ID); ok && h.PageIndex >= 0 && h.PageIndex < constants.MaxPages {
			h.Position = slot
		} else {
			h.PageIndex, h.Position = m.habits[i].PageIndex, m.habits[i].Position
		}
	}
	m.habits[i] = h
	m.background("reschedule reminder", func(n Notifier) error {
		if err := n.CancelReminder(h.ID); err != nil {
			return err
		}
		if h.HasReminder() {
			return n.ScheduleReminder(h.ID, h.Name, h.ReminderTime)
		}
		return nil
	})
	m.mu.Unlock()

	logger.Debug("Habit updated", "id", h.ID, "page", h.PageIndex, "position", h.Position)
	m.changed()
}

// ToggleCompletion completes the habit on day if it is not yet completed
// there, otherwise removes every record of that day.
func (m *Manager) ToggleCompletion(id string, day time.Time, mood string) ToggleResult {
	m.mu.Lock()
	i := m.indexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return ToggleResult{}
	}

	h := &m.habits[i]
	target := utils.DayKey(day, m.loc)
	previousStreak := h.CurrentStreak
	previousLevel := m.level.Level
	res := ToggleResult{Found: true}

	if h.IsCompletedOn(target, m.loc) {
		kept := h.CompletionRecords[:0]
		for _, rec := range h.CompletionRecords {
			if !utils.SameDay(rec.Date, target, m.loc) {
				kept = append(kept, rec)
			}
		}
		h.CompletionRecords = kept
		h.TotalCompletions = progress.ClampSub(h.TotalCompletions, 1)

		removed := progress.ReversalPoints(h.Difficulty)
		h.TotalPoints = progress.ClampSub(h.TotalPoints, removed)
		before := m.points
		m.points = progress.ClampSub(m.points, removed)
		res.PointsDelta = m.points - before

		progress.ApplyStreak(h, m.now(), m.loc)
	} else {
		h.CompletionRecords = append(h.CompletionRecords, models.NewCompletionRecord(target, mood))
		h.TotalCompletions++
		progress.ApplyStreak(h, m.now(), m.loc)

		earned := progress.EarnedPoints(h.Difficulty, h.CurrentStreak, false)
		h.TotalPoints += earned
		m.points += earned
		res.PointsDelta = earned
		res.Completed = true
	}

	m.finishLocked(h, previousStreak, previousLevel, &res)
	name := h.Name
	m.mu.Unlock()

	m.afterCompletion(id, name, res)
	return res
}

// CompleteTimedHabit appends a completion dated now with the session duration
// in seconds. It never removes records.
func (m *Manager) CompleteTimedHabit(id string, actualSeconds float64, mood string) ToggleResult {
	m.mu.Lock()
	i := m.indexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return ToggleResult{}
	}

	h := &m.habits[i]
	now := m.now()
	previousStreak := h.CurrentStreak
	previousLevel := m.level.Level

	rec := models.NewCompletionRecord(now, mood)
	duration := actualSeconds
	rec.Duration = &duration
	h.CompletionRecords = append(h.CompletionRecords, rec)
	h.TotalCompletions++
	progress.ApplyStreak(h, now, m.loc)

	earned := progress.EarnedPoints(h.Difficulty, h.CurrentStreak, progress.TimedGoalMet(*h, actualSeconds))
	h.TotalPoints += earned
	m.points += earned

	res := ToggleResult{Found: true, Completed: true, PointsDelta: earned}
	m.finishLocked(h, previousStreak, previousLevel, &res)
	name := h.Name
	m.mu.Unlock()

	m.afterCompletion(id, name, res)
	return res
}

// finishLocked refreshes the level and fills the shared result fields.
// Milestones come from progress.MilestoneMessage, so every streak that gets a
// celebration message also gets a SendMilestone call.
func (m *Manager) finishLocked(h *models.Habit, previousStreak, previousLevel int, res *ToggleResult) {
	m.level = models.LevelForPoints(m.points)
	res.CurrentStreak = h.CurrentStreak
	res.BestStreak = h.BestStreak
	res.Level = m.level
	res.LeveledUp = m.level.Level > previousLevel
	if res.Completed && h.CurrentStreak > previousStreak {
		res.Milestone = progress.MilestoneMessage(h.CurrentStreak)
	}
}

func (m *Manager) afterCompletion(id, name string, res ToggleResult) {
	logger.Debug("Completion toggled", "id", id, "completed", res.Completed,
		"points", res.PointsDelta, "streak", res.CurrentStreak)
	if res.Milestone != "" {
		streak := res.CurrentStreak
		m.background("milestone notification", func(n Notifier) error {
			return n.SendMilestone(name, streak)
		})
	}
	if res.LeveledUp {
		logger.Info("Level up", "level", res.Level.Level, "title", res.Level.Title)
	}
	m.changed()
}

// Merge adds every habit whose id is not present yet and returns how many were
// added. Existing habits are never overwritten.
func (m *Manager) Merge(habits []models.Habit) int {
	m.mu.Lock()
	existing := make(map[string]bool, len(m.habits))
	for _, h := range m.habits {
		existing[h.ID] = true
	}
	added := 0
	for _, h := range habits {
		if h.ID == "" || existing[h.ID] {
			continue
		}
		existing[h.ID] = true
		m.habits = append(m.habits, h.Clone())
		added++
	}
	m.mu.Unlock()

	if added > 0 {
		logger.Info("Merged habits", "added", added, "skipped", len(habits)-added)
		m.changed()
	}
	return added
}

// Habits returns copies of all habits in insertion order.
func (m *Manager) Habits() []models.Habit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cloneAllLocked()
}

// Habit returns a copy of the habit with id.
func (m *Manager) Habit(id string) (models.Habit, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexLocked(id)
	if i < 0 {
		return models.Habit{}, false
	}
	return m.habits[i].Clone(), true
}

// HabitsForPage returns the habits placed on page, ordered by slot.
func (m *Manager) HabitsForPage(page int) []models.Habit {
	m.mu.RLock()
	var out []models.Habit
	for _, h := range m.habits {
		if h.PageIndex == page {
			out = append(out, h.Clone())
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *Manager) TotalPoints() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.points
}

func (m *Manager) CurrentLevel() models.UserLevel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.level
}

// Statistics computes the detail statistics of a habit.
func (m *Manager) Statistics(id string) (progress.Stats, bool) {
	h, ok := m.Habit(id)
	if !ok {
		return progress.Stats{}, false
	}
	return progress.Statistics(h, m.now(), m.loc), true
}

// Compatibility scores two habits over the default window. Zero when either is unknown.
func (m *Manager) Compatibility(a, b string) float64 {
	m.mu.RLock()
	ia, ib := m.indexLocked(a), m.indexLocked(b)
	if ia < 0 || ib < 0 {
		m.mu.RUnlock()
		return 0
	}
	ha, hb := m.habits[ia].Clone(), m.habits[ib].Clone()
	m.mu.RUnlock()
	return progress.Compatibility(ha, hb, constants.CompatibilityWindowDays, m.now(), m.loc)
}

// BestPartner returns the habit most often completed together with id.
func (m *Manager) BestPartner(id string) (progress.Partner, bool) {
	m.mu.RLock()
	i := m.indexLocked(id)
	if i < 0 {
		m.mu.RUnlock()
		return progress.Partner{}, false
	}
	h := m.habits[i].Clone()
	others := m.cloneAllLocked()
	m.mu.RUnlock()
	return progress.BestPartner(h, others, m.now(), m.loc)
}

func (m *Manager) MotivationMessage(streak int) string {
	return progress.MilestoneMessage(streak)
}

// LastError reports the most recent notifier failure.
func (m *Manager) LastError() error {
	_, err := m.advisory.Last()
	return err
}

// Wait blocks until every queued notifier call has returned.
func (m *Manager) Wait() {
	m.bg.Wait()
}

// placementFreeLocked reports whether h's slot is in range and not held by another habit.
func (m *Manager) placementFreeLocked(h models.Habit) bool {
	if h.PageIndex < 0 || h.PageIndex >= constants.MaxPages ||
		h.Position < 0 || h.Position >= constants.MaxSlotsPerPage {
		return false
	}
	for _, o := range m.habits {
		if o.ID != h.ID && o.PageIndex == h.PageIndex && o.Position == h.Position {
			return false
		}
	}
	return true
}

func (m *Manager) indexLocked(id string) int {
	for i := range m.habits {
		if m.habits[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) cloneAllLocked() []models.Habit {
	out := make([]models.Habit, len(m.habits))
	for i, h := range m.habits {
		out[i] = h.Clone()
	}
	return out
}

func (m *Manager) changed() {
	m.mu.RLock()
	l := m.listener
	m.mu.RUnlock()
	if l != nil {
		l.MarkDirty()
	}
}

// background queues fn for the notifier worker without waiting for it. Callers
// that need ordering against other mutations enqueue while holding m.mu.
func (m *Manager) background(source string, fn func(Notifier) error) {
	if m.notifier == nil {
		return
	}
	m.bg.Add(1)
	m.qmu.Lock()
	m.queue = append(m.queue, notifyJob{source: source, fn: fn})
	start := !m.draining
	m.draining = true
	m.qmu.Unlock()
	if start {
		go m.drain()
	}
}

// drain runs queued notifier calls in FIFO order and exits once the queue is empty.
func (m *Manager) drain() {
	for {
		m.qmu.Lock()
		if len(m.queue) == 0 {
			m.draining = false
			m.qmu.Unlock()
			return
		}
		job := m.queue[0]
		m.queue[0] = notifyJob{}
		m.queue = m.queue[1:]
		m.qmu.Unlock()

		if err := job.fn(m.notifier); err != nil {
			m.advisory.Record(job.source, err)
		}
		m.bg.Done()
	}
}
