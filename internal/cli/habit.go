package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/habita/internal/constants"
	"github.com/julianstephens/habita/internal/habits"
	"github.com/julianstephens/habita/internal/models"
	"github.com/julianstephens/habita/internal/progress"
	"github.com/julianstephens/habita/internal/utils"
)

type HabitCmd struct {
	Add    HabitAddCmd    `cmd:"" help:"Add a new habit."`
	List   HabitListCmd   `cmd:"" help:"List habits."`
	Show   HabitShowCmd   `cmd:"" aliases:"stats" help:"Show one habit with its statistics."`
	Edit   HabitEditCmd   `cmd:"" help:"Edit an existing habit."`
	Delete HabitDeleteCmd `cmd:"" help:"Delete a habit."`
	Toggle HabitToggleCmd `cmd:"" help:"Complete or un-complete a habit for a day."`
	Timed  HabitTimedCmd  `cmd:"" help:"Log a timed session for a timed habit."`
	Compat HabitCompatCmd `cmd:"" help:"Compare how two habits are completed together."`
}

// findHabit resolves ref as an id, then as a unique case-insensitive name.
func findHabit(m *habits.Manager, ref string) (models.Habit, error) {
	if h, ok := m.Habit(ref); ok {
		return h, nil
	}
	var matches []models.Habit
	for _, h := range m.Habits() {
		if strings.EqualFold(h.Name, ref) {
			matches = append(matches, h)
		}
	}
	switch len(matches) {
	case 0:
		return models.Habit{}, fmt.Errorf("%w: %s", habits.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return models.Habit{}, fmt.Errorf("%d habits are named %q, use the id instead", len(matches), ref)
	}
}

type HabitAddCmd struct {
	Name       string        `arg:"" help:"Habit name."`
	Type       string        `help:"Habit type." enum:"positive,negative,timed" default:"positive"`
	Difficulty string        `help:"Difficulty." enum:"easy,medium,hard" default:"medium"`
	Frequency  string        `help:"Frequency." enum:"daily,weekly,custom" default:"daily"`
	Days       string        `help:"Target weekdays, e.g. mon,wed,fri or 1,3,5 (default: every day)."`
	Icon       string        `help:"Icon name." default:"star.fill"`
	Color      string        `help:"Color name." default:"blue"`
	Page       int           `help:"Page (1-${max_pages})." default:"1"`
	Timer      time.Duration `help:"Timer goal for timed habits, e.g. 10m."`
	Reminder   string        `help:"Daily reminder time (HH:MM)."`
	Notes      string        `help:"Free-form notes."`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	h := models.NewHabit(strings.TrimSpace(c.Name))
	h.Type = models.HabitType(c.Type)
	h.Difficulty = models.Difficulty(c.Difficulty)
	h.Frequency = models.Frequency(c.Frequency)
	h.Icon = c.Icon
	h.Color = c.Color
	h.Notes = c.Notes
	h.PageIndex = c.Page - 1

	if c.Days != "" {
		days, err := ParseWeekdays(c.Days)
		if err != nil {
			return err
		}
		h.TargetDays = days
		h.TargetCount = len(days)
	}
	if h.Type == models.HabitTypeTimed {
		if c.Timer <= 0 {
			return errors.New("timed habits need a --timer goal")
		}
		h.TimerDuration = c.Timer.Seconds()
	}
	if c.Reminder != "" {
		if !utils.ValidateTimeFormat(c.Reminder) {
			return fmt.Errorf("invalid reminder time %q (expected HH:MM)", c.Reminder)
		}
		h.ReminderEnabled = true
		h.ReminderTime = c.Reminder
	}

	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	created, err := sess.Manager.Create(h)
	if cerr := sess.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	ctx.printf("%s Added habit %q (page %d, slot %d)\n", okStyle.Render("✓"), created.Name, created.PageIndex+1, created.Position+1)
	ctx.printf("  id: %s\n", mutedStyle.Render(created.ID))
	return nil
}

type HabitListCmd struct {
	Page int `help:"Only show this page (1-${max_pages})."`
}

func (c *HabitListCmd) Run(ctx *Context) (err error) {
	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	defer closeSession(sess, &err)

	m := sess.Manager
	var list []models.Habit
	if c.Page > 0 {
		list = m.HabitsForPage(c.Page - 1)
	} else {
		list = m.Habits()
	}
	if len(list) == 0 {
		ctx.println("No habits found.")
		return nil
	}

	now := m.Now()
	rows := make([][]string, 0, len(list))
	for _, h := range list {
		done := "[ ]"
		if h.IsCompletedToday(now, sess.Location) {
			done = "[x]"
		}
		rows = append(rows, []string{
			done,
			lipgloss.NewStyle().Foreground(colorFor(h.Color)).Render(h.Name),
			models.HabitTypeName(h.Type),
			models.DifficultyName(h.Difficulty),
			strconv.Itoa(h.CurrentStreak),
			strconv.Itoa(h.BestStreak),
			fmt.Sprintf("%d/%d", h.PageIndex+1, h.Position+1),
			h.ID[:min(8, len(h.ID))],
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers("", "Habit", "Type", "Difficulty", "Streak", "Best", "Slot", "ID").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	ctx.println(t.Render())

	lvl := m.CurrentLevel()
	ctx.printf("Level %d %s, %d points\n", lvl.Level, lvl.Title, m.TotalPoints())
	return nil
}

type HabitShowCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *HabitShowCmd) Run(ctx *Context) (err error) {
	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	defer closeSession(sess, &err)

	m := sess.Manager
	h, err := findHabit(m, c.Habit)
	if err != nil {
		return err
	}
	stats, _ := m.Statistics(h.ID)

	ctx.println(titleStyle.Render(h.Name))
	ctx.printf("  %s, %s, %s (%s)\n", models.HabitTypeName(h.Type), models.DifficultyName(h.Difficulty),
		models.FrequencyName(h.Frequency), FormatWeekdays(h.TargetDays))
	if h.Type == models.HabitTypeTimed {
		ctx.printf("  Timer goal: %s\n", time.Duration(h.TimerDuration*float64(time.Second)))
	}
	if h.HasReminder() {
		ctx.printf("  Reminder: %s\n", h.ReminderTime)
	}
	if h.Notes != "" {
		ctx.printf("  Notes: %s\n", h.Notes)
	}
	ctx.println()
	ctx.printf("  Current streak:  %d\n", stats.CurrentStreak)
	ctx.printf("  Best streak:     %d\n", stats.BestStreak)
	ctx.printf("  Completions:     %d\n", stats.TotalCompletions)
	ctx.printf("  Points:          %d\n", stats.TotalPoints)
	ctx.printf("  Last 7 days:     %s\n", progressBar(stats.Last7DaysRate, 20))
	ctx.printf("  Last 30 days:    %s\n", progressBar(stats.Last30DaysRate, 20))
	if partner, ok := m.BestPartner(h.ID); ok {
		ctx.printf("  Best partner:    %s (%.0f%%)\n", partner.Name, partner.Score*100)
	}
	ctx.println()
	ctx.println(mutedStyle.Render(m.MotivationMessage(stats.CurrentStreak)))
	return nil
}

type HabitEditCmd struct {
	Habit      string         `arg:"" help:"Habit id or name."`
	Name       *string        `help:"New name."`
	Difficulty *string        `help:"Difficulty: easy, medium or hard."`
	Frequency  *string        `help:"Frequency: daily, weekly or custom."`
	Days       *string        `help:"Target weekdays, e.g. mon,wed,fri."`
	Icon       *string        `help:"Icon name."`
	Color      *string        `help:"Color name."`
	Timer      *time.Duration `help:"Timer goal for timed habits."`
	Reminder   *string        `help:"Reminder time (HH:MM), empty to disable."`
	Notes      *string        `help:"Free-form notes."`
}

func (c *HabitEditCmd) Run(ctx *Context) (err error) {
	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	defer closeSession(sess, &err)

	h, err := findHabit(sess.Manager, c.Habit)
	if err != nil {
		return err
	}
	if err := c.apply(&h); err != nil {
		return err
	}
	if err := h.Validate(); err != nil {
		return err
	}
	sess.Manager.UpdateHabit(h)
	ctx.printf("%s Updated habit %q\n", okStyle.Render("✓"), h.Name)
	return nil
}

func (c *HabitEditCmd) apply(h *models.Habit) error {
	if c.Name != nil {
		h.Name = strings.TrimSpace(*c.Name)
	}
	if c.Difficulty != nil {
		h.Difficulty = models.Difficulty(*c.Difficulty)
	}
	if c.Frequency != nil {
		h.Frequency = models.Frequency(*c.Frequency)
	}
	if c.Days != nil {
		days, err := ParseWeekdays(*c.Days)
		if err != nil {
			return err
		}
		h.TargetDays = days
		h.TargetCount = len(days)
	}
	if c.Icon != nil {
		h.Icon = *c.Icon
	}
	if c.Color != nil {
		h.Color = *c.Color
	}
	if c.Timer != nil {
		if h.Type != models.HabitTypeTimed {
			return errors.New("only timed habits have a timer goal")
		}
		h.TimerDuration = c.Timer.Seconds()
	}
	if c.Reminder != nil {
		if *c.Reminder == "" {
			h.ReminderEnabled = false
			h.ReminderTime = ""
		} else {
			if !utils.ValidateTimeFormat(*c.Reminder) {
				return fmt.Errorf("invalid reminder time %q (expected HH:MM)", *c.Reminder)
			}
			h.ReminderEnabled = true
			h.ReminderTime = *c.Reminder
		}
	}
	if c.Notes != nil {
		h.Notes = *c.Notes
	}
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Yes   bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *HabitDeleteCmd) Run(ctx *Context) (err error) {
	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	defer closeSession(sess, &err)

	h, err := findHabit(sess.Manager, c.Habit)
	if err != nil {
		return err
	}
	if !c.Yes {
		ok, err := ctx.confirm(fmt.Sprintf("Delete %q?", h.Name),
			fmt.Sprintf("Its %d completions are removed. Points already earned are kept.", len(h.CompletionRecords)))
		if err != nil {
			return err
		}
		if !ok {
			ctx.println("Delete cancelled.")
			return nil
		}
	}

	sess.Manager.DeleteHabit(h.ID)
	ctx.printf("%s Deleted habit %q\n", okStyle.Render("✓"), h.Name)
	return nil
}

type HabitToggleCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Date  string `help:"Date in YYYY-MM-DD format (default: today)."`
	Mood  string `help:"Optional mood for the completion."`
}

func (c *HabitToggleCmd) Run(ctx *Context) (err error) {
	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	defer closeSession(sess, &err)

	m := sess.Manager
	h, err := findHabit(m, c.Habit)
	if err != nil {
		return err
	}

	day := m.Now()
	if c.Date != "" {
		day, err = utils.ParseDayInLocation(c.Date, sess.Location)
		if err != nil {
			return fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", c.Date)
		}
	}

	res := m.ToggleCompletion(h.ID, day, c.Mood)
	if res.Completed {
		ctx.printf("%s Completed %q for %s (+%d points)\n", okStyle.Render("✓"), h.Name, utils.FormatDay(day.In(sess.Location)), res.PointsDelta)
	} else {
		ctx.printf("Un-completed %q for %s (%d points)\n", h.Name, utils.FormatDay(day.In(sess.Location)), res.PointsDelta)
	}
	printResult(ctx, res)
	return nil
}

type HabitTimedCmd struct {
	Habit    string        `arg:"" help:"Habit id or name."`
	Duration time.Duration `arg:"" help:"Session length, e.g. 12m30s."`
	Mood     string        `help:"Optional mood for the session."`
}

func (c *HabitTimedCmd) Run(ctx *Context) (err error) {
	if c.Duration <= 0 {
		return errors.New("duration must be positive")
	}

	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	defer closeSession(sess, &err)

	h, err := findHabit(sess.Manager, c.Habit)
	if err != nil {
		return err
	}
	if h.Type != models.HabitTypeTimed {
		return fmt.Errorf("%q is not a timed habit", h.Name)
	}

	res := sess.Manager.CompleteTimedHabit(h.ID, c.Duration.Seconds(), c.Mood)
	goal := ""
	if progress.TimedGoalMet(h, c.Duration.Seconds()) {
		goal = " goal reached,"
	}
	ctx.printf("%s Logged %s of %q,%s +%d points\n", okStyle.Render("✓"), c.Duration, h.Name, goal, res.PointsDelta)
	printResult(ctx, res)
	return nil
}

func printResult(ctx *Context, res habits.ToggleResult) {
	ctx.printf("  Streak: %d (best %d)\n", res.CurrentStreak, res.BestStreak)
	if res.Milestone != "" {
		ctx.println("  " + titleStyle.Render(res.Milestone))
	}
	if res.LeveledUp {
		ctx.println("  " + titleStyle.Render(fmt.Sprintf("Level up! You are now level %d, %s", res.Level.Level, res.Level.Title)))
	}
}

type HabitCompatCmd struct {
	A string `arg:"" help:"First habit id or name."`
	B string `arg:"" help:"Second habit id or name."`
}

func (c *HabitCompatCmd) Run(ctx *Context) (err error) {
	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	defer closeSession(sess, &err)

	m := sess.Manager
	a, err := findHabit(m, c.A)
	if err != nil {
		return err
	}
	b, err := findHabit(m, c.B)
	if err != nil {
		return err
	}

	score := m.Compatibility(a.ID, b.ID)
	ctx.printf("%s + %s over the last %d days\n", a.Name, b.Name, constants.CompatibilityWindowDays)
	ctx.printf("  %s\n", progressBar(score, 20))
	return nil
}
