package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/habita/internal/backup"
	"github.com/julianstephens/habita/internal/config"
	"github.com/julianstephens/habita/internal/habits"
	"github.com/julianstephens/habita/internal/logger"
	"github.com/julianstephens/habita/internal/notifier"
	"github.com/julianstephens/habita/internal/storage"
	"github.com/julianstephens/habita/internal/utils"
)

type Context struct {
	Store  storage.Provider
	Config *config.Config
	Out    io.Writer
	// Now is the clock handed to the habit manager, time.Now when nil.
	Now func() time.Time
	// Confirm asks a yes/no question, an interactive prompt when nil.
	Confirm func(title, description string) (bool, error)
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) println(args ...any) {
	fmt.Fprintln(c.out(), args...)
}

func (c *Context) confirm(title, description string) (bool, error) {
	if c.Confirm != nil {
		return c.Confirm(title, description)
	}
	return promptConfirm(title, description)
}

func (c *Context) clock() func() time.Time {
	if c.Now == nil {
		return time.Now
	}
	return c.Now
}

func (c *Context) cfg() *config.Config {
	if c.Config == nil {
		cfg := &config.Config{}
		cfg.ApplyDefaults()
		c.Config = cfg
	}
	return c.Config
}

// PerformAutomaticBackup snapshots the database and only logs failures.
func (c *Context) PerformAutomaticBackup() {
	if _, ok := c.Store.(*storage.SQLiteStore); !ok {
		return
	}
	if _, err := backup.NewManager(c.Store.GetConfigPath()).Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// Session is an opened habit set with its saver and notifier attached.
type Session struct {
	Manager    *habits.Manager
	Dispatcher *notifier.Dispatcher
	Saver      *storage.WriteBehind
	Location   *time.Location
	Seeded     bool
}

// Open loads the store into a fresh manager. Callers must Close the session
// so pending changes reach the store.
func (c *Context) Open() (*Session, error) {
	if err := c.Store.Load(); err != nil {
		return nil, err
	}
	settings, err := c.Store.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	cfg := c.cfg()
	loc, err := utils.LoadLocation(cfg.TimezoneOr(settings.Timezone))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	dispatcher := c.dispatcher(settings.NotificationsEnabled)
	mgr := habits.NewManager(habits.Config{
		Location: loc,
		Now:      c.clock(),
		Notifier: dispatcher,
	})
	seeded := mgr.Load(c.Store)

	debounce := cfg.AutosaveDebounce(time.Duration(settings.AutosaveDebounceMs) * time.Millisecond)
	saver := storage.NewWriteBehind(c.Store, mgr.Snapshot, debounce, cfg.Autosave.MaxPending)
	mgr.SetListener(saver)
	if seeded {
		saver.MarkDirty()
	}

	for _, h := range mgr.Habits() {
		if h.HasReminder() {
			if err := dispatcher.ScheduleReminder(h.ID, h.Name, h.ReminderTime); err != nil {
				logger.Warn("Skipping reminder", "habit", h.Name, "error", err)
			}
		}
	}

	return &Session{
		Manager:    mgr,
		Dispatcher: dispatcher,
		Saver:      saver,
		Location:   loc,
		Seeded:     seeded,
	}, nil
}

func (c *Context) dispatcher(storeEnabled bool) *notifier.Dispatcher {
	cfg := c.cfg()
	var transports []notifier.Transport
	if cfg.TrayEnabled() {
		transports = append(transports, notifier.NewTrayTransport())
	}
	if cfg.WebPushEnabled() {
		w := cfg.Notifications.WebPush
		push, err := notifier.NewWebPushTransport(notifier.VAPID{
			Subject:    w.Subject,
			PublicKey:  w.PublicKey,
			PrivateKey: w.PrivateKey,
		}, w.SubscriptionFile)
		if err != nil {
			logger.Warn("Web push disabled", "error", err)
		} else {
			transports = append(transports, push)
		}
	}
	return notifier.New(storeEnabled && cfg.NotificationsEnabled(), transports...)
}

// Close waits for notifier calls and flushes the habit set.
func (s *Session) Close() error {
	s.Manager.Wait()
	return s.Saver.Close()
}

// ParseWeekdays parses a comma-separated list of weekday names or 0-6 numbers.
func ParseWeekdays(s string) ([]int, error) {
	dayMap := map[string]int{
		"sun": 0, "sunday": 0,
		"mon": 1, "monday": 1,
		"tue": 2, "tuesday": 2,
		"wed": 3, "wednesday": 3,
		"thu": 4, "thursday": 4,
		"fri": 5, "friday": 5,
		"sat": 6, "saturday": 6,
	}

	seen := make(map[int]bool)
	var days []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		d, ok := dayMap[part]
		if !ok {
			num, err := strconv.Atoi(part)
			if err != nil || num < 0 || num > 6 {
				return nil, fmt.Errorf("invalid weekday: %s", part)
			}
			d = num
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("no weekdays in %q", s)
	}
	return days, nil
}

// FormatWeekdays renders target days in the short form used by ParseWeekdays.
func FormatWeekdays(days []int) string {
	if len(days) == 7 {
		return "every day"
	}
	names := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	parts := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 0 && d < len(names) {
			parts = append(parts, names[d])
		}
	}
	return strings.Join(parts, ",")
}

// closeSession flushes sess, keeping the first error in *err.
func closeSession(sess *Session, err *error) {
	if cerr := sess.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
