package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/habita/internal/constants"
	"github.com/julianstephens/habita/internal/logger"
	"github.com/julianstephens/habita/internal/migration"
	"github.com/julianstephens/habita/internal/models"
	"github.com/julianstephens/habita/migrations"
)

const (
	settingTimezone      = "timezone"
	settingNotifications = "notifications_enabled"
	settingAutosave      = "autosave_debounce_ms"
)

type SQLiteStore struct {
	path string
	db   *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{
		path: path,
	}
}

func (s *SQLiteStore) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := s.open(); err != nil {
		return err
	}

	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize default settings if not present
	settings, err := s.GetSettings()
	if err != nil || settings.Timezone == "" {
		defaults := Settings{
			Timezone:             "Local",
			NotificationsEnabled: true,
			AutosaveDebounceMs:   int(constants.DefaultAutosaveDebounce / time.Millisecond),
		}
		if err := s.SaveSettings(defaults); err != nil {
			return fmt.Errorf("failed to save default settings: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStore) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return ErrNotInitialized
	}

	if err := s.open(); err != nil {
		return err
	}

	// Bring databases created by older builds up to date; newer ones are rejected.
	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) open() error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite serializes writers anyway; one connection avoids SQLITE_BUSY
	// between the write-behind flusher and foreground commands.
	db.SetMaxOpenConns(1)
	s.db = db
	return nil
}

func (s *SQLiteStore) runner() (*migration.Runner, error) {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS), nil
}

func (s *SQLiteStore) runMigrations() error {
	runner, err := s.runner()
	if err != nil {
		return err
	}
	_, err = runner.Apply(func(msg string) {
		logger.Info(msg)
	})
	return err
}

// SchemaVersions reports the applied and the newest embedded schema version.
func (s *SQLiteStore) SchemaVersions() (current, latest int, err error) {
	if s.db == nil {
		return 0, 0, ErrNotInitialized
	}
	runner, err := s.runner()
	if err != nil {
		return 0, 0, err
	}
	if current, err = runner.CurrentVersion(); err != nil {
		return 0, 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	if latest, err = runner.LatestVersion(); err != nil {
		return 0, 0, fmt.Errorf("failed to get latest schema version: %w", err)
	}
	return current, latest, nil
}

func (s *SQLiteStore) GetConfigPath() string {
	return s.path
}

// GetDB returns the underlying database connection, nil before Init or Load.
func (s *SQLiteStore) GetDB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) GetSettings() (Settings, error) {
	if s.db == nil {
		return Settings{}, ErrNotInitialized
	}

	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return Settings{}, err
	}
	defer rows.Close()

	var settings Settings
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, err
		}
		switch key {
		case settingTimezone:
			settings.Timezone = value
		case settingNotifications:
			settings.NotificationsEnabled = value == "true"
		case settingAutosave:
			settings.AutosaveDebounceMs, _ = strconv.Atoi(value)
		}
	}
	return settings, rows.Err()
}

func (s *SQLiteStore) SaveSettings(settings Settings) error {
	if s.db == nil {
		return ErrNotInitialized
	}

	values := map[string]string{
		settingTimezone:      settings.Timezone,
		settingNotifications: strconv.FormatBool(settings.NotificationsEnabled),
		settingAutosave:      strconv.Itoa(settings.AutosaveDebounceMs),
	}
	for key, value := range values {
		_, err := s.db.Exec(`
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
		if err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}
	return nil
}

func (s *SQLiteStore) LoadHabits() ([]models.Habit, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	rows, err := s.db.Query(`
		SELECT id, name, icon, color, type, difficulty, frequency, target_days, target_count,
			timer_duration, reminder_enabled, reminder_time, notes, page_index, position,
			current_streak, best_streak, total_completions, total_points, created_date
		FROM habits ORDER BY page_index, position, created_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var habits []models.Habit
	index := make(map[string]int)
	for rows.Next() {
		var h models.Habit
		var targetDays, createdDate string
		err := rows.Scan(&h.ID, &h.Name, &h.Icon, &h.Color, &h.Type, &h.Difficulty, &h.Frequency,
			&targetDays, &h.TargetCount, &h.TimerDuration, &h.ReminderEnabled, &h.ReminderTime,
			&h.Notes, &h.PageIndex, &h.Position, &h.CurrentStreak, &h.BestStreak,
			&h.TotalCompletions, &h.TotalPoints, &createdDate)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(targetDays), &h.TargetDays); err != nil {
			return nil, fmt.Errorf("%w: target days of habit %s: %v", ErrCorrupt, h.ID, err)
		}
		h.CreatedDate, err = time.Parse(time.RFC3339Nano, createdDate)
		if err != nil {
			return nil, fmt.Errorf("%w: created_date of habit %s: %v", ErrCorrupt, h.ID, err)
		}
		index[h.ID] = len(habits)
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadRecords(habits, index); err != nil {
		return nil, err
	}
	return habits, nil
}

func (s *SQLiteStore) loadRecords(habits []models.Habit, index map[string]int) error {
	rows, err := s.db.Query(`
		SELECT id, habit_id, date, duration, note, mood
		FROM completion_records ORDER BY habit_id, seq`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rec models.CompletionRecord
		var habitID, date string
		var duration sql.NullFloat64
		var note, mood sql.NullString

		if err := rows.Scan(&rec.ID, &habitID, &date, &duration, &note, &mood); err != nil {
			return err
		}
		i, ok := index[habitID]
		if !ok {
			continue
		}

		rec.Date, err = time.Parse(time.RFC3339Nano, date)
		if err != nil {
			return fmt.Errorf("%w: date of record %s: %v", ErrCorrupt, rec.ID, err)
		}
		if duration.Valid {
			rec.Duration = &duration.Float64
		}
		if note.Valid {
			rec.Note = &note.String
		}
		if mood.Valid {
			rec.Mood = &mood.String
		}
		habits[i].CompletionRecords = append(habits[i].CompletionRecords, rec)
	}
	return rows.Err()
}

// SaveHabits replaces the stored habit set in a single transaction.
func (s *SQLiteStore) SaveHabits(habits []models.Habit) error {
	if s.db == nil {
		return ErrNotInitialized
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM completion_records"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM habits"); err != nil {
		return err
	}

	for _, h := range habits {
		targetDays, err := json.Marshal(h.TargetDays)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			INSERT INTO habits (id, name, icon, color, type, difficulty, frequency, target_days,
				target_count, timer_duration, reminder_enabled, reminder_time, notes, page_index,
				position, current_streak, best_streak, total_completions, total_points, created_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			h.ID, h.Name, h.Icon, h.Color, string(h.Type), string(h.Difficulty), string(h.Frequency),
			string(targetDays), h.TargetCount, h.TimerDuration, h.ReminderEnabled, h.ReminderTime,
			h.Notes, h.PageIndex, h.Position, h.CurrentStreak, h.BestStreak, h.TotalCompletions,
			h.TotalPoints, h.CreatedDate.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("failed to save habit %s: %w", h.ID, err)
		}

		for seq, rec := range h.CompletionRecords {
			_, err := tx.Exec(`
				INSERT INTO completion_records (id, habit_id, seq, date, duration, note, mood)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				rec.ID, h.ID, seq, rec.Date.Format(time.RFC3339Nano),
				nullFloat(rec.Duration), nullString(rec.Note), nullString(rec.Mood))
			if err != nil {
				return fmt.Errorf("failed to save record %s: %w", rec.ID, err)
			}
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadPoints() (int, error) {
	if s.db == nil {
		return 0, ErrNotInitialized
	}
	var points int
	err := s.db.QueryRow("SELECT total_points FROM user_stats WHERE id = 1").Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return points, err
}

func (s *SQLiteStore) SavePoints(points int) error {
	if s.db == nil {
		return ErrNotInitialized
	}
	_, err := s.db.Exec(`
		INSERT INTO user_stats (id, total_points) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET total_points = excluded.total_points`, points)
	return err
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
