package storage

import (
	"errors"

	"github.com/julianstephens/habita/internal/models"
)

var (
	// ErrNotInitialized is returned by Load when no store exists at the configured path.
	ErrNotInitialized = errors.New("storage not initialized, run 'habita init' first")
	// ErrCorrupt wraps decode failures of persisted habit data.
	ErrCorrupt = errors.New("stored habit data could not be decoded")
)

// Settings are the persisted user preferences.
type Settings struct {
	Timezone             string `json:"timezone"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	AutosaveDebounceMs   int    `json:"autosave_debounce_ms"`
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (Settings, error)
	SaveSettings(Settings) error

	// Habits are always loaded and saved as a whole set, last write wins.
	LoadHabits() ([]models.Habit, error)
	SaveHabits([]models.Habit) error

	// Global point total
	LoadPoints() (int, error)
	SavePoints(int) error

	// Utils
	GetConfigPath() string
}
