package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/julianstephens/habita/internal/constants"
	"github.com/julianstephens/habita/internal/models"
)

type document struct {
	Version  int             `json:"version"`
	Settings Settings        `json:"settings"`
	Points   int             `json:"points"`
	Habits   json.RawMessage `json:"habits"`
}

// JSONStore keeps everything in a single JSON document on disk.
type JSONStore struct {
	path string

	mu  sync.Mutex
	doc *document
}

func NewJSONStore(configPath string) *JSONStore {
	return &JSONStore{
		path: configPath,
	}
}

func (s *JSONStore) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		return s.Load()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = &document{
		Version: 1,
		Settings: Settings{
			Timezone:             "Local",
			NotificationsEnabled: true,
			AutosaveDebounceMs:   int(constants.DefaultAutosaveDebounce / time.Millisecond),
		},
		Habits: json.RawMessage("[]"),
	}
	return s.save()
}

func (s *JSONStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotInitialized
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

// save writes atomically through a temp file. Callers hold s.mu.
func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	return nil
}

func (s *JSONStore) GetSettings() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return Settings{}, ErrNotInitialized
	}
	return s.doc.Settings, nil
}

func (s *JSONStore) SaveSettings(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNotInitialized
	}
	s.doc.Settings = settings
	return s.save()
}

// LoadHabits decodes lazily so a corrupt habit list does not prevent the
// settings and points from loading.
func (s *JSONStore) LoadHabits() ([]models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, ErrNotInitialized
	}
	if len(s.doc.Habits) == 0 {
		return nil, nil
	}

	var habits []models.Habit
	if err := json.Unmarshal(s.doc.Habits, &habits); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return habits, nil
}

func (s *JSONStore) SaveHabits(habits []models.Habit) error {
	if habits == nil {
		habits = []models.Habit{}
	}
	data, err := json.Marshal(habits)
	if err != nil {
		return fmt.Errorf("failed to serialize habits: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNotInitialized
	}
	s.doc.Habits = data
	return s.save()
}

func (s *JSONStore) LoadPoints() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return 0, ErrNotInitialized
	}
	return s.doc.Points, nil
}

func (s *JSONStore) SavePoints(points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNotInitialized
	}
	s.doc.Points = points
	return s.save()
}

func (s *JSONStore) GetConfigPath() string {
	return s.path
}
