// Package transfer reads and writes the portable JSON backup format: an array
// of habits with their nested completion records and RFC 3339 dates.
package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/julianstephens/habita/internal/constants"
	"github.com/julianstephens/habita/internal/models"
)

var ErrEmptyImport = errors.New("import file contains no habits")

// Export writes habits as an indented JSON array.
func Export(w io.Writer, habits []models.Habit) error {
	if habits == nil {
		habits = []models.Habit{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(habits); err != nil {
		return fmt.Errorf("failed to export habits: %w", err)
	}
	return nil
}

// Import decodes and validates an exported habit array.
func Import(r io.Reader) ([]models.Habit, error) {
	var habits []models.Habit
	if err := json.NewDecoder(r).Decode(&habits); err != nil {
		return nil, fmt.Errorf("failed to decode import file: %w", err)
	}
	if len(habits) == 0 {
		return nil, ErrEmptyImport
	}

	seen := make(map[string]bool, len(habits))
	for i, h := range habits {
		if h.ID == "" {
			return nil, fmt.Errorf("habit %d (%q) has no id", i, h.Name)
		}
		if seen[h.ID] {
			return nil, fmt.Errorf("duplicate habit id %s", h.ID)
		}
		seen[h.ID] = true
		if err := h.Validate(); err != nil {
			return nil, fmt.Errorf("habit %s: %w", h.ID, err)
		}
	}
	return habits, nil
}

// ExportFileName is the default backup file name for an export made at now.
func ExportFileName(now time.Time) string {
	return constants.ExportFilePrefix + now.Format(constants.ExportTimeFormat) + ".json"
}

// ExportFile writes habits into dir under ExportFileName and returns the path.
func ExportFile(dir string, habits []models.Habit, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, ExportFileName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	if err := Export(f, habits); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// ImportFile reads an export from path.
func ImportFile(path string) ([]models.Habit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()
	return Import(f)
}
