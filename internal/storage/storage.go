package storage

import (
	"path/filepath"
	"strings"
)

// New picks the store implementation from the file extension of path:
// ".json" selects the JSON document store, anything else SQLite.
func New(path string) Provider {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return NewJSONStore(path)
	}
	return NewSQLiteStore(path)
}
