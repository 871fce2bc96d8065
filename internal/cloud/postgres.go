package cloud

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"sort"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/habita/internal/constants"
	"github.com/julianstephens/habita/internal/logger"
	"github.com/julianstephens/habita/internal/migration"
	"github.com/julianstephens/habita/internal/models"
	"github.com/julianstephens/habita/migrations"
)

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
)

// PostgresSyncer mirrors habits into a remote PostgreSQL table, one JSON
// document per habit.
type PostgresSyncer struct {
	connStr string
	db      *sql.DB
}

func NewPostgresSyncer(connStr string) (*PostgresSyncer, error) {
	if _, err := ValidateConnString(connStr); err != nil {
		return nil, err
	}
	return &PostgresSyncer{connStr: withSearchPath(connStr)}, nil
}

// withSearchPath pins the session to the application schema unless the
// connection string already chooses one.
func withSearchPath(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil {
			logger.Warn("Failed to parse Postgres connection string", "error", err)
			return connStr
		}
		q := u.Query()
		if q.Get("search_path") == "" {
			q.Set("search_path", constants.AppName)
			u.RawQuery = q.Encode()
		}
		return u.String()
	}

	for _, part := range strings.Fields(connStr) {
		if key, _, ok := strings.Cut(part, "="); ok && strings.EqualFold(key, "search_path") {
			return connStr
		}
	}
	return strings.TrimSpace(connStr) + " search_path=" + constants.AppName
}

// ValidateConnString checks that connStr is a PostgreSQL URI or DSN without
// an embedded password. Credentials belong in ~/.pgpass or PGPASSWORD.
func ValidateConnString(connStr string) (bool, error) {
	if strings.TrimSpace(connStr) == "" {
		return false, fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}
	if _, err := pq.NewConnector(connStr); err != nil {
		return false, fmt.Errorf("%w: invalid connection string format: %v", ErrInvalidConnectionString, err)
	}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil {
			return false, fmt.Errorf("%w: failed to parse connection URL: %v", ErrInvalidConnectionString, err)
		}
		if _, isSet := u.User.Password(); isSet {
			return false, ErrEmbeddedCredentials
		}
		if u.Host == "" && u.User == nil && (u.Path == "" || u.Path == "/") {
			return false, fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
		}
		return true, nil
	}

	for _, pair := range strings.Fields(connStr) {
		if key, _, ok := strings.Cut(pair, "="); ok && strings.EqualFold(strings.TrimSpace(key), "password") {
			return false, ErrEmbeddedCredentials
		}
	}
	return true, nil
}

func (s *PostgresSyncer) open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "SSL is not enabled on the server") {
			return fmt.Errorf("failed to connect to sync database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return fmt.Errorf("failed to connect to sync database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+constants.AppName); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	subFS, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	if _, err := migration.NewPostgresRunner(db, subFS).Apply(func(msg string) { logger.Info(msg) }); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.db = db
	return nil
}

func (s *PostgresSyncer) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Push upserts every habit, batch by batch. Each batch is its own transaction.
func (s *PostgresSyncer) Push(ctx context.Context, habits []models.Habit) error {
	if err := s.open(ctx); err != nil {
		return err
	}

	for _, batch := range Batches(habits, constants.SyncBatchSize) {
		if err := s.pushBatch(ctx, batch); err != nil {
			return err
		}
	}
	logger.Info("Pushed habits to cloud", "count", len(habits))
	return nil
}

func (s *PostgresSyncer) pushBatch(ctx context.Context, batch []models.Habit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin sync transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO habit_records (id, payload, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, h := range batch {
		payload, err := json.Marshal(TrimForSync(h, constants.SyncMaxCompletionDates))
		if err != nil {
			return fmt.Errorf("failed to encode habit %s: %w", h.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, h.ID, string(payload)); err != nil {
			return fmt.Errorf("failed to push habit %s: %w", h.ID, err)
		}
	}
	return tx.Commit()
}

// Pull returns every remote habit. Undecodable records are skipped.
func (s *PostgresSyncer) Pull(ctx context.Context) ([]models.Habit, error) {
	if err := s.open(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, payload FROM habit_records ORDER BY updated_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query remote habits: %w", err)
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var h models.Habit
		if err := json.Unmarshal([]byte(payload), &h); err != nil {
			logger.Warn("Skipping undecodable remote habit", "id", id, "error", err)
			continue
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// Batches splits habits into consecutive chunks of at most size.
func Batches(habits []models.Habit, size int) [][]models.Habit {
	if size < 1 {
		size = 1
	}
	var out [][]models.Habit
	for start := 0; start < len(habits); start += size {
		out = append(out, habits[start:min(start+size, len(habits))])
	}
	return out
}

// TrimForSync returns a copy of h holding only its limit most recent records,
// in their original order.
func TrimForSync(h models.Habit, limit int) models.Habit {
	c := h.Clone()
	if len(c.CompletionRecords) <= limit {
		return c
	}

	idx := make([]int, len(c.CompletionRecords))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return c.CompletionRecords[idx[a]].Date.After(c.CompletionRecords[idx[b]].Date)
	})
	keep := make(map[int]bool, limit)
	for _, i := range idx[:limit] {
		keep[i] = true
	}

	trimmed := make([]models.CompletionRecord, 0, limit)
	for i, rec := range c.CompletionRecords {
		if keep[i] {
			trimmed = append(trimmed, rec)
		}
	}
	c.CompletionRecords = trimmed
	return c
}
