// Package cloud pushes the habit set to a remote record store and pulls
// remote habits back for merging.
package cloud

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	apperrors "github.com/julianstephens/habita/internal/errors"
	"github.com/julianstephens/habita/internal/keyring"
	"github.com/julianstephens/habita/internal/models"
)

// EnvSyncURL overrides the keyring-stored connection string.
const EnvSyncURL = "HABITA_SYNC_URL"

var ErrNotConfigured = errors.New("cloud sync is not configured, set " + EnvSyncURL + " or store a connection string in the keyring")

type Syncer interface {
	Push(ctx context.Context, habits []models.Habit) error
	Pull(ctx context.Context) ([]models.Habit, error)
}

// CredentialSource is where a stored connection string comes from.
type CredentialSource interface {
	GetConnectionString() (string, error)
}

// ResolveConnString prefers an explicit value, then the environment, then the keyring.
func ResolveConnString(explicit string, creds CredentialSource) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(EnvSyncURL); env != "" {
		return env, nil
	}
	if creds == nil {
		return "", ErrNotConfigured
	}
	connStr, err := creds.GetConnectionString()
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotConfigured
	}
	return connStr, err
}

// Service runs syncs and keeps the outcome of the latest one as advisory state.
type Service struct {
	syncer Syncer

	mu       sync.RWMutex
	lastSync time.Time
	advisory apperrors.Advisory
	bg       sync.WaitGroup
}

func NewService(syncer Syncer) *Service {
	return &Service{syncer: syncer}
}

func (s *Service) Push(ctx context.Context, habits []models.Habit) error {
	err := s.syncer.Push(ctx, habits)
	s.record("cloud push", err)
	return err
}

// PushAsync starts a push without waiting for it. Failures only show up in LastError.
func (s *Service) PushAsync(habits []models.Habit) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		_ = s.Push(context.Background(), habits)
	}()
}

// Pull fetches remote habits and hands them to merge, returning how many were added.
func (s *Service) Pull(ctx context.Context, merge func([]models.Habit) int) (int, error) {
	habits, err := s.syncer.Pull(ctx)
	s.record("cloud pull", err)
	if err != nil {
		return 0, err
	}
	return merge(habits), nil
}

func (s *Service) record(source string, err error) {
	s.advisory.Record(source, err)
	if err == nil {
		s.mu.Lock()
		s.lastSync = time.Now()
		s.mu.Unlock()
	}
}

// LastSync is the time of the latest successful sync, zero if none.
func (s *Service) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

func (s *Service) LastError() error {
	_, err := s.advisory.Last()
	return err
}

// Wait blocks until background pushes have finished.
func (s *Service) Wait() {
	s.bg.Wait()
}
