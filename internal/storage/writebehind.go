package storage

import (
	"fmt"
	"sync"
	"time"

	apperrors "github.com/julianstephens/habita/internal/errors"
	"github.com/julianstephens/habita/internal/logger"
	"github.com/julianstephens/habita/internal/models"
)

// SnapshotFunc returns a consistent copy of the state to persist.
type SnapshotFunc func() ([]models.Habit, int)

// WriteBehind coalesces bursts of mutations into a single save. A save runs
// once the state has been quiet for the debounce interval, or immediately
// after maxPending unsaved mutations.
type WriteBehind struct {
	store      Provider
	snapshot   SnapshotFunc
	debounce   time.Duration
	maxPending int

	mu      sync.Mutex
	timer   *time.Timer
	pending int
	closed  bool

	saveMu   sync.Mutex
	inflight sync.WaitGroup
	advisory apperrors.Advisory
}

func NewWriteBehind(store Provider, snapshot SnapshotFunc, debounce time.Duration, maxPending int) *WriteBehind {
	if maxPending < 1 {
		maxPending = 1
	}
	return &WriteBehind{
		store:      store,
		snapshot:   snapshot,
		debounce:   debounce,
		maxPending: maxPending,
	}
}

// MarkDirty records one mutation. It never blocks on I/O.
func (w *WriteBehind) MarkDirty() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	w.pending++
	if w.pending >= w.maxPending || w.debounce <= 0 {
		w.stopTimerLocked()
		w.pending = 0
		w.inflight.Add(1)
		go func() {
			defer w.inflight.Done()
			_ = w.save()
		}()
		return
	}

	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.fire)
		return
	}
	w.timer.Stop()
	w.timer.Reset(w.debounce)
}

func (w *WriteBehind) fire() {
	w.mu.Lock()
	if w.closed || w.pending == 0 {
		w.mu.Unlock()
		return
	}
	w.pending = 0
	w.mu.Unlock()
	w.save()
}

func (w *WriteBehind) stopTimerLocked() {
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Flush saves synchronously, cancelling any pending debounced save.
func (w *WriteBehind) Flush() error {
	w.mu.Lock()
	w.stopTimerLocked()
	w.pending = 0
	w.mu.Unlock()
	return w.save()
}

// Close flushes outstanding state and stops accepting mutations.
func (w *WriteBehind) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.stopTimerLocked()
	w.pending = 0
	w.mu.Unlock()
	w.inflight.Wait()
	return w.save()
}

// LastError reports the most recent save failure, nil after a successful save.
func (w *WriteBehind) LastError() error {
	_, err := w.advisory.Last()
	return err
}

func (w *WriteBehind) save() error {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	habits, points := w.snapshot()
	err := w.store.SaveHabits(habits)
	if err == nil {
		err = w.store.SavePoints(points)
	}
	if err != nil {
		err = fmt.Errorf("failed to persist habits: %w", err)
	} else {
		logger.Debug("Persisted habits", "count", len(habits), "points", points)
	}
	w.advisory.Record("autosave", err)
	return err
}
