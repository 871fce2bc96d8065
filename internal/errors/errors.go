package errors

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/julianstephens/habita/internal/logger"
)

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Advisory records the most recent failure of a best-effort collaborator
// (notifications, sync, file writes). It is reported to callers but never
// returned from the operation that triggered the collaborator.
type Advisory struct {
	mu   sync.RWMutex
	err  error
	when time.Time
}

// Record stores err as the latest failure and logs it. A nil err clears it.
func (a *Advisory) Record(source string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
	a.when = time.Now()
	if err != nil {
		logger.Warn("Background operation failed", "source", source, "error", err)
	}
}

// Last returns when the latest failure happened and the failure itself, or nil.
func (a *Advisory) Last() (time.Time, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.when, a.err
}
