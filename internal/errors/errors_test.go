package errors

import (
	"errors"
	"sync"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, ""},
		{"simple error", errors.New("something went wrong"), "Error: something went wrong"},
		{"wrapped error", errors.New("sync push: connection refused"), "Error: sync push: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := Format(tt.err); result != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestAdvisory(t *testing.T) {
	var a Advisory
	if _, err := a.Last(); err != nil {
		t.Fatalf("expected no error initially, got %v", err)
	}

	boom := errors.New("push failed")
	a.Record("sync", boom)
	when, err := a.Last()
	if !errors.Is(err, boom) || when.IsZero() {
		t.Errorf("unexpected advisory state: %v at %v", err, when)
	}

	a.Record("sync", nil)
	if _, err := a.Last(); err != nil {
		t.Errorf("expected cleared error, got %v", err)
	}
}

func TestAdvisoryConcurrentAccess(t *testing.T) {
	var a Advisory
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.Record("notify", errors.New("x"))
		}()
		go func() {
			defer wg.Done()
			_, _ = a.Last()
		}()
	}
	wg.Wait()
}
