// Package notifier schedules habit reminders and delivers reminder and
// milestone messages through the configured transports.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habita/internal/constants"
	"github.com/julianstephens/habita/internal/logger"
)

// Message is a single notification.
type Message struct {
	Title string
	Body  string
	Tag   string
}

// Transport delivers a message to one notification channel.
type Transport interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Dispatcher keeps the reminder schedule and fans messages out to every
// transport, retrying each one a few times.
type Dispatcher struct {
	reminders  *Reminders
	transports []Transport
	enabled    bool
	retryDelay time.Duration
	timeout    time.Duration
}

func New(enabled bool, transports ...Transport) *Dispatcher {
	return &Dispatcher{
		reminders:  NewReminders(),
		transports: transports,
		enabled:    enabled,
		retryDelay: constants.NotifyRetryDelay,
		timeout:    10 * time.Second,
	}
}

func (d *Dispatcher) Reminders() *Reminders {
	return d.reminders
}

func (d *Dispatcher) ScheduleReminder(habitID, name, hhmm string) error {
	return d.reminders.Set(habitID, name, hhmm)
}

func (d *Dispatcher) CancelReminder(habitID string) error {
	d.reminders.Remove(habitID)
	return nil
}

func (d *Dispatcher) SendMilestone(habitName string, streak int) error {
	return d.Broadcast(context.Background(), Message{
		Title: "Streak milestone",
		Body:  fmt.Sprintf("%s: %d days in a row! Keep it up!", habitName, streak),
		Tag:   "milestone",
	})
}

// Broadcast sends msg through every transport. It fails only when no
// transport delivered it.
func (d *Dispatcher) Broadcast(ctx context.Context, msg Message) error {
	if !d.enabled || len(d.transports) == 0 {
		logger.Debug("Notifications disabled, dropping message", "title", msg.Title)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var errs []error
	for _, t := range d.transports {
		if err := d.sendWithRetry(ctx, t, msg); err != nil {
			logger.Warn("Notification transport failed", "transport", t.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
		}
	}
	if len(errs) == len(d.transports) {
		return errors.Join(errs...)
	}
	return nil
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, t Transport, msg Message) error {
	var err error
	for attempt := 1; attempt <= constants.NotifyMaxRetries; attempt++ {
		if err = t.Send(ctx, msg); err == nil {
			return nil
		}
		if errors.Is(err, ErrTrayNotRunning) || attempt == constants.NotifyMaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.retryDelay):
		}
	}
	return err
}

// FireDue sends a reminder message for every reminder due at now and returns
// how many were delivered.
func (d *Dispatcher) FireDue(ctx context.Context, now time.Time) int {
	sent := 0
	for _, rem := range d.reminders.Due(now) {
		err := d.Broadcast(ctx, Message{
			Title: "Habit reminder",
			Body:  fmt.Sprintf("Time for %s", rem.Name),
			Tag:   "reminder-" + rem.HabitID,
		})
		if err != nil {
			logger.Warn("Failed to deliver reminder", "habit", rem.HabitID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// Run fires due reminders on every tick until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration, now func() time.Time) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.FireDue(ctx, now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.FireDue(ctx, now())
		}
	}
}
