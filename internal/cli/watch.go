package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/habita/internal/constants"
	"github.com/julianstephens/habita/internal/logger"
)

type WatchCmd struct {
	Interval time.Duration `help:"How often to check for due reminders." default:"${reminder_tick}"`
}

// Run delivers reminders until interrupted.
func (c *WatchCmd) Run(ctx *Context) (err error) {
	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	defer closeSession(sess, &err)

	interval := c.Interval
	if interval <= 0 {
		interval = constants.ReminderTickInterval
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reminders := sess.Dispatcher.Reminders().List()
	ctx.printf("Watching %d reminders, press Ctrl+C to stop\n", len(reminders))
	for _, r := range reminders {
		ctx.printf("  %s  %s\n", r.Time, r.Name)
	}
	logger.Info("Reminder watch started", "reminders", len(reminders), "interval", interval)

	sess.Dispatcher.Run(runCtx, interval, sess.Manager.Now)
	logger.Info("Reminder watch stopped")
	return nil
}
