package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/julianstephens/habita/internal/backup"
	"github.com/julianstephens/habita/internal/constants"
	"github.com/julianstephens/habita/internal/keyring"
	"github.com/julianstephens/habita/internal/notifier"
	"github.com/julianstephens/habita/internal/storage"
	"github.com/julianstephens/habita/internal/utils"
	"github.com/julianstephens/habita/internal/validation"
)

type DoctorCmd struct{}

type check struct {
	name string
	// warnOnly checks never fail the run.
	warnOnly bool
	run      func(*Context) error
}

var doctorChecks = []check{
	{name: "Database reachable", run: checkDBReachable},
	{name: "Schema version", run: checkSchemaVersion},
	{name: "Data validation", run: checkValidation},
	{name: "Clock/timezone", run: checkClockTimezone},
	{name: "Backups present", warnOnly: true, run: checkBackupsPresent},
	{name: "OS keyring", warnOnly: true, run: checkKeyring},
	{name: "Tray app", warnOnly: true, run: checkTray},
}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	failed := false
	reachable := true
	for _, c := range doctorChecks {
		if !reachable && c.name == "Data validation" {
			ctx.printf("%s %s: SKIPPED (database not reachable)\n", mutedStyle.Render("⊘"), c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.printf("%s %s: OK\n", okStyle.Render("✓"), c.name)
		case c.warnOnly:
			ctx.printf("%s %s: WARNING\n", warningStyle.Render("⚠"), c.name)
			ctx.printf("   %v\n", err)
		default:
			ctx.printf("%s %s: FAIL\n", dangerStyle.Render("✗"), c.name)
			ctx.printf("   Error: %v\n", err)
			failed = true
			if c.name == "Database reachable" {
				reachable = false
			}
		}
	}

	ctx.println()
	if failed {
		ctx.println("Diagnostics completed with errors.")
		return errors.New("one or more health checks failed")
	}
	ctx.println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if s, ok := ctx.Store.(*storage.SQLiteStore); ok {
		db := s.GetDB()
		if db == nil {
			return errors.New("database connection is nil")
		}
		var one int
		if err := db.QueryRow("SELECT 1").Scan(&one); err != nil {
			return fmt.Errorf("failed to query database: %w", err)
		}
	}
	return nil
}

func checkSchemaVersion(ctx *Context) error {
	s, ok := ctx.Store.(*storage.SQLiteStore)
	if !ok {
		return nil
	}
	current, latest, err := s.SchemaVersions()
	if err != nil {
		return err
	}
	switch {
	case current > latest:
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	case current < latest:
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

func checkValidation(ctx *Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	loc, err := utils.LoadLocation(ctx.cfg().TimezoneOr(settings.Timezone))
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	list, err := ctx.Store.LoadHabits()
	if err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}
	if points, err := ctx.Store.LoadPoints(); err != nil {
		return fmt.Errorf("failed to load points: %w", err)
	} else if points < 0 {
		return fmt.Errorf("point total is negative: %d", points)
	}

	result := validation.New(loc).ValidateHabits(list)
	if result.HasConflicts() {
		return fmt.Errorf("%d conflicts found, run 'habita validate' for details", len(result.Conflicts))
	}
	return nil
}

func checkClockTimezone(ctx *Context) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	tz := ctx.cfg().Timezone
	if tz != "" && !utils.ValidateTimezone(tz) {
		return fmt.Errorf("configured timezone %q is not a valid IANA name", tz)
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	if _, ok := ctx.Store.(*storage.SQLiteStore); !ok {
		return nil
	}
	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return errors.New("no backups found, consider creating one with 'habita backup create'")
	}
	return nil
}

func checkKeyring(ctx *Context) error {
	if !keyring.IsAvailable() {
		return errors.New("cloud sync credentials cannot be stored, use HABITA_SYNC_URL instead")
	}
	return nil
}

func checkTray(ctx *Context) error {
	if !ctx.cfg().TrayEnabled() {
		return nil
	}
	dir, err := notifier.GetTrayAppConfigDir()
	if err != nil {
		return err
	}
	if !fileExists(filepath.Join(dir, constants.NotifierLockfileName)) {
		return errors.New("habita-tray is not running, desktop notifications will be skipped")
	}
	return nil
}
