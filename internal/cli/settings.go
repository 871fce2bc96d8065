package cli

import (
	"errors"
	"fmt"

	"github.com/julianstephens/habita/internal/utils"
)

type SettingsCmd struct {
	Timezone      *string `help:"IANA timezone used for calendar days, e.g. Europe/Berlin."`
	Notifications *bool   `help:"Enable or disable notifications." negatable:""`
	AutosaveMs    *int    `name:"autosave-ms" help:"Autosave debounce in milliseconds."`
}

func (c *SettingsCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	changed := false
	if c.Timezone != nil {
		if !utils.ValidateTimezone(*c.Timezone) {
			return fmt.Errorf("invalid timezone %q", *c.Timezone)
		}
		settings.Timezone = *c.Timezone
		changed = true
	}
	if c.Notifications != nil {
		settings.NotificationsEnabled = *c.Notifications
		changed = true
	}
	if c.AutosaveMs != nil {
		if *c.AutosaveMs < 0 {
			return errors.New("autosave debounce cannot be negative")
		}
		settings.AutosaveDebounceMs = *c.AutosaveMs
		changed = true
	}

	if changed {
		if err := ctx.Store.SaveSettings(settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		ctx.printf("%s Settings saved\n", okStyle.Render("✓"))
	}

	ctx.println(titleStyle.Render("Settings"))
	ctx.printf("  Timezone:       %s\n", settings.Timezone)
	ctx.printf("  Notifications:  %t\n", settings.NotificationsEnabled)
	ctx.printf("  Autosave:       %d ms\n", settings.AutosaveDebounceMs)
	if tz := ctx.cfg().Timezone; tz != "" && tz != settings.Timezone {
		ctx.println(mutedStyle.Render(fmt.Sprintf("  (timezone %s from config overrides the stored value)", tz)))
	}
	return nil
}
