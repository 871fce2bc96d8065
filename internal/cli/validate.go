package cli

import (
	"fmt"

	"github.com/julianstephens/habita/internal/utils"
	"github.com/julianstephens/habita/internal/validation"
)

type ValidateCmd struct{}

func (cmd *ValidateCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load storage: %w", err)
	}
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	loc, err := utils.LoadLocation(ctx.cfg().TimezoneOr(settings.Timezone))
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	list, err := ctx.Store.LoadHabits()
	if err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}

	ctx.printf("Validating %d habits...\n\n", len(list))
	result := validation.New(loc).ValidateHabits(list)
	if result.HasConflicts() {
		ctx.println(warningStyle.Render(result.FormatReport()))
		return nil
	}
	ctx.println(okStyle.Render(result.FormatReport()))
	return nil
}
