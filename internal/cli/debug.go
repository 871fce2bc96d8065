package cli

import (
	"encoding/json"
	"fmt"
)

type DebugCmd struct {
	DBPath    DebugDBPathCmd    `cmd:"" name:"db-path" help:"Show database path."`
	DumpHabit DebugDumpHabitCmd `cmd:"" help:"Dump a habit as JSON."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *Context) error {
	return writeJSON(ctx, map[string]string{"path": ctx.Store.GetConfigPath()})
}

type DebugDumpHabitCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (cmd *DebugDumpHabitCmd) Run(ctx *Context) (err error) {
	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	defer closeSession(sess, &err)

	h, err := findHabit(sess.Manager, cmd.Habit)
	if err != nil {
		return err
	}
	return writeJSON(ctx, h)
}

func writeJSON(ctx *Context, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	ctx.println(string(b))
	return nil
}
