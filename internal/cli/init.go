package cli

import (
	"fmt"
	"os"
)

type InitCmd struct {
	Force bool `help:"Delete the existing database before initializing."`
	Demo  bool `help:"Seed the demo habits right away."`
}

func (c *InitCmd) Run(ctx *Context) error {
	path := ctx.Store.GetConfigPath()
	if c.Force {
		if _, err := os.Stat(path); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			ctx.printf("Deleted existing database at: %s\n", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.printf("Initialized habita storage at: %s\n", path)

	if c.Demo {
		sess, err := ctx.Open()
		if err != nil {
			return err
		}
		n := len(sess.Manager.Habits())
		if err := sess.Close(); err != nil {
			return err
		}
		if sess.Seeded {
			ctx.printf("Added %d demo habits\n", n)
		}
	}
	return nil
}
