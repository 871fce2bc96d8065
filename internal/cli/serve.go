package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/habita/internal/constants"
	"github.com/julianstephens/habita/internal/server"
)

type ServeCmd struct {
	Addr      string `help:"Listen address (default from config)."`
	Reminders bool   `help:"Also deliver due reminders while serving." default:"true" negatable:""`
}

func (c *ServeCmd) Run(ctx *Context) (err error) {
	cfg := ctx.cfg()
	addr := c.Addr
	if addr == "" {
		addr = cfg.API.Addr
	}

	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	defer closeSession(sess, &err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Reminders {
		go sess.Dispatcher.Run(runCtx, constants.ReminderTickInterval, sess.Manager.Now)
	}

	if cfg.API.JWTSecret == "" {
		ctx.println(warningStyle.Render("api.jwt_secret is not set, the API is unauthenticated"))
	}
	ctx.printf("Serving habita API on %s\n", addr)

	app := server.New(sess.Manager, server.Config{JWTSecret: cfg.API.JWTSecret})
	return server.Serve(runCtx, app, addr)
}

type TokenCmd struct {
	Subject string        `help:"Token subject." default:"cli"`
	TTL     time.Duration `help:"Token lifetime." default:"720h"`
}

// Run prints a bearer token for the API.
func (c *TokenCmd) Run(ctx *Context) error {
	secret := ctx.cfg().API.JWTSecret
	if secret == "" {
		return errors.New("set api.jwt_secret or HABITA_JWT_SECRET first")
	}
	token, err := server.IssueToken(secret, c.Subject, c.TTL)
	if err != nil {
		return err
	}
	ctx.println(token)
	return nil
}
