package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/julianstephens/habita/internal/cloud"
	"github.com/julianstephens/habita/internal/keyring"
	"github.com/julianstephens/habita/internal/logger"
	"github.com/julianstephens/habita/internal/models"
)

// newSyncer is swapped in tests.
var newSyncer = func(connStr string) (cloud.Syncer, error) {
	return cloud.NewPostgresSyncer(connStr)
}

type SyncCmd struct {
	Push    SyncPushCmd    `cmd:"" help:"Upload every habit to the sync database."`
	Pull    SyncPullCmd    `cmd:"" help:"Merge habits from the sync database."`
	Keyring SyncKeyringCmd `cmd:"" help:"Manage the sync connection string in the OS keyring."`
}

func (c *Context) syncService() (*cloud.Service, func(), error) {
	cfg := c.cfg()
	connStr, err := cloud.ResolveConnString(cfg.Sync.URL, keyring.New(cfg.Sync.KeyringUser))
	if err != nil {
		return nil, nil, err
	}
	syncer, err := newSyncer(connStr)
	if err != nil {
		return nil, nil, err
	}
	done := func() {
		if c, ok := syncer.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn("Failed to close sync connection", "error", err)
			}
		}
	}
	return cloud.NewService(syncer), done, nil
}

type SyncPushCmd struct{}

func (c *SyncPushCmd) Run(ctx *Context) (err error) {
	svc, done, err := ctx.syncService()
	if err != nil {
		return err
	}
	defer done()

	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	defer closeSession(sess, &err)

	list := sess.Manager.Habits()
	if err := svc.Push(context.Background(), list); err != nil {
		return fmt.Errorf("sync push failed: %w", err)
	}
	ctx.printf("%s Pushed %d habits\n", okStyle.Render("✓"), len(list))
	return nil
}

type SyncPullCmd struct{}

func (c *SyncPullCmd) Run(ctx *Context) (err error) {
	svc, done, err := ctx.syncService()
	if err != nil {
		return err
	}
	defer done()

	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	defer closeSession(sess, &err)

	added, err := svc.Pull(context.Background(), func(remote []models.Habit) int {
		n := sess.Manager.Merge(remote)
		sess.Manager.RecomputeStreaks()
		return n
	})
	if err != nil {
		return fmt.Errorf("sync pull failed: %w", err)
	}
	ctx.printf("%s Pulled %d new habits\n", okStyle.Render("✓"), added)
	return nil
}

type SyncKeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store the connection string."`
	Get    KeyringGetCmd    `cmd:"" help:"Show the stored connection string."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
	Status KeyringStatusCmd `cmd:"" help:"Check keyring availability."`
}

type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string without a password."`
}

func (cmd *KeyringSetCmd) Run(ctx *Context) error {
	if _, err := cloud.ValidateConnString(cmd.ConnectionString); err != nil {
		if errors.Is(err, cloud.ErrEmbeddedCredentials) {
			return errors.New("connection string contains a password, keep it in ~/.pgpass or PGPASSWORD instead")
		}
		return err
	}
	if err := keyring.New(ctx.cfg().Sync.KeyringUser).SetConnectionString(cmd.ConnectionString); err != nil {
		return err
	}
	ctx.printf("%s Connection string stored in OS keyring\n", okStyle.Render("✓"))
	return nil
}

type KeyringGetCmd struct{}

func (cmd *KeyringGetCmd) Run(ctx *Context) error {
	connStr, err := keyring.New(ctx.cfg().Sync.KeyringUser).GetConnectionString()
	if errors.Is(err, keyring.ErrNotFound) {
		return errors.New("no connection string found in keyring, use 'habita sync keyring set' to store one")
	}
	if err != nil {
		return err
	}
	ctx.println(maskPassword(connStr))
	return nil
}

type KeyringDeleteCmd struct{}

func (cmd *KeyringDeleteCmd) Run(ctx *Context) error {
	err := keyring.New(ctx.cfg().Sync.KeyringUser).DeleteConnectionString()
	if errors.Is(err, keyring.ErrNotFound) {
		return errors.New("no connection string found in keyring")
	}
	if err != nil {
		return err
	}
	ctx.printf("%s Connection string deleted from OS keyring\n", okStyle.Render("✓"))
	return nil
}

type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *Context) error {
	if !keyring.IsAvailable() {
		ctx.println(dangerStyle.Render("OS keyring is not available on this system"))
		return keyring.ErrKeyringUnavailable
	}
	ctx.printf("%s OS keyring is available\n", okStyle.Render("✓"))

	_, err := keyring.New(ctx.cfg().Sync.KeyringUser).GetConnectionString()
	switch {
	case err == nil:
		ctx.printf("%s Connection string is stored\n", okStyle.Render("✓"))
	case errors.Is(err, keyring.ErrNotFound):
		ctx.println("No connection string stored")
	default:
		return err
	}
	return nil
}

// maskPassword hides any password a stored connection string still carries.
func maskPassword(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		idx := strings.Index(connStr, "://")
		rest := connStr[idx+3:]
		if at := strings.LastIndex(rest, "@"); at != -1 {
			if colon := strings.Index(rest[:at], ":"); colon != -1 {
				return connStr[:idx+3] + rest[:colon] + ":****" + rest[at:]
			}
		}
		return connStr
	}

	fields := strings.Fields(connStr)
	for i, f := range fields {
		if strings.HasPrefix(strings.ToLower(f), "password=") {
			fields[i] = "password=****"
		}
	}
	return strings.Join(fields, " ")
}
