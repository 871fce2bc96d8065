package main

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/habita/internal/cli"
	"github.com/julianstephens/habita/internal/config"
	"github.com/julianstephens/habita/internal/constants"
	apperrors "github.com/julianstephens/habita/internal/errors"
	"github.com/julianstephens/habita/internal/logger"
	"github.com/julianstephens/habita/internal/storage"
)

var CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Database path (.db for SQLite, .json for a JSON document)." env:"HABITA_CONFIG" type:"path" default:"~/.config/habita/habita.db"`
	Settings string `help:"YAML settings file." env:"HABITA_SETTINGS" type:"path" default:"~/.config/habita/config.yaml"`
	EnvFile  string `help:"Optional .env file with HABITA_* overrides." type:"path" default:".env"`
	Debug    bool   `help:"Enable debug logging to stderr."`

	Init     cli.InitCmd     `cmd:"" help:"Initialize habita storage."`
	Habit    cli.HabitCmd    `cmd:"" help:"Manage habits."`
	Level    cli.LevelCmd    `cmd:"" help:"Show points and level."`
	Export   cli.ExportCmd   `cmd:"" help:"Export habits to a JSON file."`
	Import   cli.ImportCmd   `cmd:"" help:"Import habits from a JSON export."`
	Sync     cli.SyncCmd     `cmd:"" help:"Synchronize habits with a PostgreSQL database."`
	Backup   cli.BackupCmd   `cmd:"" help:"Manage database backups."`
	Watch    cli.WatchCmd    `cmd:"" help:"Deliver habit reminders until interrupted."`
	Serve    cli.ServeCmd    `cmd:"" help:"Serve the HTTP API."`
	Token    cli.TokenCmd    `cmd:"" help:"Issue an API bearer token."`
	Prefs    cli.SettingsCmd `cmd:"" name:"settings" help:"Show or change stored settings."`
	Doctor   cli.DoctorCmd   `cmd:"" help:"Run health checks."`
	Validate cli.ValidateCmd `cmd:"" help:"Check stored habits for conflicts."`
	Tools    cli.DebugCmd    `cmd:"" name:"debug" help:"Debugging helpers."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracker with streaks, points and levels"),
		kong.UsageOnError(),
		kong.Vars{
			"version":       constants.Version,
			"max_pages":     strconv.Itoa(constants.MaxPages),
			"reminder_tick": constants.ReminderTickInterval.String(),
		},
	)

	command := ctx.Command()
	longRunning := strings.HasPrefix(command, "serve") || strings.HasPrefix(command, "watch")
	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: filepath.Dir(CLI.Config),
		Stderr:    longRunning,
	}); err != nil {
		apperrors.Fatal(err)
	}

	cfg, err := config.Load(CLI.Settings, CLI.EnvFile)
	if err != nil {
		apperrors.Fatal(err)
	}

	store := storage.New(CLI.Config)
	defer store.Close()

	err = ctx.Run(&cli.Context{
		Store:  store,
		Config: cfg,
	})
	if err != nil {
		store.Close()
		apperrors.Fatal(err)
	}
}
