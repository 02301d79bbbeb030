package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/cli"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/engine"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/keyring"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/logger"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/notifier"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/regimenconfig"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/storage"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Data file path, a PostgreSQL connection string (no embedded password), or 'keyring' to read the connection string from the OS keyring." type:"path" default:"~/.config/embermate/embermate.db"`
	Regimen string `help:"Regimen config file (YAML)." type:"path" default:"~/.config/embermate/regimen.yaml"`
	Debug   bool   `help:"Enable debug logging to stderr."`

	Init     cli.InitCmd     `cmd:"" help:"Initialize embermate storage."`
	Tui      cli.TuiCmd      `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Day      cli.DayCmd      `cmd:"" help:"Show the schedule for a day."`
	Sync     cli.SyncCmd     `cmd:"" help:"Sync the plan catalog with the regimen config."`
	Complete cli.CompleteCmd `cmd:"" help:"Mark an instance completed."`
	Skip     cli.SkipCmd     `cmd:"" help:"Mark an instance skipped."`
	Snooze   cli.SnoozeCmd   `cmd:"" help:"Snooze an instance."`
	Item     struct {
		Add        cli.ItemAddCmd        `cmd:"" help:"Add a plan item."`
		List       cli.ItemListCmd       `cmd:"" help:"List plan items."`
		Deactivate cli.ItemDeactivateCmd `cmd:"" help:"Deactivate a plan item (keeps history)."`
		Delete     cli.ItemDeleteCmd     `cmd:"" help:"Delete a plan item permanently."`
	} `cmd:"" help:"Manage plan items."`
	Appt struct {
		Add    cli.ApptAddCmd    `cmd:"" help:"Add an appointment."`
		List   cli.ApptListCmd   `cmd:"" help:"List appointments."`
		Done   cli.ApptDoneCmd   `cmd:"" help:"Mark an appointment done."`
		Cancel cli.ApptCancelCmd `cmd:"" help:"Cancel an appointment."`
	} `cmd:"" help:"Manage appointments."`
	Settings struct {
		Show cli.SettingsShowCmd `cmd:"" help:"Show settings." default:"1"`
		Set  cli.SettingsSetCmd  `cmd:"" help:"Change a setting."`
	} `cmd:"" help:"Manage settings."`
	Backup struct {
		Create  cli.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    cli.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore cli.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage data backups."`
	Validate cli.ValidateCmd `cmd:"" help:"Validate the plan catalog."`
	Doctor   cli.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	DB       struct {
		SetConnection    cli.DBSetConnectionCmd    `cmd:"" name:"set-connection" help:"Store a PostgreSQL connection string in the OS keyring."`
		ShowConnection   cli.DBShowConnectionCmd   `cmd:"" name:"show-connection" help:"Show the stored connection string."`
		DeleteConnection cli.DBDeleteConnectionCmd `cmd:"" name:"delete-connection" help:"Delete the stored connection string."`
	} `cmd:"" help:"Manage database credentials."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("embermate"),
		kong.Description("Care regimen scheduler and daily companion"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": "v0.3.0"},
	)

	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: configDir(),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}

	store, err := selectStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	eng := engine.New(store,
		engine.WithConfigSource(regimenconfig.NewSource(CLI.Regimen)),
		engine.WithNotifier(notifier.New()),
	)

	appCtx := &cli.Context{
		Store:  store,
		Engine: eng,
		Debug:  CLI.Debug,
	}

	// Init handles its own setup; everything else needs a loaded store.
	if ctx.Selected() != nil && ctx.Selected().Name != "init" {
		if err := store.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func configDir() string {
	if storage.IsPostgresDSN(CLI.Config) || CLI.Config == "keyring" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		return filepath.Join(home, ".config", "embermate")
	}
	return filepath.Dir(CLI.Config)
}

func selectStore() (storage.Provider, error) {
	switch {
	case CLI.Config == "keyring":
		connStr, err := keyring.GetConnectionString()
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return nil, fmt.Errorf("no connection string in keyring; run 'embermate db set-connection' first")
			}
			return nil, err
		}
		return storage.NewPostgresStore(connStr), nil

	case storage.IsPostgresDSN(CLI.Config):
		if storage.HasEmbeddedCredentials(CLI.Config) {
			return nil, fmt.Errorf("connection strings with embedded passwords are not allowed; store it with 'embermate db set-connection' and pass --config keyring")
		}
		return storage.NewPostgresStore(CLI.Config), nil

	case strings.HasSuffix(CLI.Config, ".json"):
		return storage.NewJSONStore(CLI.Config), nil

	default:
		return storage.NewSQLiteStore(CLI.Config), nil
	}
}
