package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/gearstage-backend/pkg/config"
	"github.com/angelmondragon/gearstage-backend/pkg/db"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
	"github.com/angelmondragon/gearstage-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

type command struct {
	help  string
	needs string // extra flag the command requires
	// offline commands never open the database
	offline func(opts options) error
	online  func(ctx context.Context, sqlDB *sql.DB, opts options) error
}

var commands = map[string]command{
	"up": {
		help: "apply all pending migrations",
		online: func(ctx context.Context, sqlDB *sql.DB, opts options) error {
			return migrate.Run(ctx, sqlDB, opts.dir, "up")
		},
	},
	"down": {
		help: "roll back the most recent migration",
		online: func(ctx context.Context, sqlDB *sql.DB, opts options) error {
			return migrate.Run(ctx, sqlDB, opts.dir, "down")
		},
	},
	"status": {
		help: "print applied and pending migrations",
		online: func(ctx context.Context, sqlDB *sql.DB, opts options) error {
			return migrate.Run(ctx, sqlDB, opts.dir, "status")
		},
	},
	"version": {
		help:  "migrate up or down to -version",
		needs: "version",
		online: func(ctx context.Context, sqlDB *sql.DB, opts options) error {
			return migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
		},
	},
	"create": {
		help:  "scaffold a new migration named -name (create_<table> gets a table skeleton)",
		needs: "name",
		offline: func(opts options) error {
			path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
			if err != nil {
				return err
			}
			fmt.Println("created migration:", path)
			return nil
		},
	},
	"validate": {
		help: "check filenames, Up/Down sections and table rollbacks",
		offline: func(opts options) error {
			if err := migrate.ValidateDir(opts.dir); err != nil {
				return err
			}
			fmt.Println("migration validation passed")
			return nil
		},
	},
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "gearstage schema migrations (goose, postgres)")
	fmt.Fprintln(out, "\nusage: migrate -cmd <command> [flags]\n\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-9s %s\n", name, commands[name].help)
	}
	fmt.Fprintln(out, "\nflags:")
	flag.PrintDefaults()
}

func main() {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmdName := flag.String("cmd", "up", "migration command, see list above")
	var opts options
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Usage = usage
	flag.Parse()

	cmd, ok := commands[*cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown -cmd value: %s\n\n", *cmdName)
		usage()
		os.Exit(2)
	}
	if (cmd.needs == "name" && opts.name == "") || (cmd.needs == "version" && opts.version == "") {
		fmt.Fprintf(os.Stderr, "missing -%s for %s\n", cmd.needs, *cmdName)
		os.Exit(2)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmdName,
		"dir": opts.dir,
	})

	if cmd.offline != nil {
		logg.Info(ctx, "migrate ready")
		if err := cmd.offline(opts); err != nil {
			fmt.Fprintf(os.Stderr, "%s failed: %v\n", *cmdName, err)
			os.Exit(1)
		}
		return
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	logg.Info(ctx, "migrate ready")

	if err := cmd.online(ctx, sqlDB, opts); err != nil {
		logg.Error(ctx, "migration command failed", err)
		// os.Exit skips the deferred Close
		_ = dbClient.Close()
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
