package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/dentaldesk/dentaldesk-backend/pkg/config"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db"
	"github.com/dentaldesk/dentaldesk-backend/pkg/instance"
	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
	"github.com/dentaldesk/dentaldesk-backend/pkg/migrate"
)

const usage = `usage: migrate [flags] <up|down|status|version|to|create|validate> [arg]

  up          apply every pending migration
  down        roll back the latest migration
  status      list migrations and whether they are applied
  version     print the current schema version
  to VERSION  migrate up or down to VERSION (YYYYMMDDHHMMSS)
  create NAME write a new timestamped SQL migration into -dir
  validate    check goose annotations of every file in -dir
`

func main() {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dir := fs.String("dir", migrate.DefaultDir, "migrations directory; empty uses the embedded set")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, fs.Arg(0), fs.Arg(1), *dir); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd, arg, dir string) error {
	// create and validate only touch files.
	switch cmd {
	case "create":
		if arg == "" {
			return errors.New("create needs a migration name")
		}
		path, err := migrate.CreateSQLMigration(dir, arg)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(dir); err != nil {
			return err
		}
		fmt.Println("migrations valid")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Instance:    instance.GetID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": cmd, "dir": dir})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return err
	}
	m, err := migrate.New(sqlDB, dir)
	if err != nil {
		return err
	}

	var steps []migrate.Step
	switch cmd {
	case "up":
		steps, err = m.Up(ctx)
	case "down":
		steps, err = m.Down(ctx)
	case "to":
		steps, err = m.MigrateTo(ctx, arg)
	case "version":
		var v int64
		if v, err = m.Version(ctx); err == nil {
			fmt.Println(v)
		}
	case "status":
		err = printStatus(ctx, os.Stdout, m)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	for _, s := range steps {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":   s.Version,
			"file":      s.Path,
			"direction": s.Direction,
		}), "migration applied")
	}
	if err != nil {
		logg.Error(ctx, "migration command failed", err)
		return err
	}
	logg.Info(logg.WithField(ctx, "steps", len(steps)), "migration command completed")
	return nil
}

func printStatus(ctx context.Context, out io.Writer, m *migrate.Migrator) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, s := range status {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
	}
	return tw.Flush()
}
