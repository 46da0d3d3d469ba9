package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/opsdash/purchasing/internal/infrastructure/config"
	"github.com/opsdash/purchasing/internal/infrastructure/logger"
	"github.com/opsdash/purchasing/internal/infrastructure/migration"
	"github.com/opsdash/purchasing/migrations"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

// runtime carries what the Before hook prepares for every command
type runtime struct {
	log *zap.Logger
}

func main() {
	rt := &runtime{log: zap.NewNop()}

	pathFlag := &cli.StringFlag{
		Name:    "path",
		Usage:   "Read migrations from this directory instead of the ones embedded in the binary",
		EnvVars: []string{"PO_MIGRATIONS_PATH"},
	}

	app := &cli.App{
		Name:  "migrate",
		Usage: "Manage the purchasing database schema",
		Flags: []cli.Flag{
			pathFlag,
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: "info",
			},
		},
		Before: func(c *cli.Context) error {
			log, err := logger.New(logger.Config{
				Level:      c.String("log-level"),
				Format:     "console",
				Output:     "stdout",
				TimeFormat: "2006-01-02 15:04:05",
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			rt.log = log
			return nil
		},
		After: func(*cli.Context) error {
			_ = rt.log.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: rt.withMigrator(func(_ *cli.Context, m *migration.Migrator) error {
					return m.Up()
				}),
			},
			{
				Name:  "down",
				Usage: "Roll back every migration",
				Action: rt.withMigrator(func(_ *cli.Context, m *migration.Migrator) error {
					return m.Down()
				}),
			},
			{
				Name:      "steps",
				Usage:     "Apply n migrations, or roll back when n is negative (pass -- before a negative n)",
				ArgsUsage: "[--] <n>",
				Action: rt.withMigrator(func(c *cli.Context, m *migration.Migrator) error {
					n, err := intArg(c, "n")
					if err != nil {
						return err
					}
					return m.Steps(n)
				}),
			},
			{
				Name:      "goto",
				Usage:     "Migrate up or down to a specific version",
				ArgsUsage: "<version>",
				Action: rt.withMigrator(func(c *cli.Context, m *migration.Migrator) error {
					v, err := intArg(c, "version")
					if err != nil {
						return err
					}
					if v < 1 {
						return errors.New("version must be positive")
					}
					return m.GoTo(uint(v))
				}),
			},
			{
				Name:    "version",
				Aliases: []string{"status"},
				Usage:   "Show the recorded schema version",
				Action: rt.withMigrator(func(_ *cli.Context, m *migration.Migrator) error {
					st, err := m.Status()
					if err != nil {
						return err
					}
					if !st.Applied {
						rt.log.Info("No migrations applied")
						return nil
					}
					rt.log.Info("Current migration version",
						zap.Uint("version", st.Version),
						zap.Bool("dirty", st.Dirty),
					)
					return nil
				}),
			},
			{
				Name:      "force",
				Usage:     "Record a version without running migrations, clearing the dirty flag",
				ArgsUsage: "<version>",
				Action: rt.withMigrator(func(c *cli.Context, m *migration.Migrator) error {
					v, err := intArg(c, "version")
					if err != nil {
						return err
					}
					return m.Force(v)
				}),
			},
			{
				Name:      "create",
				Usage:     "Create a new pair of migration files",
				ArgsUsage: "<name> [description]",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return errors.New("migration name required")
					}
					configured := ""
					if cfg, err := config.Load(); err == nil {
						configured = cfg.Database.MigrationsPath
					}
					dir, err := filepath.Abs(firstNonEmpty(c.String("path"), configured, defaultMigrationsDir))
					if err != nil {
						return err
					}
					mf, err := migration.CreateMigration(dir, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					rt.log.Info("Migration created",
						zap.Uint("version", mf.Version),
						zap.String("up_file", mf.UpPath),
						zap.String("down_file", mf.DownPath),
					)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List the available migrations",
				Action: func(c *cli.Context) error {
					var (
						infos []migration.MigrationInfo
						err   error
					)
					if dir := c.String("path"); dir != "" {
						infos, err = migration.ListMigrations(dir)
					} else {
						infos, err = migration.ListMigrationsFS(migrations.FS, ".")
					}
					if err != nil {
						return err
					}
					if len(infos) == 0 {
						rt.log.Info("No migrations found")
						return nil
					}
					for _, info := range infos {
						fmt.Printf("%s  up:%t down:%t\n", info.Base(), info.HasUp, info.HasDown)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

// withMigrator opens the configured database and a Migrator around it for
// the duration of one command
func (rt *runtime) withMigrator(fn func(*cli.Context, *migration.Migrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.Database.Driver != "postgres" {
			return fmt.Errorf("SQL migrations target postgres; the %s driver creates its schema on server start", cfg.Database.Driver)
		}

		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(c.Context); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		var m *migration.Migrator
		if dir := c.String("path"); dir != "" {
			abs, err := filepath.Abs(dir)
			if err != nil {
				_ = db.Close()
				return err
			}
			rt.log.Info("Using migrations from disk", zap.String("path", abs))
			m, err = migration.New(db, abs, rt.log)
			if err != nil {
				_ = db.Close()
				return err
			}
		} else {
			m, err = migration.NewEmbedded(db, migrations.FS, ".", rt.log)
			if err != nil {
				_ = db.Close()
				return err
			}
		}
		// Closing the migrator also closes db.
		defer func() {
			if err := m.Close(); err != nil {
				rt.log.Warn("Failed to close migrator", zap.Error(err))
			}
		}()

		return fn(c, m)
	}
}

func intArg(c *cli.Context, name string) (int, error) {
	if c.NArg() < 1 {
		return 0, fmt.Errorf("missing <%s> argument", name)
	}
	n, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return 0, fmt.Errorf("invalid <%s> %q: %w", name, c.Args().First(), err)
	}
	return n, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
