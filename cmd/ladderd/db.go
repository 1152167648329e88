package main

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	eventsmigrations "github.com/pyramid-league/ladder-server/app/modules/events/infrastructure/repositories/migrations"
	matchmigrations "github.com/pyramid-league/ladder-server/app/modules/match/infrastructure/repositories/migrations"
	seasonmigrations "github.com/pyramid-league/ladder-server/app/modules/season/infrastructure/repositories/migrations"
	standingsmigrations "github.com/pyramid-league/ladder-server/app/modules/standings/infrastructure/repositories/migrations"
	"github.com/pyramid-league/ladder-server/config"
)

func newDBCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withMigrators(func(c *cli.Context, migrators map[string]*migrate.Migrator) error {
					for moduleName, migrator := range migrators {
						fmt.Printf("Initializing migrations for module: %s\n", moduleName)
						if err := migrator.Init(c.Context); err != nil {
							return err
						}
					}
					return nil
				}),
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: withMigrators(func(c *cli.Context, migrators map[string]*migrate.Migrator) error {
					for moduleName, migrator := range migrators {
						group, err := migrator.Migrate(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", moduleName)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", moduleName, group)
						}
					}
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: withMigrators(func(c *cli.Context, migrators map[string]*migrate.Migrator) error {
					for moduleName, migrator := range migrators {
						group, err := migrator.Rollback(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", moduleName)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", moduleName, group)
						}
					}
					return nil
				}),
			},
			{
				Name:  "create_go",
				Usage: "create Go migration for a module",
				Action: withMigrators(func(c *cli.Context, migrators map[string]*migrate.Migrator) error {
					moduleName := c.Args().First()
					migrator, ok := migrators[moduleName]
					if !ok {
						return fmt.Errorf("invalid module name: %s", moduleName)
					}

					name := strings.Join(c.Args().Tail(), "_")
					mf, err := migrator.CreateGoMigration(c.Context, name)
					if err != nil {
						return err
					}
					fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: withMigrators(func(c *cli.Context, migrators map[string]*migrate.Migrator) error {
					for moduleName, migrator := range migrators {
						ms, err := migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("Migrations for module: %s\n", moduleName)
						fmt.Printf("  %s\n", ms)
						fmt.Printf("  Applied: %s\n", ms.Applied())
						fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
					}
					return nil
				}),
			},
		},
	}
}

// withMigrators opens the database from the --config flag and hands per-module
// migrators to the action.
func withMigrators(action func(c *cli.Context, migrators map[string]*migrate.Migrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.LoadConfig(c.String("config"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
		db := bun.NewDB(pgdb, pgdialect.New())
		defer db.Close()

		migrators := map[string]*migrate.Migrator{
			"season":    migrate.NewMigrator(db, seasonmigrations.Migrations),
			"standings": migrate.NewMigrator(db, standingsmigrations.Migrations),
			"match":     migrate.NewMigrator(db, matchmigrations.Migrations),
			"events":    migrate.NewMigrator(db, eventsmigrations.Migrations),
		}
		return action(c, migrators)
	}
}
