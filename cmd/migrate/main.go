package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/blissmart/marketplace-backend/pkg/config"
	"github.com/blissmart/marketplace-backend/pkg/logger"
	"github.com/blissmart/marketplace-backend/pkg/migrate"
)

const serviceName = "migrate"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  serviceName,
		Usage: "manage marketplace database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Value: migrate.DefaultDir,
				Usage: "goose migrations directory",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDB(ctx, c, logg, func(ctx context.Context, sqlDB *sql.DB) error {
						return migrate.Run(ctx, sqlDB, c.String("dir"), "up")
					})
				},
			},
			{
				Name:  "down",
				Usage: "roll back the latest migration",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDB(ctx, c, logg, func(ctx context.Context, sqlDB *sql.DB) error {
						return migrate.Run(ctx, sqlDB, c.String("dir"), "down")
					})
				},
			},
			{
				Name:  "status",
				Usage: "print migration status",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDB(ctx, c, logg, func(ctx context.Context, sqlDB *sql.DB) error {
						return migrate.Run(ctx, sqlDB, c.String("dir"), "status")
					})
				},
			},
			{
				Name:  "version",
				Usage: "migrate up or down to a target version",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "target",
						Usage:    "target version (YYYYMMDDHHMMSS)",
						Required: true,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDB(ctx, c, logg, func(ctx context.Context, sqlDB *sql.DB) error {
						return migrate.MigrateToVersion(ctx, sqlDB, c.String("dir"), c.String("target"))
					})
				},
			},
			{
				Name:  "create",
				Usage: "create a new timestamped SQL migration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "migration name",
						Required: true,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					path, err := migrate.CreateSQLMigration(c.String("dir"), c.String("name"))
					if err != nil {
						return fmt.Errorf("create migration: %w", err)
					}
					fmt.Println("created migration:", path)
					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "check migration file names and annotations",
				Action: func(ctx context.Context, c *cli.Command) error {
					if err := migrate.ValidateDir(c.String("dir")); err != nil {
						return fmt.Errorf("migration validation failed: %w", err)
					}
					fmt.Println("migration validation passed")
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logg.Error(context.Background(), "migrate command failed", err)
		os.Exit(1)
	}
}

// withDB loads config and opens a pgx-backed *sql.DB for goose.
func withDB(ctx context.Context, c *cli.Command, logg *logger.Logger, fn func(context.Context, *sql.DB) error) error {
	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": c.Name,
		"dir": c.String("dir"),
	})

	sqlDB, err := sql.Open("pgx", cfg.DB.DSN)
	requireResource(ctx, logg, "database", err)
	defer sqlDB.Close()

	err = sqlDB.PingContext(ctx)
	requireResource(ctx, logg, "database", err)

	logg.Info(ctx, "migrate ready")
	return fn(ctx, sqlDB)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
