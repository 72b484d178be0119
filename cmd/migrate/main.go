package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/flintflours/storefront-backend/pkg/config"
	"github.com/flintflours/storefront-backend/pkg/db"
	"github.com/flintflours/storefront-backend/pkg/logger"
	"github.com/flintflours/storefront-backend/pkg/migrate"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the storefront database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var dir string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Write a new empty SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrate.CreateSQLMigration(dir, args[0])
			if err != nil {
				return fmt.Errorf("create migration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
			return nil
		},
	}
	create.Flags().StringVar(&dir, "dir", migrate.SourceDir, "migrations directory")

	var validateDir string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check migration file names and versions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			check := migrate.ValidateEmbedded
			if validateDir != "" {
				check = func() error { return migrate.ValidateDir(validateDir) }
			}
			if err := check(); err != nil {
				return fmt.Errorf("migration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration validation passed")
			return nil
		},
	}

	validate.Flags().StringVar(&validateDir, "dir", "", "validate a directory instead of the embedded set")

	root.AddCommand(
		create,
		validate,
		withDB("up", "Apply all pending migrations", cobra.NoArgs, func(ctx context.Context, conn *sql.DB, _ []string) error {
			return migrate.Run(ctx, conn, "up")
		}),
		withDB("down", "Roll back the latest migration", cobra.NoArgs, func(ctx context.Context, conn *sql.DB, _ []string) error {
			return migrate.Run(ctx, conn, "down")
		}),
		withDB("status", "Print applied and pending migrations", cobra.NoArgs, func(ctx context.Context, conn *sql.DB, _ []string) error {
			return migrate.Run(ctx, conn, "status")
		}),
		withDB("to VERSION", "Migrate up or down to VERSION (YYYYMMDDHHMMSS)", cobra.ExactArgs(1), func(ctx context.Context, conn *sql.DB, args []string) error {
			return migrate.MigrateToVersion(ctx, conn, args[0])
		}),
	)
	return root
}

// withDB builds a subcommand that runs against the configured database.
func withDB(use, short string, args cobra.PositionalArgs, run func(context.Context, *sql.DB, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logg := logger.New(logger.Options{
				ServiceName: "migrate",
				Level:       logger.ParseLevel(cfg.App.LogLevel),
				WarnStack:   cfg.App.LogWarnStack,
			})
			ctx := logg.WithFields(cmd.Context(), map[string]any{
				"env": cfg.App.Env,
				"cmd": cmd.Name(),
			})

			client, err := db.New(ctx, cfg.DB, logg)
			if err != nil {
				logg.Error(ctx, "database unavailable", err)
				return err
			}
			defer func() {
				if err := client.Close(); err != nil {
					logg.Error(ctx, "error closing database", err)
				}
			}()

			conn, err := client.SQL()
			if err != nil {
				return err
			}
			logg.Info(ctx, "migrate ready")
			if err := run(ctx, conn, argv); err != nil {
				logg.Error(ctx, "migration failed", err)
				return err
			}
			logg.Info(ctx, "migrate done")
			return nil
		},
	}
}
