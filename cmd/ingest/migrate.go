package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/bibliographic-ingest/internal/config"
	"github.com/helixir/bibliographic-ingest/internal/database"
)

var migrationsPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the repository store schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), func(m *database.Migrator, logger zerolog.Logger) error {
			logger.Info().Msg("running all pending migrations")
			return m.Up()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), func(m *database.Migrator, logger zerolog.Logger) error {
			logger.Warn().Msg("rolling back all migrations")
			return m.Down()
		})
	},
}

var migrateStepsCmd = &cobra.Command{
	Use:   "steps N",
	Short: "Apply N migrations; negative N rolls back",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n == 0 {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return withMigrator(cmd.Context(), func(m *database.Migrator, logger zerolog.Logger) error {
			logger.Info().Int("steps", n).Msg("running migration steps")
			return m.Steps(n)
		})
	},
}

var migrateForceCmd = &cobra.Command{
	Use:   "force VERSION",
	Short: "Set the schema version without running migrations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 0 {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return withMigrator(cmd.Context(), func(m *database.Migrator, logger zerolog.Logger) error {
			logger.Warn().Int("version", v).Msg("forcing migration version")
			return m.Force(v)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), func(*database.Migrator, zerolog.Logger) error {
			return nil
		})
	},
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrationsPath, "path", "", "override the migrations directory")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStepsCmd, migrateForceCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

// withMigrator connects to the database, runs fn and logs the resulting
// schema version.
func withMigrator(ctx context.Context, fn func(*database.Migrator, zerolog.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg).With().Str("component", "migrate").Logger()

	dir := cfg.Database.MigrationPath
	if migrationsPath != "" {
		dir = migrationsPath
	}

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, dir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := fn(migrator, logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return nil
	}
	logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("current migration version")
	return nil
}
