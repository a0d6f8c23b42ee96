package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/bibliographic-ingest/internal/config"
	"github.com/helixir/bibliographic-ingest/internal/database"
	"github.com/helixir/bibliographic-ingest/internal/repository"
)

var grantOpts struct {
	AdminSet string
	Agent    string
	Access   string
}

var grantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Grant a group access to the works of an admin set",
	Long: `grant records a group permission on an admin set. Works deposited into the
admin set, and their file sets, receive the grant when they are created.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validate.Var(grantOpts.Access, "required,oneof=view edit manage"); err != nil {
			return errors.New("--access must be one of view, edit, manage")
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger := newLogger(cfg)

		db, err := database.New(cmd.Context(), &cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		repo := repository.NewPgWorkRepository(db, logger)
		if err := repo.GrantAdminSet(cmd.Context(), grantOpts.AdminSet, grantOpts.Agent, grantOpts.Access); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "granted %s %s on %s\n", grantOpts.Agent, grantOpts.Access, grantOpts.AdminSet)
		return nil
	},
}

func init() {
	f := grantCmd.Flags()
	f.StringVar(&grantOpts.AdminSet, "admin-set", "", "admin set")
	f.StringVar(&grantOpts.Agent, "agent", "", "group receiving the grant")
	f.StringVar(&grantOpts.Access, "access", "view", "view, edit or manage")
	_ = grantCmd.MarkFlagRequired("admin-set")
	_ = grantCmd.MarkFlagRequired("agent")
	rootCmd.AddCommand(grantCmd)
}
