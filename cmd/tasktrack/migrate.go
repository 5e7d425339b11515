package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tasktrack/internal/config"
	"tasktrack/internal/store"
)

func newMigrateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}
			open := store.Open
			if dryRun {
				open = store.OpenWithoutMigrations
			}
			st, err := open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer st.Close()

			plan, err := store.MigrationPlan(st.SQL())
			if err != nil {
				return fmt.Errorf("inspect migrations: %w", err)
			}
			if *jsonOutput {
				return writeJSON(plan)
			}

			if !dryRun {
				return writePlain("schema at version %d\n", plan.CurrentVersion)
			}
			if err := writePlain("current version: %d\navailable version: %d\n", plan.CurrentVersion, plan.AvailableVersion); err != nil {
				return err
			}
			if len(plan.Pending) == 0 {
				return writePlain("no pending migrations\n")
			}
			for _, m := range plan.Pending {
				if err := writePlain("  %d: %s\n", m.Version, m.Description); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show pending migrations without applying them")
	return cmd
}
