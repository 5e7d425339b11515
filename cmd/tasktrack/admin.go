package main

import (
	"github.com/spf13/cobra"

	"tasktrack/internal/config"
)

func newAdminCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands that work directly on the database",
	}

	cmd.AddCommand(newAdminUserCmd(cfg, jsonOutput))
	return cmd
}
