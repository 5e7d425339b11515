package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tasktrack/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "tasktrack",
		Short:         "Tasktrack is a departmental task tracker with PDF attachments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newMigrateCmd(cfg, &jsonOutput),
		newAdminCmd(cfg, &jsonOutput),
		newSeedCmd(cfg, &jsonOutput),
		newExportCmd(cfg),
		newAttachmentsCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
	)

	return cmd
}
