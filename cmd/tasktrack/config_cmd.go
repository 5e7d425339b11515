package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tasktrack/internal/config"
)

func newConfigCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or write settings in " + config.FileName,
	}
	cmd.AddCommand(newConfigGetCmd(cfg), newConfigSetCmd())
	return cmd
}

func newConfigGetCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a key after files and env are applied",
		Args:  exactArgs(1, "key is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !config.IsAllowedKey(args[0]) {
				return fmt.Errorf("unknown key %q; known keys: %s", args[0], strings.Join(config.AllowedKeys(), ", "))
			}
			value, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			return writePlain("%s\n", value)
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a key to the home config, or the project config with --project",
		Args:  exactArgs(2, "key and value are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := config.GlobalPath
			if project {
				target = config.ProjectPath
			}
			path, err := target()
			if err != nil {
				return err
			}
			if err := config.SetKey(path, args[0], args[1]); err != nil {
				return err
			}
			return writePlain("%s updated in %s\n", args[0], path)
		},
	}

	cmd.Flags().BoolVar(&project, "project", false, "write ./"+config.FileName+" instead of the home config")
	return cmd
}
