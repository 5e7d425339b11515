package main

import (
	"errors"

	"github.com/spf13/cobra"
)

// exactArgs replaces cobra's generic count error with message.
func exactArgs(n int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) == n {
			return nil
		}
		return errors.New(message)
	}
}
