package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"tasktrack/internal/config"
)

func newAttachmentsCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{Use: "attachments", Short: "Maintain attachment storage"}
	cmd.AddCommand(newAttachmentsSweepCmd(cfg, jsonOutput))
	return cmd
}

func newAttachmentsSweepCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete staged uploads that were never attached to a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				olderThan = cfg.Attachments.StagingTTL.Duration
			}
			files, err := openAttachments(cfg, slog.Default().With("component", "attachments"))
			if err != nil {
				return err
			}
			removed, err := files.SweepStaging(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(map[string]any{"removed": removed, "older_than": olderThan.String()})
			}
			return writePlain("removed %d staged uploads older than %s\n", removed, olderThan)
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "age threshold (default: attachments.staging_ttl)")
	return cmd
}
