package main

import (
	"fmt"
	"log/slog"

	"tasktrack/internal/attachstore"
	"tasktrack/internal/config"
	"tasktrack/internal/store"
)

// withStore opens the configured database, runs fn and closes it.
func withStore(cfg *config.Config, fn func(st *store.Store) error) error {
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func openAttachments(cfg *config.Config, logger *slog.Logger) (*attachstore.Store, error) {
	return attachstore.New(cfg.Attachments.Root, attachstore.Options{
		StagingDir:      cfg.Attachments.StagingDir,
		MaxBytes:        cfg.Attachments.MaxUploadBytes,
		VerifySignature: cfg.Attachments.VerifySignature,
		Logger:          logger,
	})
}
