package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tasktrack/internal/config"
	"tasktrack/internal/lifecycle"
	"tasktrack/internal/policy"
	"tasktrack/internal/server"
	"tasktrack/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the tasktrack API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			foreign, err := policy.ParseForeignDepartmentMode(cfg.Policy.ForeignDepartment)
			if err != nil {
				return err
			}
			lookupDelete, err := lifecycle.ParseLookupDeleteMode(cfg.Policy.LookupDelete)
			if err != nil {
				return err
			}

			logger := slog.Default().With("component", "server")

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			files, err := openAttachments(cfg, logger.With("component", "attachments"))
			if err != nil {
				return err
			}
			tasks := lifecycle.New(st, files, lifecycle.Options{
				LookupDelete: lookupDelete,
				Logger:       logger.With("component", "lifecycle"),
			})

			srv := server.New(server.Options{
				Addr:               cfg.ListenAddr,
				Store:              st,
				Files:              files,
				Tasks:              tasks,
				Policy:             policy.Policy{ForeignDepartment: foreign},
				Logger:             logger,
				SessionTTL:         cfg.Auth.SessionTTL.Duration,
				AdminRole:          cfg.Auth.AdminRole,
				SecureCookie:       cfg.Auth.SecureCookie,
				PageSize:           cfg.Tasks.PageSize,
				MaxUploadBytes:     cfg.Attachments.MaxUploadBytes,
				MultipartMaxMemory: cfg.Attachments.MultipartMaxMemory,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sweeper := &stagingSweeper{
				files:  files,
				store:  st,
				ttl:    cfg.Attachments.StagingTTL.Duration,
				logger: logger.With("component", "sweeper"),
				now:    func() time.Time { return time.Now().UTC() },
			}
			scheduler, err := sweeper.schedule(ctx, cfg.Attachments.SweepSchedule)
			if err != nil {
				return fmt.Errorf("attachments.sweep_schedule %q: %w", cfg.Attachments.SweepSchedule, err)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Run(gctx)
			})
			g.Go(func() error {
				scheduler.Start()
				<-gctx.Done()
				<-scheduler.Stop().Done()
				return nil
			})
			return g.Wait()
		},
	}
}
