package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/triagehq/triage/internal/api"
	"github.com/triagehq/triage/internal/config"
	"github.com/triagehq/triage/internal/export"
	"github.com/triagehq/triage/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API (and the scheduled export, if configured)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runServer(cfg)
	},
}

func runServer(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(api.Deps{
		Store:      store,
		CORSOrigin: cfg.Server.CORSOrigin,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("triage API listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// The scheduled export shares the server lifetime. It only starts
	// when a schedule is configured and the warehouse is reachable from
	// config.
	if cfg.Export.Schedule != "" {
		if err := cfg.Snowflake.Validate(); err != nil {
			return fmt.Errorf("export schedule set but %w", err)
		}
		client, err := export.NewClient(cfg.Snowflake)
		if err != nil {
			return err
		}
		defer client.Close()

		exporter := export.NewExporter(client, store)
		g.Go(func() error {
			return export.RunScheduled(gCtx, cfg.Export.Schedule, exporter.Run)
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
