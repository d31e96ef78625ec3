package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/triagehq/triage/internal/export"
	"github.com/triagehq/triage/internal/pipeline"
	"github.com/triagehq/triage/internal/storage"
)

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the analysis pipeline over the local ticket snapshot",
	Long: `Run the deterministic analysis pipeline over the local ticket snapshot.

Each ticket is redacted, classified, summarized and routed; the resulting
batch is appended to the analysis log in one transaction. Re-running is
safe: rows are append-only and keyed by run id.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		analyzer := pipeline.NewAnalyzer(store, store, pipeline.Deterministic{})
		n, err := analyzer.Run(ctx)
		if err != nil {
			return err
		}

		printSuccess("Wrote %d analysis rows to ticket_analysis", n)
		return nil
	},
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Snapshot the warehouse ticket table into the local database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Snowflake.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := export.NewClient(cfg.Snowflake)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Ping(ctx); err != nil {
			return fmt.Errorf("connecting to snowflake: %w", err)
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		n, err := export.NewExporter(client, store).Run(ctx)
		if err != nil {
			return err
		}

		printSuccess("Exported %d tickets from Snowflake", n)
		return nil
	},
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the category histogram",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		stats, err := store.GetStats(cmd.Context())
		if err != nil {
			return err
		}

		for _, c := range stats.Categories {
			fmt.Fprintf(cmd.OutOrStdout(), "%-15s %d\n", c.Category, c.N)
		}
		return nil
	},
}

// --- review-queue ---

const reviewQueuePreview = 20

var reviewQueueCmd = &cobra.Command{
	Use:   "review-queue",
	Short: "List tickets flagged for human review",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		items, err := store.ReviewQueue(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Needs human review: %d\n", len(items))
		for i, it := range items {
			if i == reviewQueuePreview {
				break
			}
			fmt.Fprintf(out, "- #%d [%s] %s\n", it.TicketID, it.Category, it.Summary)
		}
		return nil
	},
}
