package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/triagehq/triage/internal/storage"
)

// TicketFetcher reads the ticket table from the warehouse.
type TicketFetcher interface {
	FetchTickets(ctx context.Context) ([]storage.Ticket, error)
}

// SnapshotWriter replaces the local ticket snapshot atomically.
type SnapshotWriter interface {
	ReplaceTickets(ctx context.Context, tickets []storage.Ticket) error
}

// Exporter copies the warehouse ticket table into the local SQLite
// snapshot that the analysis pipeline and the query API read from.
type Exporter struct {
	source TicketFetcher
	sink   SnapshotWriter
	logger *slog.Logger
}

func NewExporter(source TicketFetcher, sink SnapshotWriter) *Exporter {
	return &Exporter{
		source: source,
		sink:   sink,
		logger: slog.Default(),
	}
}

// Run fetches every warehouse ticket and swaps the local snapshot for the
// fresh copy, returning the number of tickets exported. Errors propagate
// unchanged; the snapshot is replaced in one transaction so a failed run
// leaves the previous snapshot intact.
func (e *Exporter) Run(ctx context.Context) (int, error) {
	tickets, err := e.source.FetchTickets(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching warehouse tickets: %w", err)
	}

	if err := e.sink.ReplaceTickets(ctx, tickets); err != nil {
		return 0, fmt.Errorf("replacing ticket snapshot: %w", err)
	}

	e.logger.Info("ticket export complete", "tickets", len(tickets))
	return len(tickets), nil
}
