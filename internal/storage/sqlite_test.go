package storage

import (
	"context"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTickets(t *testing.T, s *Store, tickets ...Ticket) {
	t.Helper()
	if err := s.ReplaceTickets(context.Background(), tickets); err != nil {
		t.Fatalf("ReplaceTickets: %v", err)
	}
}

// TestMigrationsIdempotent runs Open twice on the same database and
// verifies migrations are not re-applied.
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

func TestFetchTicketsOrderedByCreation(t *testing.T) {
	s := openTestStore(t)
	seedTickets(t, s,
		Ticket{TicketID: 2, CreatedAt: "2025-06-02T00:00:00Z", Source: "email", Customer: "acme", Priority: "low", Text: "b"},
		Ticket{TicketID: 1, CreatedAt: "2025-06-01T00:00:00Z", Source: "email", Customer: "acme", Priority: "low", Text: "a"},
		Ticket{TicketID: 3, CreatedAt: "2025-06-03T00:00:00Z", Source: "chat", Customer: "globex", Priority: "high", Text: "c"},
	)

	tickets, err := s.FetchTickets(context.Background())
	if err != nil {
		t.Fatalf("FetchTickets: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("len = %d, want 3", len(tickets))
	}
	for i, wantID := range []int64{1, 2, 3} {
		if tickets[i].TicketID != wantID {
			t.Errorf("tickets[%d].TicketID = %d, want %d", i, tickets[i].TicketID, wantID)
		}
	}
}

func TestReplaceTicketsSwapsSnapshot(t *testing.T) {
	s := openTestStore(t)
	seedTickets(t, s,
		Ticket{TicketID: 1, CreatedAt: "2025-06-01T00:00:00Z", Source: "email", Customer: "acme", Priority: "low", Text: "old"},
	)
	seedTickets(t, s,
		Ticket{TicketID: 9, CreatedAt: "2025-06-09T00:00:00Z", Source: "chat", Customer: "initech", Priority: "high", Text: "new"},
	)

	tickets, err := s.FetchTickets(context.Background())
	if err != nil {
		t.Fatalf("FetchTickets: %v", err)
	}
	if len(tickets) != 1 || tickets[0].TicketID != 9 {
		t.Errorf("snapshot not replaced: %+v", tickets)
	}
}

func TestWriteResultsAppendsAcrossRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	row := AnalysisResult{
		TicketID:      1,
		RunID:         "run-1",
		PromptVersion: "deterministic-v1",
		ModelVersion:  "none",
		Summary:       "s",
		Category:      "incident",
		RedactedText:  "r",
	}
	if err := s.WriteResults(ctx, []AnalysisResult{row}); err != nil {
		t.Fatalf("first WriteResults: %v", err)
	}
	row.RunID = "run-2"
	if err := s.WriteResults(ctx, []AnalysisResult{row}); err != nil {
		t.Fatalf("second WriteResults: %v", err)
	}

	n, err := s.CountResults(ctx)
	if err != nil {
		t.Fatalf("CountResults: %v", err)
	}
	if n != 2 {
		t.Errorf("re-running must append, not update: count = %d, want 2", n)
	}
}

func TestWriteResultsEmptyBatch(t *testing.T) {
	s := openTestStore(t)
	if err := s.WriteResults(context.Background(), nil); err != nil {
		t.Fatalf("empty batch should succeed: %v", err)
	}
}

func TestGetStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedTickets(t, s,
		Ticket{TicketID: 1, CreatedAt: "2025-06-01T00:00:00Z", Source: "email", Customer: "acme", Priority: "high", Text: "a"},
		Ticket{TicketID: 2, CreatedAt: "2025-06-02T00:00:00Z", Source: "email", Customer: "acme", Priority: "low", Text: "b"},
		Ticket{TicketID: 3, CreatedAt: "2025-06-03T00:00:00Z", Source: "chat", Customer: "globex", Priority: "low", Text: "c"},
	)

	rows := []AnalysisResult{
		{TicketID: 1, RunID: "r", Category: "incident", NeedsHumanReview: true},
		{TicketID: 2, RunID: "r", Category: "billing"},
		{TicketID: 3, RunID: "r", Category: "billing"},
	}
	if err := s.WriteResults(ctx, rows); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.NeedsReview != 1 {
		t.Errorf("NeedsReview = %d, want 1", stats.NeedsReview)
	}
	want := []CategoryCount{{Category: "billing", N: 2}, {Category: "incident", N: 1}}
	if len(stats.Categories) != len(want) {
		t.Fatalf("Categories = %+v, want %+v", stats.Categories, want)
	}
	for i := range want {
		if stats.Categories[i] != want[i] {
			t.Errorf("Categories[%d] = %+v, want %+v", i, stats.Categories[i], want[i])
		}
	}
}

// Ties on count break on category name ascending.
func TestGetStatsCategoryTieBreak(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := []AnalysisResult{
		{TicketID: 1, RunID: "r", Category: "performance"},
		{TicketID: 2, RunID: "r", Category: "billing"},
	}
	if err := s.WriteResults(ctx, rows); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Categories[0].Category != "billing" || stats.Categories[1].Category != "performance" {
		t.Errorf("tie not broken alphabetically: %+v", stats.Categories)
	}
}

func TestListTickets(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedTickets(t, s,
		Ticket{TicketID: 1, CreatedAt: "2025-06-01T00:00:00Z", Source: "email", Customer: "acme", Priority: "high", Text: "a"},
		Ticket{TicketID: 2, CreatedAt: "2025-06-02T00:00:00Z", Source: "email", Customer: "acme", Priority: "low", Text: "b"},
	)
	rows := []AnalysisResult{
		{TicketID: 1, RunID: "r", Category: "incident", NeedsHumanReview: true, Summary: "s1", RedactedText: "t1"},
		{TicketID: 2, RunID: "r", Category: "billing", Summary: "s2", RedactedText: "t2"},
	}
	if err := s.WriteResults(ctx, rows); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}

	all, err := s.ListTickets(ctx, nil)
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	// Review rows first.
	if all[0].TicketID != 1 || !all[0].NeedsHumanReview {
		t.Errorf("expected flagged ticket first: %+v", all[0])
	}

	flagged := true
	onlyFlagged, err := s.ListTickets(ctx, &flagged)
	if err != nil {
		t.Fatalf("ListTickets(flagged): %v", err)
	}
	if len(onlyFlagged) != 1 || onlyFlagged[0].TicketID != 1 {
		t.Errorf("flagged filter: %+v", onlyFlagged)
	}

	flagged = false
	unflagged, err := s.ListTickets(ctx, &flagged)
	if err != nil {
		t.Fatalf("ListTickets(unflagged): %v", err)
	}
	if len(unflagged) != 1 || unflagged[0].TicketID != 2 {
		t.Errorf("unflagged filter: %+v", unflagged)
	}
}

func TestReviewQueueOrderedByTicket(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := []AnalysisResult{
		{TicketID: 5, RunID: "r", Category: "incident", NeedsHumanReview: true, Summary: "later"},
		{TicketID: 2, RunID: "r", Category: "auth_access", NeedsHumanReview: true, Summary: "earlier"},
		{TicketID: 9, RunID: "r", Category: "billing", Summary: "not flagged"},
	}
	if err := s.WriteResults(ctx, rows); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}

	items, err := s.ReviewQueue(ctx)
	if err != nil {
		t.Fatalf("ReviewQueue: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].TicketID != 2 || items[1].TicketID != 5 {
		t.Errorf("queue not ordered by ticket id: %+v", items)
	}
}

func TestFetchTicketsNormalizesNullText(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.db.Exec(`
		INSERT INTO tickets (ticket_id, created_at, source, customer, priority, text)
		VALUES (1, '2025-06-01T00:00:00Z', 'email', 'acme', 'low', NULL)`,
	); err != nil {
		t.Fatalf("insert: %v", err)
	}

	tickets, err := s.FetchTickets(context.Background())
	if err != nil {
		t.Fatalf("FetchTickets: %v", err)
	}
	if len(tickets) != 1 || tickets[0].Text != "" {
		t.Errorf("NULL text should scan as empty string: %+v", tickets)
	}
}
