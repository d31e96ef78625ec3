package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the local SQLite snapshot holding the ticket table and the
// append-only analysis log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used
// by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "tickets.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't
// been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Tickets ---

// FetchTickets returns every ticket in the snapshot ordered by creation
// time ascending. NULL text is normalized to the empty string; the
// analyzer validates the remaining fields.
func (s *Store) FetchTickets(ctx context.Context) ([]Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticket_id, created_at, source, customer, priority, text
		FROM tickets ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []Ticket
	for rows.Next() {
		var t Ticket
		var createdAt, source, customer, priority, text sql.NullString
		if err := rows.Scan(&t.TicketID, &createdAt, &source, &customer, &priority, &text); err != nil {
			return nil, err
		}
		t.CreatedAt = createdAt.String
		t.Source = source.String
		t.Customer = customer.String
		t.Priority = priority.String
		t.Text = text.String
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// ReplaceTickets swaps the ticket snapshot for a fresh warehouse export.
// Delete and insert happen in one transaction so readers never see a
// half-replaced table.
func (s *Store) ReplaceTickets(ctx context.Context, tickets []Ticket) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning replace transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tickets"); err != nil {
		return fmt.Errorf("clearing tickets: %w", err)
	}

	for _, t := range tickets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tickets (ticket_id, created_at, source, customer, priority, text)
			VALUES (?, ?, ?, ?, ?, ?)`,
			t.TicketID, t.CreatedAt, t.Source, t.Customer, t.Priority, t.Text,
		); err != nil {
			return fmt.Errorf("inserting ticket %d: %w", t.TicketID, err)
		}
	}

	return tx.Commit()
}

// --- Analysis results ---

// WriteResults appends a full batch of analysis rows in one transaction.
// Either every row of the run becomes visible or none do.
func (s *Store) WriteResults(ctx context.Context, results []AnalysisResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning write transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range results {
		review := 0
		if r.NeedsHumanReview {
			review = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ticket_analysis
			  (ticket_id, run_id, prompt_version, model_version, summary, category, needs_human_review, redacted_text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.TicketID, r.RunID, r.PromptVersion, r.ModelVersion,
			r.Summary, r.Category, review, r.RedactedText,
		); err != nil {
			return fmt.Errorf("inserting analysis row for ticket %d: %w", r.TicketID, err)
		}
	}

	return tx.Commit()
}

// CountResults returns the number of analysis rows across all runs.
func (s *Store) CountResults(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ticket_analysis").Scan(&n)
	return n, err
}

// --- Query API ---

// GetStats aggregates the snapshot for the /stats endpoint: ticket total,
// rows flagged for review, and the category histogram ordered by count
// descending then category ascending.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	st.Categories = []CategoryCount{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tickets").Scan(&st.Total); err != nil {
		return Stats{}, fmt.Errorf("counting tickets: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ticket_analysis WHERE needs_human_review = 1",
	).Scan(&st.NeedsReview); err != nil {
		return Stats{}, fmt.Errorf("counting review rows: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) AS n
		FROM ticket_analysis
		GROUP BY category
		ORDER BY n DESC, category`,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("counting categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.N); err != nil {
			return Stats{}, err
		}
		st.Categories = append(st.Categories, c)
	}
	return st, rows.Err()
}

// ListTickets returns tickets joined with their analysis rows, most
// urgent first. A non-nil needsReview filters to flagged (true) or
// unflagged (false) rows.
func (s *Store) ListTickets(ctx context.Context, needsReview *bool) ([]TicketView, error) {
	query := `
		SELECT
		  t.ticket_id, t.created_at, t.source, t.customer, t.priority,
		  ta.category, ta.needs_human_review, ta.summary, ta.redacted_text
		FROM tickets t
		JOIN ticket_analysis ta ON ta.ticket_id = t.ticket_id`
	var args []any
	if needsReview != nil {
		query += " WHERE ta.needs_human_review = ?"
		if *needsReview {
			args = append(args, 1)
		} else {
			args = append(args, 0)
		}
	}
	query += " ORDER BY ta.needs_human_review DESC, t.priority DESC, t.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := []TicketView{}
	for rows.Next() {
		var v TicketView
		var review int
		if err := rows.Scan(
			&v.TicketID, &v.CreatedAt, &v.Source, &v.Customer, &v.Priority,
			&v.Category, &review, &v.Summary, &v.RedactedText,
		); err != nil {
			return nil, err
		}
		v.NeedsHumanReview = review == 1
		views = append(views, v)
	}
	return views, rows.Err()
}

// ReviewQueue lists analysis rows flagged for human review, ordered by
// ticket id.
func (s *Store) ReviewQueue(ctx context.Context) ([]ReviewItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticket_id, category, summary
		FROM ticket_analysis
		WHERE needs_human_review = 1
		ORDER BY ticket_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ReviewItem
	for rows.Next() {
		var it ReviewItem
		if err := rows.Scan(&it.TicketID, &it.Category, &it.Summary); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
