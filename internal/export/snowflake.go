package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/snowflakedb/gosnowflake" // Snowflake driver

	"github.com/triagehq/triage/internal/config"
	"github.com/triagehq/triage/internal/storage"
)

// ticketQuery mirrors the warehouse layout: a single TICKETS table with
// textual timestamps, ordered so the snapshot preserves chronology.
const ticketQuery = `
	SELECT ticket_id, created_at, source, customer, priority, text
	FROM TICKETS
	ORDER BY created_at`

// Client reads the support ticket table from the Snowflake warehouse.
type Client struct {
	db *sql.DB
}

// NewClient opens a Snowflake connection from config.
// DSN format: user:password@account/database/schema?warehouse=xxx
func NewClient(cfg config.SnowflakeConfig) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s",
		cfg.User,
		cfg.Password,
		cfg.Account,
		cfg.Database,
		cfg.Schema,
	)
	if cfg.Warehouse != "" {
		dsn += "?warehouse=" + cfg.Warehouse
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening snowflake connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Client{db: db}, nil
}

// NewClientWithDB wraps an existing database handle. Used by tests to
// substitute a mock driver.
func NewClientWithDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// Close closes the warehouse connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping tests the warehouse connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// FetchTickets pulls the full ticket table ordered by creation time.
// NULL columns are normalized to empty strings; the analyzer decides
// whether such tickets are acceptable.
func (c *Client) FetchTickets(ctx context.Context) ([]storage.Ticket, error) {
	rows, err := c.db.QueryContext(ctx, ticketQuery)
	if err != nil {
		return nil, fmt.Errorf("querying warehouse tickets: %w", err)
	}
	defer rows.Close()

	var tickets []storage.Ticket
	for rows.Next() {
		var t storage.Ticket
		var createdAt, source, customer, priority, text sql.NullString
		if err := rows.Scan(&t.TicketID, &createdAt, &source, &customer, &priority, &text); err != nil {
			return nil, fmt.Errorf("scanning warehouse row: %w", err)
		}
		t.CreatedAt = createdAt.String
		t.Source = source.String
		t.Customer = customer.String
		t.Priority = priority.String
		t.Text = text.String
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading warehouse rows: %w", err)
	}
	return tickets, nil
}
