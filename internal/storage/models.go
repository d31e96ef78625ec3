package storage

// Ticket is one support ticket from the warehouse snapshot. Tickets are
// created upstream and are read-only to the analysis pipeline. CreatedAt
// is kept as the warehouse's textual timestamp; ordering is lexical,
// which the upstream export guarantees is chronological.
type Ticket struct {
	TicketID  int64  `json:"ticket_id"`
	CreatedAt string `json:"created_at"`
	Source    string `json:"source"`
	Customer  string `json:"customer"`
	Priority  string `json:"priority"`
	Text      string `json:"text"`
}

// AnalysisResult is one analysis row for a ticket. The table is
// append-only: re-running the pipeline adds new rows under a fresh RunID,
// nothing is updated in place.
type AnalysisResult struct {
	TicketID         int64
	RunID            string
	PromptVersion    string
	ModelVersion     string
	Summary          string
	Category         string
	NeedsHumanReview bool
	RedactedText     string
}

// CategoryCount is one entry of the category histogram.
type CategoryCount struct {
	Category string `json:"category"`
	N        int64  `json:"n"`
}

// Stats aggregates the analysis table for the /stats endpoint.
type Stats struct {
	Total       int64           `json:"total"`
	NeedsReview int64           `json:"needs_review"`
	Categories  []CategoryCount `json:"categories"`
}

// TicketView is a ticket joined with its analysis row, as served by the
// query API and the review CLI.
type TicketView struct {
	TicketID         int64  `json:"ticket_id"`
	CreatedAt        string `json:"created_at"`
	Source           string `json:"source"`
	Customer         string `json:"customer"`
	Priority         string `json:"priority"`
	Category         string `json:"category"`
	NeedsHumanReview bool   `json:"needs_human_review"`
	Summary          string `json:"summary"`
	RedactedText     string `json:"redacted_text"`
}

// ReviewItem is one entry of the human review queue.
type ReviewItem struct {
	TicketID int64
	Category string
	Summary  string
}
