package pipeline

import "strings"

// reviewThreshold is the urgency score at or above which a human must
// look at the ticket.
const reviewThreshold = 4

// NeedsReview decides whether a ticket requires a human in the loop:
// either the urgency score reached the threshold, or redaction found PII
// in the original text. The two triggers are independent.
func NeedsReview(score int, redactedText string) bool {
	if score >= reviewThreshold {
		return true
	}
	return strings.Contains(redactedText, EmailPlaceholder) ||
		strings.Contains(redactedText, PhonePlaceholder)
}
