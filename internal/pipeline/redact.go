package pipeline

import "regexp"

// Placeholder tokens substituted for detected PII. Downstream consumers
// pattern-match on these exact strings; do not change them.
const (
	EmailPlaceholder = "[REDACTED_EMAIL]"
	PhonePlaceholder = "[REDACTED_PHONE]"
)

var (
	emailRE = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?1[-.\s]?)?(?:\(?[0-9]{3}\)?[-.\s]?)[0-9]{3}[-.\s]?[0-9]{4}\b`)
)

// Redact strips email addresses and North-American phone numbers from
// free text, replacing each match with a fixed placeholder token. Emails
// are replaced before phones. Redacting already-redacted text is a no-op,
// so re-running the pipeline over the same ticket is safe.
//
// Coverage is best-effort for these two formats only: names, postal
// addresses and account identifiers pass through untouched.
func Redact(text string) string {
	text = emailRE.ReplaceAllString(text, EmailPlaceholder)
	return phoneRE.ReplaceAllString(text, PhonePlaceholder)
}
