package pipeline

import "strings"

// summaryLimit is the maximum preview length before truncation kicks in.
const summaryLimit = 180

// Summarize produces a bounded-length preview of redacted ticket text:
// surrounding whitespace is trimmed, embedded newlines become spaces
// (nothing else is normalized), and text longer than 180 characters is
// cut there with a "..." marker appended.
//
// Callers must pass the redacted text, never the raw ticket, so no PII
// can surface through a summary.
func Summarize(text string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
	runes := []rune(cleaned)
	if len(runes) > summaryLimit {
		return string(runes[:summaryLimit]) + "..."
	}
	return cleaned
}
