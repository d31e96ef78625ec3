package pipeline

import "strings"

// Classifier maps a ticket's priority and redacted text to a category and
// an urgency score. Implementations must be pure functions of their
// inputs so that re-running a batch reproduces the same rows.
type Classifier interface {
	Classify(priority, text string) (category string, score int)
}

// Rule pairs a category with the terms that select it and the weight the
// category adds to the urgency score.
type Rule struct {
	Category string
	Terms    []string
	Weight   int
}

// CategoryGeneral is assigned when no rule matches.
const CategoryGeneral = "general_support"

// Rules is the classification table, evaluated top to bottom with the
// first match winning: a ticket mentioning both an outage and an invoice
// is an incident, not a billing question. The escalation order is a
// policy decision; reordering entries changes triage behavior.
var Rules = []Rule{
	{Category: "incident", Weight: 3, Terms: []string{
		"500", "outage", "down", "crash", "blank screen", "failed to fetch", "token exchange failed",
	}},
	{Category: "auth_access", Weight: 2, Terms: []string{
		"login", "mfa", "sso", "okta", "401", "access denied", "scim",
	}},
	{Category: "billing", Weight: 2, Terms: []string{
		"invoice", "charged", "refund", "tax", "chargeback", "billing",
	}},
	{Category: "performance", Weight: 1, Terms: []string{
		"slow", "lcp", "core web vitals", "cpu", "perf", "latency",
	}},
	{Category: "integrations", Weight: 1, Terms: []string{
		"webhook", "events", "payload", "429", "rate limit",
	}},
}

// Deterministic classifies with the fixed rule table above. It is
// versioned as "deterministic-v1" in result provenance so a learned model
// can later replace it without changing the result schema.
type Deterministic struct{}

// Classify returns the first matching category and the accumulated
// urgency score. Matching is case-insensitive substring containment over
// the already-redacted text, so placeholder tokens never trigger a rule.
func (Deterministic) Classify(priority, text string) (string, int) {
	lowered := strings.ToLower(text)
	score := priorityWeight(priority)

	for _, rule := range Rules {
		if containsAny(lowered, rule.Terms) {
			return rule.Category, score + rule.Weight
		}
	}
	return CategoryGeneral, score
}

// priorityWeight is the base urgency contributed by the ticket's priority
// field. Unrecognized or absent priorities contribute nothing.
func priorityWeight(priority string) int {
	switch strings.ToLower(priority) {
	case "high":
		return 3
	case "medium":
		return 1
	default:
		return 0
	}
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
