package pipeline

import "testing"

func TestNeedsReview(t *testing.T) {
	cases := []struct {
		name  string
		score int
		text  string
		want  bool
	}{
		{"clean low score", 0, "clean text", false},
		{"below threshold", 3, "clean text", false},
		{"at threshold", 4, "clean text", true},
		{"above threshold", 7, "clean text", true},
		{"email redacted", 0, "reach me at [REDACTED_EMAIL]", true},
		{"phone redacted", 0, "call [REDACTED_PHONE] anytime", true},
		{"both triggers", 5, "[REDACTED_EMAIL]", true},
		{"empty text", 0, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NeedsReview(tc.score, tc.text); got != tc.want {
				t.Errorf("NeedsReview(%d, %q) = %v, want %v", tc.score, tc.text, got, tc.want)
			}
		})
	}
}
