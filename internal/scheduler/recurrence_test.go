package scheduler

import (
	"testing"
	"time"
)

func TestNextOccurrence(t *testing.T) {
	from := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		pattern string
		want    time.Time
	}{
		{"daily descriptor", "@daily", time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"every interval", "@every 2h", from.Add(2 * time.Hour)},
		{"cron same day", "0 9 * * *", time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},
		{"cron next day", "0 8 * * *", time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(tt.pattern, from)
			if err != nil {
				t.Fatalf("NextOccurrence(%q): %v", tt.pattern, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence(%q) = %v, want %v", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestNextOccurrenceInvalidPattern(t *testing.T) {
	if _, err := NextOccurrence("not a pattern", time.Now()); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestValidatePattern(t *testing.T) {
	valid := []string{"@daily", "@weekly", "@every 30m", "*/15 * * * *", "0 9 * * 1-5"}
	for _, p := range valid {
		if err := ValidatePattern(p); err != nil {
			t.Errorf("ValidatePattern(%q): %v", p, err)
		}
	}

	invalid := []string{"", "once a day", "61 * * * *", "@every"}
	for _, p := range invalid {
		if err := ValidatePattern(p); err == nil {
			t.Errorf("ValidatePattern(%q): expected error", p)
		}
	}
}
