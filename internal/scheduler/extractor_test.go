package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestExtract_ReferenceDateInPrompt(t *testing.T) {
	completer := &stubCompleter{
		details: EventDetails{Name: "Dentist", Start: "2026-03-17T10:00"},
	}

	e := NewExtractor(completer, nil)
	e.now = func() time.Time {
		return time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	}

	details, err := e.Extract(context.Background(), "Dentist appointment next Tuesday at 10am")
	if err != nil {
		t.Fatal(err)
	}
	if details.Name != "Dentist" {
		t.Errorf("Name = %q", details.Name)
	}

	if len(completer.requests) != 1 {
		t.Fatalf("completer called %d times, want 1", len(completer.requests))
	}
	prompt := completer.requests[0].SystemPrompt
	if !strings.Contains(prompt, "Saturday, March 14, 2026") {
		t.Errorf("system prompt %q does not state the reference date", prompt)
	}
}

func TestExtract_PassesDescription(t *testing.T) {
	completer := &stubCompleter{details: EventDetails{Name: "x", Start: "2026-01-01"}}

	e := NewExtractor(completer, nil)
	if _, err := e.Extract(context.Background(), "team dinner on the 5th"); err != nil {
		t.Fatal(err)
	}
	if got := completer.requests[0].UserText; got != "team dinner on the 5th" {
		t.Errorf("UserText = %q", got)
	}
}
