package calendar

import (
	"testing"
	"time"

	"github.com/teemow/inboxcal/internal/scheduler"
)

func TestBuildEvent(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2026, 3, 14, 15, 0, 0, 0, loc)

	event := buildEvent(scheduler.ResolvedEvent{
		Name:        "Team Sync",
		Location:    "Room 4",
		Description: "Weekly sync",
		Start:       start,
		End:         start.Add(45 * time.Minute),
		Attendees:   []string{"alice@example.com"},
	})

	if event.Summary != "Team Sync" {
		t.Errorf("Summary = %q", event.Summary)
	}
	if event.Start.DateTime != start.Format(time.RFC3339) {
		t.Errorf("Start.DateTime = %q", event.Start.DateTime)
	}
	if event.Start.TimeZone != "America/New_York" {
		t.Errorf("Start.TimeZone = %q", event.Start.TimeZone)
	}
	if event.End.DateTime != start.Add(45*time.Minute).Format(time.RFC3339) {
		t.Errorf("End.DateTime = %q", event.End.DateTime)
	}
	if len(event.Attendees) != 1 || event.Attendees[0].Email != "alice@example.com" {
		t.Errorf("Attendees = %+v", event.Attendees)
	}
}

func TestBuildEvent_ReminderOverride(t *testing.T) {
	event := buildEvent(scheduler.ResolvedEvent{
		Name:  "Dinner",
		Start: time.Now(),
		End:   time.Now().Add(time.Hour),
	})

	r := event.Reminders
	if r == nil {
		t.Fatal("Reminders is nil")
	}
	if r.UseDefault {
		t.Error("UseDefault = true, want false")
	}
	if len(r.ForceSendFields) != 1 || r.ForceSendFields[0] != "UseDefault" {
		t.Errorf("ForceSendFields = %v", r.ForceSendFields)
	}
	if len(r.Overrides) != 1 {
		t.Fatalf("len(Overrides) = %d, want 1", len(r.Overrides))
	}
	if r.Overrides[0].Method != "popup" || r.Overrides[0].Minutes != 10 {
		t.Errorf("Override = %+v", r.Overrides[0])
	}
}

func TestBuildEvent_NoAttendees(t *testing.T) {
	event := buildEvent(scheduler.ResolvedEvent{
		Name:  "Solo",
		Start: time.Now(),
		End:   time.Now().Add(time.Hour),
	})
	if event.Attendees != nil {
		t.Errorf("Attendees = %+v, want nil", event.Attendees)
	}
}
