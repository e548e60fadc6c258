package scheduler

import (
	"fmt"
	"time"
)

const (
	// DefaultTimeZone is the named civil timezone all events are anchored
	// to. Every event lands in this zone regardless of sender or
	// model-inferred timezone; this is a deliberate simplification.
	DefaultTimeZone = "America/New_York"

	// DefaultDurationMinutes applies when the extractor reports no duration.
	DefaultDurationMinutes = 60
)

// startLayouts are the accepted shapes for the extractor's start date-time,
// tried in order. Offset-bearing values are converted into the configured
// zone; naive values are interpreted as wall-clock time in it.
var startLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Resolver turns extracted event details into a timezone-aware event.
// Resolution is a pure function of its input.
type Resolver struct {
	loc *time.Location
}

// NewResolver creates a Resolver anchored to the named timezone.
func NewResolver(timeZone string) (*Resolver, error) {
	if timeZone == "" {
		timeZone = DefaultTimeZone
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timeZone, err)
	}
	return &Resolver{loc: loc}, nil
}

// Location returns the timezone events are anchored to.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve computes the event window and attendee list. The sender becomes
// the single attendee. An unparsable start date-time is a *ParseError.
func (r *Resolver) Resolve(details EventDetails, sender string) (ResolvedEvent, error) {
	start, err := r.parseStart(details.Start)
	if err != nil {
		return ResolvedEvent{}, err
	}

	duration := time.Duration(DefaultDurationMinutes) * time.Minute
	if details.DurationMinutes != nil && *details.DurationMinutes > 0 {
		duration = time.Duration(*details.DurationMinutes) * time.Minute
	}

	return ResolvedEvent{
		Name:        details.Name,
		Location:    details.Location,
		Description: details.Description,
		Start:       start,
		End:         start.Add(duration),
		Attendees:   []string{sender},
	}, nil
}

func (r *Resolver) parseStart(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(r.loc), nil
	}
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, value, r.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ParseError{
		Stage: StageResolve,
		Raw:   value,
		Err:   fmt.Errorf("unparsable start date-time %q", value),
	}
}
