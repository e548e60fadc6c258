package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/teemow/inboxcal/internal/logging"
)

// referenceDateLayout renders the anchor date in long human-readable form,
// e.g. "Thursday, March 27, 2025".
const referenceDateLayout = "Monday, January 2, 2006"

var eventDetailsSchema = &jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"name": {
			Type:        jsonschema.String,
			Description: "Name of the event",
		},
		"start": {
			Type:        jsonschema.String,
			Description: "Date and time of the event (ISO 8601)",
		},
		"duration_minutes": {
			Type:        jsonschema.Integer,
			Description: "Duration in minutes, if the request mentions one",
		},
		"location": {
			Type:        jsonschema.String,
			Description: "Location of the event, if the request mentions one",
		},
		"description": {
			Type:        jsonschema.String,
			Description: "Description of the event",
		},
	},
	Required:             []string{"name", "start", "description"},
	AdditionalProperties: false,
}

// Extractor converts a confirmed scheduling request into structured event
// details via a second structured-output model call.
type Extractor struct {
	completer StructuredCompleter
	logger    *slog.Logger

	// now supplies the reference date; overridable in tests.
	now func() time.Time
}

// NewExtractor creates an Extractor backed by the given structured completer.
func NewExtractor(completer StructuredCompleter, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		completer: completer,
		logger:    logging.WithOperation(logger, "extract"),
		now:       time.Now,
	}
}

// Extract produces event details from a cleaned request description. The
// prompt states the current calendar date so the model can resolve relative
// expressions like "next Tuesday" against a concrete anchor. The anchor is
// the wall-clock time at which extraction runs, not the message's receipt
// time.
func (e *Extractor) Extract(ctx context.Context, description string) (EventDetails, error) {
	system := fmt.Sprintf(
		"Today is %s. Extract details for creating a new calendar event. "+
			"When dates reference 'next Tuesday' or similar relative dates, use this current date as reference.",
		e.now().Format(referenceDateLayout),
	)

	var details EventDetails
	err := e.completer.CompleteStructured(ctx, CompletionRequest{
		Name:         "new_event_details",
		SystemPrompt: system,
		UserText:     description,
		Schema:       eventDetailsSchema,
	}, &details)
	if err != nil {
		return EventDetails{}, fmt.Errorf("extracting event details: %w", err)
	}

	e.logger.Info("event details extracted",
		slog.String("event", details.Name),
		slog.String("start", details.Start),
	)
	return details, nil
}
