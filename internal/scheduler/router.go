package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/teemow/inboxcal/internal/logging"
)

// routerSystemPrompt instructs the model to catch both explicit scheduling
// language and implicit requests that only suggest a time for a conversation.
const routerSystemPrompt = "Determine if this text includes a request to schedule a new calendar event. " +
	"The user may explicitly mention 'schedule', 'set up', or 'add an event', " +
	"but they might also imply it by suggesting a time for a conversation, meeting, or discussion. " +
	"Examples of implicit event requests include: " +
	"'Are you free to chat at 3 PM?' or 'Let's catch up on Monday afternoon'. " +
	"Consider context when deciding if this is an event request."

var routingSchema = &jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"request_type": {
			Type:        jsonschema.String,
			Enum:        []string{string(RequestTypeNewEvent), string(RequestTypeOther)},
			Description: "Type of calendar request being made",
		},
		"confidence_score": {
			Type:        jsonschema.Number,
			Description: "Confidence score between 0 and 1",
		},
		"description": {
			Type:        jsonschema.String,
			Description: "Cleaned description of the request",
		},
	},
	Required:             []string{"request_type", "confidence_score", "description"},
	AdditionalProperties: false,
}

// Router classifies normalized message text. It is stateless per call; no
// conversation history is carried between messages.
type Router struct {
	completer StructuredCompleter
	logger    *slog.Logger
}

// NewRouter creates a Router backed by the given structured completer.
func NewRouter(completer StructuredCompleter, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		completer: completer,
		logger:    logging.WithOperation(logger, "route"),
	}
}

// Route classifies text into a RoutingDecision with a single model call.
// A non-conforming model response surfaces as a *ParseError; there is no
// fallback heuristic.
func (r *Router) Route(ctx context.Context, text string) (RoutingDecision, error) {
	var decision RoutingDecision
	err := r.completer.CompleteStructured(ctx, CompletionRequest{
		Name:         "calendar_request_type",
		SystemPrompt: routerSystemPrompt,
		UserText:     text,
		Schema:       routingSchema,
	}, &decision)
	if err != nil {
		return RoutingDecision{}, fmt.Errorf("routing request: %w", err)
	}

	switch decision.RequestType {
	case RequestTypeNewEvent, RequestTypeOther:
	default:
		return RoutingDecision{}, &ParseError{
			Stage: StageRoute,
			Raw:   string(decision.RequestType),
			Err:   fmt.Errorf("unknown request type %q", decision.RequestType),
		}
	}

	r.logger.Info("request routed",
		slog.String("request_type", string(decision.RequestType)),
		slog.Float64("confidence", decision.Confidence),
	)
	return decision, nil
}
