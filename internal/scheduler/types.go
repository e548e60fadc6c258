package scheduler

import (
	"context"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// RequestType is the router's classification of a message.
type RequestType string

const (
	// RequestTypeNewEvent indicates the message asks, explicitly or
	// implicitly, to schedule a new calendar event.
	RequestTypeNewEvent RequestType = "new_event"

	// RequestTypeOther indicates any other kind of message.
	RequestTypeOther RequestType = "other"
)

// UnknownSender is the sender placeholder used when a message carries
// no From header.
const UnknownSender = "(Unknown sender)"

// NormalizedMessage is a raw email reduced to what the pipeline needs:
// a plain-text body and a sender identifier. It is produced once per raw
// message and never mutated.
type NormalizedMessage struct {
	ID     string
	Body   string
	Sender string
}

// RoutingDecision is the router's verdict for a single message.
type RoutingDecision struct {
	RequestType RequestType `json:"request_type"`
	Confidence  float64     `json:"confidence_score"`
	Description string      `json:"description"`
}

// EventDetails holds the extractor's structured output. Start is an
// ISO-8601 date-time that may omit a UTC offset; the resolver decides how
// to interpret it. A nil DurationMinutes means the default duration applies.
type EventDetails struct {
	Name            string `json:"name"`
	Start           string `json:"start"`
	DurationMinutes *int   `json:"duration_minutes"`
	Location        string `json:"location"`
	Description     string `json:"description"`
}

// ResolvedEvent is a timezone-aware event ready for calendar insertion.
// End is always after Start, and Attendees always holds exactly one entry:
// the sender of the originating message.
type ResolvedEvent struct {
	Name        string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

// Outcome is the terminal artifact of a successfully processed message.
type Outcome struct {
	Success      bool
	Message      string
	CalendarLink string
}

// CompletionRequest describes a single structured-output model call.
type CompletionRequest struct {
	// Name identifies the output schema to the model provider.
	Name string

	// SystemPrompt carries the stage instructions.
	SystemPrompt string

	// UserText is the message text or cleaned request description.
	UserText string

	// Schema constrains the model output.
	Schema *jsonschema.Definition
}

// StructuredCompleter is the language-model capability the pipeline
// consumes. Implementations must unmarshal the model output into out and
// return a *ParseError when the output does not conform to the schema.
type StructuredCompleter interface {
	CompleteStructured(ctx context.Context, req CompletionRequest, out any) error
}

// Mailbox is the message source the batch driver consumes.
type Mailbox interface {
	// ListUnread returns the IDs of up to maxResults unread messages.
	ListUnread(ctx context.Context, maxResults int64) ([]string, error)

	// FetchMessage retrieves and normalizes a single message.
	FetchMessage(ctx context.Context, id string) (NormalizedMessage, error)
}

// MessageMarker is implemented by mailboxes that can mark a message as
// processed so the next poll does not pick it up again.
type MessageMarker interface {
	MarkProcessed(ctx context.Context, id string) error
}

// CalendarWriter inserts a resolved event into the target calendar and
// returns a reference to the created remote event.
type CalendarWriter interface {
	InsertEvent(ctx context.Context, event ResolvedEvent) (string, error)
}
