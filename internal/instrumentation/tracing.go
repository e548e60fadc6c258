package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the inboxcal package.
const TracerName = "github.com/teemow/inboxcal"

// Span attribute keys for operations.
const (
	// SpanAttrService is the Google service name attribute.
	SpanAttrService = "google.service"

	// SpanAttrOperation is the operation type attribute.
	SpanAttrOperation = "google.operation"

	// SpanAttrStage is the pipeline stage attribute.
	SpanAttrStage = "pipeline.stage"

	// SpanAttrMessageID is the mailbox message identifier attribute.
	SpanAttrMessageID = "pipeline.message_id"

	// SpanAttrResult is the terminal result attribute for a message.
	SpanAttrResult = "pipeline.result"
)

// StartSpan starts a span on the global tracer with consistent naming.
// It is a convenience for call sites that do not hold a Provider.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan ends a span, recording err when non-nil.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
