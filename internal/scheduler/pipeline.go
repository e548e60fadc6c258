package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/teemow/inboxcal/internal/instrumentation"
	"github.com/teemow/inboxcal/internal/logging"
)

const (
	// DefaultConfidenceThreshold gates extraction: routing decisions below
	// it are skipped, not acted on.
	DefaultConfidenceThreshold = 0.70

	// DefaultCallTimeout bounds each external call (model, calendar).
	DefaultCallTimeout = 30 * time.Second

	// DefaultMaxMessages caps a single poll.
	DefaultMaxMessages = 10
)

// PipelineConfig holds the tunable parameters of the pipeline.
type PipelineConfig struct {
	// ConfidenceThreshold below which routing decisions are skipped.
	// Zero means DefaultConfidenceThreshold.
	ConfidenceThreshold float64

	// CallTimeout bounds each external call. Zero means DefaultCallTimeout.
	CallTimeout time.Duration

	// Model names the chat model serving both stages, used as a metric
	// label when detailed labels are enabled. May be empty.
	Model string

	// MarkProcessed marks messages as processed after a successful or
	// intentionally skipped run, so the next poll does not re-create
	// events for them. Requires the mailbox to implement MessageMarker.
	MarkProcessed bool
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	Processed int
	Created   int
	Skipped   int
	Failed    int
}

// Pipeline sequences normalize, route, gate, extract, resolve, and insert
// for each message of a batch. Messages are processed independently and
// sequentially; there is no shared state between them.
type Pipeline struct {
	router    *Router
	extractor *Extractor
	resolver  *Resolver
	calendar  CalendarWriter
	cfg       PipelineConfig
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	tracer    trace.Tracer
}

// NewPipeline creates a Pipeline. provider may be nil, in which case
// metrics and tracing are no-ops.
func NewPipeline(router *Router, extractor *Extractor, resolver *Resolver, calendar CalendarWriter, cfg PipelineConfig, logger *slog.Logger, provider *instrumentation.Provider) *Pipeline {
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics := &instrumentation.Metrics{}
	tracer := noop.NewTracerProvider().Tracer(instrumentation.TracerName)
	if provider != nil {
		metrics = provider.Metrics()
		tracer = provider.Tracer(instrumentation.TracerName)
	}

	return &Pipeline{
		router:    router,
		extractor: extractor,
		resolver:  resolver,
		calendar:  calendar,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
	}
}

// Process runs one message through the pipeline. A (nil, nil) return means
// the message was intentionally skipped: the routing confidence fell below
// the threshold, or the message is not a new-event request. Any returned
// error is fatal for this message only.
func (p *Pipeline) Process(ctx context.Context, msg NormalizedMessage) (outcome *Outcome, err error) {
	logger := p.logger.With(
		slog.String(logging.KeyMessageID, msg.ID),
		logging.SenderHash(msg.Sender),
	)

	ctx, span := p.tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(attribute.String(instrumentation.SpanAttrMessageID, msg.ID)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	decision, err := p.route(ctx, msg.Body)
	if err != nil {
		return nil, err
	}

	if decision.Confidence < p.cfg.ConfidenceThreshold {
		logger.Info("skipping message below confidence threshold",
			slog.Float64("confidence", decision.Confidence),
			slog.Float64("threshold", p.cfg.ConfidenceThreshold),
		)
		span.SetAttributes(attribute.String(instrumentation.SpanAttrResult, instrumentation.ResultSkipped))
		return nil, nil
	}
	if decision.RequestType != RequestTypeNewEvent {
		logger.Info("skipping non-event message",
			slog.String("request_type", string(decision.RequestType)),
		)
		span.SetAttributes(attribute.String(instrumentation.SpanAttrResult, instrumentation.ResultSkipped))
		return nil, nil
	}

	details, err := p.extract(ctx, decision.Description)
	if err != nil {
		return nil, err
	}

	resolved, err := p.resolver.Resolve(details, msg.Sender)
	if err != nil {
		return nil, err
	}

	eventRef, err := p.insert(ctx, resolved)
	if err != nil {
		return nil, err
	}

	logger.Info("calendar event created",
		slog.String("event", resolved.Name),
		slog.Time("start", resolved.Start),
		slog.Time("end", resolved.End),
		slog.String("event_ref", eventRef),
	)
	span.SetAttributes(attribute.String(instrumentation.SpanAttrResult, instrumentation.ResultCreated))

	return &Outcome{
		Success:      true,
		Message:      fmt.Sprintf("Created new event %q for %s with %s", details.Name, details.Start, msg.Sender),
		CalendarLink: "calendar://new?event=" + url.QueryEscape(details.Name),
	}, nil
}

func (p *Pipeline) route(ctx context.Context, text string) (decision RoutingDecision, err error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()

	ctx, span := instrumentation.StartSpan(ctx, "pipeline.route",
		attribute.String(instrumentation.SpanAttrStage, string(StageRoute)),
	)
	defer func() { instrumentation.EndSpan(span, err) }()

	start := time.Now()
	decision, err = p.router.Route(ctx, text)
	p.metrics.RecordLLMRequest(ctx, string(StageRoute), statusOf(err), p.cfg.Model, time.Since(start))
	return decision, err
}

func (p *Pipeline) extract(ctx context.Context, description string) (details EventDetails, err error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()

	ctx, span := instrumentation.StartSpan(ctx, "pipeline.extract",
		attribute.String(instrumentation.SpanAttrStage, string(StageExtract)),
	)
	defer func() { instrumentation.EndSpan(span, err) }()

	start := time.Now()
	details, err = p.extractor.Extract(ctx, description)
	p.metrics.RecordLLMRequest(ctx, string(StageExtract), statusOf(err), p.cfg.Model, time.Since(start))
	return details, err
}

func (p *Pipeline) insert(ctx context.Context, event ResolvedEvent) (ref string, err error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()

	ctx, span := instrumentation.StartSpan(ctx, "calendar.insert",
		attribute.String(instrumentation.SpanAttrService, instrumentation.ServiceCalendar),
		attribute.String(instrumentation.SpanAttrOperation, "events.insert"),
	)
	defer func() { instrumentation.EndSpan(span, err) }()

	ref, err = p.calendar.InsertEvent(ctx, event)
	if err != nil {
		return "", fmt.Errorf("inserting calendar event: %w", err)
	}
	return ref, nil
}

// ProcessBatch polls the mailbox once and processes each unread message
// independently. A message failure is logged and counted, never propagated;
// only a failure to list the mailbox aborts the batch.
func (p *Pipeline) ProcessBatch(ctx context.Context, mailbox Mailbox, maxResults int64) (BatchResult, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxMessages
	}

	logger := p.logger.With(slog.String("run_id", uuid.NewString()))

	start := time.Now()
	ids, err := mailbox.ListUnread(ctx, maxResults)
	if err != nil {
		return BatchResult{}, fmt.Errorf("listing unread messages: %w", err)
	}
	logger.Info("processing batch", slog.Int("messages", len(ids)))

	var result BatchResult
	for _, id := range ids {
		result.Processed++

		msg, err := mailbox.FetchMessage(ctx, id)
		if err != nil {
			result.Failed++
			p.metrics.RecordMessageProcessed(ctx, instrumentation.ResultFailed)
			logger.Error("failed to fetch message",
				slog.String(logging.KeyMessageID, id),
				logging.Err(err),
			)
			continue
		}

		outcome, err := p.Process(ctx, msg)
		switch {
		case err != nil:
			result.Failed++
			p.metrics.RecordMessageProcessed(ctx, instrumentation.ResultFailed)
			attrs := []any{slog.String(logging.KeyMessageID, id), logging.Err(err)}
			var pe *ParseError
			if errors.As(err, &pe) {
				attrs = append(attrs, slog.String("raw_output", pe.Raw))
			}
			logger.Error("failed to process message", attrs...)
			continue
		case outcome == nil:
			result.Skipped++
			p.metrics.RecordMessageProcessed(ctx, instrumentation.ResultSkipped)
		default:
			result.Created++
			p.metrics.RecordMessageProcessed(ctx, instrumentation.ResultCreated)
			logger.Info(outcome.Message, slog.String("calendar_link", outcome.CalendarLink))
		}

		p.markProcessed(ctx, mailbox, id, logger)
	}

	p.metrics.RecordBatch(ctx, time.Since(start))
	logger.Info("batch complete",
		slog.Int("processed", result.Processed),
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
		slog.Duration(logging.KeyDuration, time.Since(start)),
	)
	return result, nil
}

// markProcessed marks a message as handled after a successful or skipped
// run. Failed messages stay unread so a later poll can retry them.
func (p *Pipeline) markProcessed(ctx context.Context, mailbox Mailbox, id string, logger *slog.Logger) {
	if !p.cfg.MarkProcessed {
		return
	}
	marker, ok := mailbox.(MessageMarker)
	if !ok {
		return
	}
	if err := marker.MarkProcessed(ctx, id); err != nil {
		logger.Warn("failed to mark message as processed",
			slog.String(logging.KeyMessageID, id),
			logging.Err(err),
		)
	}
}

func statusOf(err error) string {
	if err != nil {
		return instrumentation.StatusError
	}
	return instrumentation.StatusSuccess
}
