package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/teemow/inboxcal/internal/instrumentation"
)

type fakeCalendar struct {
	inserted []ResolvedEvent
	err      error
}

func (f *fakeCalendar) InsertEvent(ctx context.Context, event ResolvedEvent) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.inserted = append(f.inserted, event)
	return "https://calendar.example.com/event/1", nil
}

type fakeMailbox struct {
	messages map[string]NormalizedMessage
	order    []string
	fetchErr map[string]error
	marked   []string
}

func (f *fakeMailbox) ListUnread(ctx context.Context, maxResults int64) ([]string, error) {
	if int64(len(f.order)) > maxResults {
		return f.order[:maxResults], nil
	}
	return f.order, nil
}

func (f *fakeMailbox) FetchMessage(ctx context.Context, id string) (NormalizedMessage, error) {
	if err := f.fetchErr[id]; err != nil {
		return NormalizedMessage{}, err
	}
	return f.messages[id], nil
}

func (f *fakeMailbox) MarkProcessed(ctx context.Context, id string) error {
	f.marked = append(f.marked, id)
	return nil
}

func newTestPipeline(completer StructuredCompleter, cal CalendarWriter, cfg PipelineConfig) *Pipeline {
	resolver, err := NewResolver("")
	if err != nil {
		panic(err)
	}
	return NewPipeline(
		NewRouter(completer, nil),
		NewExtractor(completer, nil),
		resolver,
		cal,
		cfg,
		nil,
		nil,
	)
}

func TestProcess_CreatesEvent(t *testing.T) {
	completer := &stubCompleter{
		decision: RoutingDecision{
			RequestType: RequestTypeNewEvent,
			Confidence:  0.95,
			Description: "Lunch with Alice on April 1 at noon",
		},
		details: EventDetails{
			Name:  "Lunch with Alice",
			Start: "2026-04-01T12:00",
		},
	}
	cal := &fakeCalendar{}
	p := newTestPipeline(completer, cal, PipelineConfig{})

	outcome, err := p.Process(context.Background(), NormalizedMessage{
		ID:     "m1",
		Body:   "lunch april 1st?",
		Sender: "alice@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if outcome == nil || !outcome.Success {
		t.Fatalf("outcome = %+v, want success", outcome)
	}

	if len(cal.inserted) != 1 {
		t.Fatalf("inserted %d events, want 1", len(cal.inserted))
	}
	event := cal.inserted[0]
	if event.Name != "Lunch with Alice" {
		t.Errorf("Name = %q", event.Name)
	}
	if len(event.Attendees) != 1 || event.Attendees[0] != "alice@example.com" {
		t.Errorf("Attendees = %v", event.Attendees)
	}
	if got := event.End.Sub(event.Start); got != time.Hour {
		t.Errorf("duration = %v, want 1h", got)
	}
}

func TestProcess_EmitsStageSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	completer := &stubCompleter{
		decision: RoutingDecision{RequestType: RequestTypeNewEvent, Confidence: 0.9, Description: "d"},
		details:  EventDetails{Name: "x", Start: "2026-04-01"},
	}
	p := newTestPipeline(completer, &fakeCalendar{}, PipelineConfig{})

	if _, err := p.Process(context.Background(), NormalizedMessage{ID: "m", Sender: "a@b.c"}); err != nil {
		t.Fatal(err)
	}

	spans := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range recorder.Ended() {
		spans[s.Name()] = s
	}
	for _, want := range []string{"pipeline.route", "pipeline.extract", "calendar.insert"} {
		if _, ok := spans[want]; !ok {
			t.Errorf("span %q not recorded, got %v", want, recorder.Ended())
		}
	}

	if route, ok := spans["pipeline.route"]; ok {
		found := false
		for _, attr := range route.Attributes() {
			if string(attr.Key) == instrumentation.SpanAttrStage && attr.Value.AsString() == string(StageRoute) {
				found = true
			}
		}
		if !found {
			t.Error("route span is missing the stage attribute")
		}
	}
}

func TestProcess_NoStageSpansOnSkip(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	completer := &stubCompleter{
		decision: RoutingDecision{RequestType: RequestTypeOther, Confidence: 0.9},
	}
	p := newTestPipeline(completer, &fakeCalendar{}, PipelineConfig{})

	if _, err := p.Process(context.Background(), NormalizedMessage{ID: "m", Sender: "a@b.c"}); err != nil {
		t.Fatal(err)
	}

	for _, s := range recorder.Ended() {
		switch s.Name() {
		case "pipeline.extract", "calendar.insert":
			t.Errorf("span %q recorded for a skipped message", s.Name())
		}
	}
}

func TestProcess_ConfidenceGate(t *testing.T) {
	tests := []struct {
		name        string
		requestType RequestType
		confidence  float64
		wantCreated bool
	}{
		{"confident new event", RequestTypeNewEvent, 0.95, true},
		{"at threshold", RequestTypeNewEvent, 0.70, true},
		{"below threshold", RequestTypeNewEvent, 0.69, false},
		{"confident other", RequestTypeOther, 0.99, false},
		{"unconfident other", RequestTypeOther, 0.10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &stubCompleter{
				decision: RoutingDecision{
					RequestType: tt.requestType,
					Confidence:  tt.confidence,
					Description: "whatever",
				},
				details: EventDetails{Name: "x", Start: "2026-04-01"},
			}
			cal := &fakeCalendar{}
			p := newTestPipeline(completer, cal, PipelineConfig{})

			outcome, err := p.Process(context.Background(), NormalizedMessage{ID: "m", Sender: "a@b.c"})
			if err != nil {
				t.Fatal(err)
			}

			if tt.wantCreated {
				if outcome == nil {
					t.Fatal("outcome = nil, want created event")
				}
				if len(cal.inserted) != 1 {
					t.Errorf("inserted %d events, want 1", len(cal.inserted))
				}
			} else {
				if outcome != nil {
					t.Errorf("outcome = %+v, want nil skip", outcome)
				}
				if len(cal.inserted) != 0 {
					t.Errorf("inserted %d events, want none", len(cal.inserted))
				}
				// A skip must cost exactly one model call.
				if len(completer.requests) != 1 {
					t.Errorf("completer called %d times, want 1", len(completer.requests))
				}
			}
		})
	}
}

func TestProcess_UnparsableStartFailsMessage(t *testing.T) {
	completer := &stubCompleter{
		decision: RoutingDecision{RequestType: RequestTypeNewEvent, Confidence: 0.9, Description: "d"},
		details:  EventDetails{Name: "x", Start: "sometime soon"},
	}
	cal := &fakeCalendar{}
	p := newTestPipeline(completer, cal, PipelineConfig{})

	_, err := p.Process(context.Background(), NormalizedMessage{ID: "m", Sender: "a@b.c"})
	if !IsParseError(err) {
		t.Fatalf("err = %v, want ParseError", err)
	}
	if len(cal.inserted) != 0 {
		t.Error("no event should be inserted on resolve failure")
	}
}

func TestProcess_InsertFailure(t *testing.T) {
	completer := &stubCompleter{
		decision: RoutingDecision{RequestType: RequestTypeNewEvent, Confidence: 0.9, Description: "d"},
		details:  EventDetails{Name: "x", Start: "2026-04-01"},
	}
	cal := &fakeCalendar{err: errors.New("quota exceeded")}
	p := newTestPipeline(completer, cal, PipelineConfig{})

	if _, err := p.Process(context.Background(), NormalizedMessage{ID: "m", Sender: "a@b.c"}); err == nil {
		t.Fatal("expected error")
	}
}

// routeByBody routes per message body so a batch can mix outcomes.
type routeByBody struct {
	stubCompleter
}

func (r *routeByBody) CompleteStructured(ctx context.Context, req CompletionRequest, out any) error {
	if decision, ok := out.(*RoutingDecision); ok {
		switch req.UserText {
		case "schedule me":
			*decision = RoutingDecision{RequestType: RequestTypeNewEvent, Confidence: 0.9, Description: "d"}
		case "newsletter":
			*decision = RoutingDecision{RequestType: RequestTypeOther, Confidence: 0.9}
		default:
			return fmt.Errorf("model unavailable")
		}
		return nil
	}
	return r.stubCompleter.CompleteStructured(ctx, req, out)
}

func TestProcessBatch_MessageFailureDoesNotAbort(t *testing.T) {
	completer := &routeByBody{stubCompleter: stubCompleter{
		details: EventDetails{Name: "x", Start: "2026-04-01"},
	}}
	cal := &fakeCalendar{}
	p := newTestPipeline(completer, cal, PipelineConfig{})

	mailbox := &fakeMailbox{
		order: []string{"m1", "m2", "m3", "m4"},
		messages: map[string]NormalizedMessage{
			"m1": {ID: "m1", Body: "broken", Sender: "a@b.c"},
			"m2": {ID: "m2", Body: "schedule me", Sender: "a@b.c"},
			"m3": {ID: "m3", Body: "newsletter", Sender: "a@b.c"},
			"m4": {ID: "m4", Body: "schedule me", Sender: "d@e.f"},
		},
	}

	result, err := p.ProcessBatch(context.Background(), mailbox, 10)
	if err != nil {
		t.Fatal(err)
	}

	if result.Processed != 4 {
		t.Errorf("Processed = %d, want 4", result.Processed)
	}
	if result.Created != 2 {
		t.Errorf("Created = %d, want 2", result.Created)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}
	if len(cal.inserted) != 2 {
		t.Errorf("inserted %d events, want 2", len(cal.inserted))
	}
}

func TestProcessBatch_FetchFailureIsIsolated(t *testing.T) {
	completer := &stubCompleter{
		decision: RoutingDecision{RequestType: RequestTypeNewEvent, Confidence: 0.9, Description: "d"},
		details:  EventDetails{Name: "x", Start: "2026-04-01"},
	}
	p := newTestPipeline(completer, &fakeCalendar{}, PipelineConfig{})

	mailbox := &fakeMailbox{
		order: []string{"m1", "m2"},
		messages: map[string]NormalizedMessage{
			"m2": {ID: "m2", Body: "schedule me", Sender: "a@b.c"},
		},
		fetchErr: map[string]error{"m1": errors.New("gone")},
	}

	result, err := p.ProcessBatch(context.Background(), mailbox, 10)
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed != 1 || result.Created != 1 {
		t.Errorf("result = %+v, want 1 failed and 1 created", result)
	}
}

func TestProcessBatch_MarkProcessed(t *testing.T) {
	completer := &routeByBody{stubCompleter: stubCompleter{
		details: EventDetails{Name: "x", Start: "2026-04-01"},
	}}
	p := newTestPipeline(completer, &fakeCalendar{}, PipelineConfig{MarkProcessed: true})

	mailbox := &fakeMailbox{
		order: []string{"created", "skipped", "failed"},
		messages: map[string]NormalizedMessage{
			"created": {ID: "created", Body: "schedule me", Sender: "a@b.c"},
			"skipped": {ID: "skipped", Body: "newsletter", Sender: "a@b.c"},
			"failed":  {ID: "failed", Body: "broken", Sender: "a@b.c"},
		},
	}

	if _, err := p.ProcessBatch(context.Background(), mailbox, 10); err != nil {
		t.Fatal(err)
	}

	// Created and skipped messages are marked; failed ones stay unread for
	// a later retry.
	want := map[string]bool{"created": true, "skipped": true}
	if len(mailbox.marked) != len(want) {
		t.Fatalf("marked = %v, want created and skipped only", mailbox.marked)
	}
	for _, id := range mailbox.marked {
		if !want[id] {
			t.Errorf("unexpected marked message %q", id)
		}
	}
}

func TestProcessBatch_MarkDisabledByDefault(t *testing.T) {
	completer := &stubCompleter{
		decision: RoutingDecision{RequestType: RequestTypeOther, Confidence: 0.9},
	}
	p := newTestPipeline(completer, &fakeCalendar{}, PipelineConfig{})

	mailbox := &fakeMailbox{
		order:    []string{"m1"},
		messages: map[string]NormalizedMessage{"m1": {ID: "m1", Body: "x", Sender: "a@b.c"}},
	}

	if _, err := p.ProcessBatch(context.Background(), mailbox, 10); err != nil {
		t.Fatal(err)
	}
	if len(mailbox.marked) != 0 {
		t.Errorf("marked = %v, want none", mailbox.marked)
	}
}

func TestProcessBatch_RespectsCap(t *testing.T) {
	completer := &stubCompleter{
		decision: RoutingDecision{RequestType: RequestTypeOther, Confidence: 0.9},
	}
	p := newTestPipeline(completer, &fakeCalendar{}, PipelineConfig{})

	mailbox := &fakeMailbox{messages: map[string]NormalizedMessage{}}
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("m%d", i)
		mailbox.order = append(mailbox.order, id)
		mailbox.messages[id] = NormalizedMessage{ID: id, Body: "x", Sender: "a@b.c"}
	}

	result, err := p.ProcessBatch(context.Background(), mailbox, 0)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != DefaultMaxMessages {
		t.Errorf("Processed = %d, want %d", result.Processed, DefaultMaxMessages)
	}
}

func TestProcessBatch_ListFailureAborts(t *testing.T) {
	p := newTestPipeline(&stubCompleter{}, &fakeCalendar{}, PipelineConfig{})

	if _, err := p.ProcessBatch(context.Background(), failingMailbox{}, 10); err == nil {
		t.Fatal("expected error")
	}
}

type failingMailbox struct{}

func (failingMailbox) ListUnread(ctx context.Context, maxResults int64) ([]string, error) {
	return nil, errors.New("auth expired")
}

func (failingMailbox) FetchMessage(ctx context.Context, id string) (NormalizedMessage, error) {
	return NormalizedMessage{}, errors.New("unreachable")
}
