package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	attrOperation = "operation"
	attrService   = "service"
	attrStatus    = "status"
	attrResult    = "result"
	attrStage     = "stage"
	attrModel     = "model"
	attrAccount   = "account"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// Message pipeline metrics
	messagesProcessedTotal metric.Int64Counter
	batchDuration          metric.Float64Histogram

	// Language model metrics
	llmRequestsTotal   metric.Int64Counter
	llmRequestDuration metric.Float64Histogram

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// OAuth metrics
	oauthTokenRefreshTotal metric.Int64Counter

	// Configuration
	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.messagesProcessedTotal, err = meter.Int64Counter(
		"messages_processed_total",
		metric.WithDescription("Total number of inbox messages run through the scheduling pipeline"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create messages_processed_total counter: %w", err)
	}

	m.batchDuration, err = meter.Float64Histogram(
		"batch_duration_seconds",
		metric.WithDescription("Duration of one inbox poll batch in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch_duration_seconds histogram: %w", err)
	}

	m.llmRequestsTotal, err = meter.Int64Counter(
		"llm_requests_total",
		metric.WithDescription("Total number of language model requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_requests_total counter: %w", err)
	}

	m.llmRequestDuration, err = meter.Float64Histogram(
		"llm_request_duration_seconds",
		metric.WithDescription("Language model request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_request_duration_seconds histogram: %w", err)
	}

	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	m.oauthTokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	return m, nil
}

// RecordMessageProcessed records the terminal result of one message.
// Result should be one of: "created", "skipped", "failed".
func (m *Metrics) RecordMessageProcessed(ctx context.Context, result string) {
	if m == nil || m.messagesProcessedTotal == nil {
		return // Instrumentation not initialized
	}

	m.messagesProcessedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordBatch records the duration of one inbox poll batch.
func (m *Metrics) RecordBatch(ctx context.Context, duration time.Duration) {
	if m == nil || m.batchDuration == nil {
		return // Instrumentation not initialized
	}

	m.batchDuration.Record(ctx, duration.Seconds())
}

// RecordLLMRequest records a language model request with pipeline stage,
// status, and duration. The model label is only attached when detailed
// labels are enabled; the model name is bounded but still multiplies series.
//
// Parameters:
//   - stage: Pipeline stage issuing the request ("route" or "extract")
//   - status: Result status ("success" or "error")
//   - model: Chat model name; may be empty
//   - duration: Time taken for the request
func (m *Metrics) RecordLLMRequest(ctx context.Context, stage, status, model string, duration time.Duration) {
	if m == nil || m.llmRequestsTotal == nil || m.llmRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStage, stage),
		attribute.String(attrStatus, status),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && model != "" {
		attrs = append(attrs, attribute.String(attrModel, model))
	}

	m.llmRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.llmRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordGoogleAPIOperation records a Google API operation with service,
// operation, status, and duration.
//
// Parameters:
//   - service: Google service name ("gmail" or "calendar")
//   - operation: Operation type (list, get, insert, modify, etc.)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthTokenRefresh records an OAuth token refresh attempt with result.
// Result should be one of: "success", "error"
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return // Instrumentation not initialized
	}

	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}
