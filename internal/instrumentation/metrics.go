package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrTool      = "tool"
	attrAccount   = "account"
	attrOutcome   = "outcome"
	attrCategory  = "category"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Mailbox API metrics
	mailboxOperationsTotal   metric.Int64Counter
	mailboxOperationDuration metric.Float64Histogram

	// Triage pipeline metrics
	triageRunsTotal       metric.Int64Counter
	emailsClassifiedTotal metric.Int64Counter
	repairOutcomesTotal   metric.Int64Counter
	actionsRecordedTotal  metric.Int64Counter

	// Store metrics
	storeOperationDuration metric.Float64Histogram

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

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

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	// Mailbox API Metrics
	m.mailboxOperationsTotal, err = meter.Int64Counter(
		"mailbox_operations_total",
		metric.WithDescription("Total number of mailbox API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailbox_operations_total counter: %w", err)
	}

	m.mailboxOperationDuration, err = meter.Float64Histogram(
		"mailbox_operation_duration_seconds",
		metric.WithDescription("Mailbox API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailbox_operation_duration_seconds histogram: %w", err)
	}

	// Triage Pipeline Metrics
	m.triageRunsTotal, err = meter.Int64Counter(
		"triage_runs_total",
		metric.WithDescription("Total number of triage runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage_runs_total counter: %w", err)
	}

	m.emailsClassifiedTotal, err = meter.Int64Counter(
		"emails_classified_total",
		metric.WithDescription("Total number of emails sent through classification"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create emails_classified_total counter: %w", err)
	}

	m.repairOutcomesTotal, err = meter.Int64Counter(
		"repair_outcomes_total",
		metric.WithDescription("Total number of model response repair attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create repair_outcomes_total counter: %w", err)
	}

	m.actionsRecordedTotal, err = meter.Int64Counter(
		"actions_recorded_total",
		metric.WithDescription("Total number of action records saved by category"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create actions_recorded_total counter: %w", err)
	}

	// Store Metrics
	m.storeOperationDuration, err = meter.Float64Histogram(
		"store_operation_duration_seconds",
		metric.WithDescription("Durable store operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store_operation_duration_seconds histogram: %w", err)
	}

	// MCP Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordMailboxOperation records a mailbox API operation with service, operation,
// status, and duration.
//
// Parameters:
//   - service: mailbox backend name (gmail)
//   - operation: Operation type (list, get, etc.)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordMailboxOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m.mailboxOperationsTotal == nil || m.mailboxOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.mailboxOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.mailboxOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordTriageRun records a completed (or failed) triage run.
// Status should be one of: "success", "error"
func (m *Metrics) RecordTriageRun(ctx context.Context, status string) {
	if m.triageRunsTotal == nil {
		return // Instrumentation not initialized
	}

	m.triageRunsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrStatus, status),
	))
}

// RecordEmailsClassified adds the number of emails processed in a run.
func (m *Metrics) RecordEmailsClassified(ctx context.Context, count int) {
	if m.emailsClassifiedTotal == nil {
		return // Instrumentation not initialized
	}

	m.emailsClassifiedTotal.Add(ctx, int64(count))
}

// RecordRepairOutcome records one model-response repair attempt.
// Outcome is "clean" for already-valid responses, the name of the
// repair pass that succeeded, or "failed".
func (m *Metrics) RecordRepairOutcome(ctx context.Context, outcome string) {
	if m.repairOutcomesTotal == nil {
		return // Instrumentation not initialized
	}

	m.repairOutcomesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOutcome, outcome),
	))
}

// RecordActionsRecorded adds count saved action records for a category.
func (m *Metrics) RecordActionsRecorded(ctx context.Context, category string, count int) {
	if m.actionsRecordedTotal == nil {
		return // Instrumentation not initialized
	}

	m.actionsRecordedTotal.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String(attrCategory, category),
	))
}

// RecordStoreOperation records the duration of a durable store operation.
//
// Parameters:
//   - operation: store operation name (save, load, mark_completed, record_session)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordStoreOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m.storeOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.storeOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "triage_run", "tasks_mark_completed")
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocationWithAccount records an MCP tool invocation with account info.
// This is the detailed version that includes account information when detailedLabels is enabled.
func (m *Metrics) RecordToolInvocationWithAccount(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
