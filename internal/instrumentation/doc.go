// Package instrumentation provides comprehensive OpenTelemetry instrumentation
// for the mailtriage MCP server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, mailbox API calls, and the triage pipeline
//   - Distributed tracing for request flows and API calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Mailbox API Metrics:
//   - mailbox_operations_total: Counter of mailbox API operations by service, operation, status
//   - mailbox_operation_duration_seconds: Histogram of mailbox API operation durations
//
// Triage Pipeline Metrics:
//   - triage_runs_total: Counter of triage runs by status
//   - emails_classified_total: Counter of emails sent through classification
//   - repair_outcomes_total: Counter of model-response repair attempts by outcome
//   - actions_recorded_total: Counter of saved action records by category
//   - store_operation_duration_seconds: Histogram of durable store operation durations
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - HTTP request handling
//   - MCP tool invocations (tool.<name>)
//   - Mailbox API calls (mailbox.<service>.<operation>)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: mailtriage)
//
// # Example Usage
//
//	// Initialize instrumentation
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "mailtriage",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	// Get metrics recorder
//	recorder := provider.Metrics()
//
//	// Record an HTTP request
//	recorder.RecordHTTPRequest(ctx, "POST", "/mcp", 200, time.Since(start))
//
//	// Record a mailbox API operation
//	recorder.RecordMailboxOperation(ctx, "gmail", "list", "success", time.Since(start))
//
//	// Record an MCP tool invocation
//	recorder.RecordToolInvocation(ctx, "triage_run", "success", time.Since(start))
package instrumentation
