// Package server provides the MCP server context, health checks, and the
// Prometheus metrics server for the mailtriage application.
//
// ServerContext wires the triage dependencies together for tool handlers:
// mailbox clients (lazily created per account), the outstanding task store,
// the accuracy tracker, the AI completer, and the triage pipeline. Metrics
// and audit logging are optional; accessors return nil when instrumentation
// is disabled.
//
// HealthChecker exposes /healthz and /readyz endpoints for liveness and
// readiness probes. MetricsServer serves /metrics on a dedicated port so
// operational metrics stay off the MCP transport.
package server
