// Package accuracy_tools provides MCP tools for classification accuracy
// history.
//
// # Available Tools
//
//   - accuracy_get_trends: Recent-window accuracy (latest rate, average, run count)
//   - accuracy_get_dashboard: All-time accuracy and per-category correction totals
//   - accuracy_record_session: Record a review session (write mode only)
//
// # Write Gating
//
// accuracy_record_session appends to the accuracy history and is only
// registered when the server is started with write tools enabled.
package accuracy_tools
