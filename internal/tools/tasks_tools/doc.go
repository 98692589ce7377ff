// Package tasks_tools provides MCP tools for the outstanding task store.
//
// This package implements MCP (Model Context Protocol) tools that expose
// the tasks recorded by triage runs, letting AI assistants review and
// resolve outstanding work items.
//
// # Available Tools
//
//   - tasks_list_outstanding: List outstanding tasks grouped by action type
//   - tasks_mark_completed: Mark tasks as completed (write mode only)
//
// # Write Gating
//
// tasks_mark_completed modifies stored state and is only registered when
// the server is started with write tools enabled.
package tasks_tools
