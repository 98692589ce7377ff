// Package triage_tools provides the MCP tool that drives email triage.
//
// triage_run fetches emails from the mailbox, classifies each one with
// the AI completer, and records the resulting action items in the task
// store. Per-email classification failures degrade to warnings in the
// run summary rather than failing the run.
//
// All tools support an optional 'account' parameter to select among
// multiple authenticated Google accounts.
package triage_tools
