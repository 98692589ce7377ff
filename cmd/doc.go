// Package cmd implements the command-line interface for mailtriage.
//
// This package provides the following commands:
//   - triage: Classify inbox messages and record outstanding tasks
//   - tasks: Inspect and update the local task store
//   - stats: Show classification accuracy trends
//   - auth: Authenticate a Google account for mailbox access
//   - serve: Start the MCP server to provide tools for AI assistants
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The triage command is the default command when no subcommand is specified.
package cmd
