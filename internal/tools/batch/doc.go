// Package batch provides helpers for MCP tools that operate on
// multiple task ids at once.
//
// It covers parsing arguments that accept a single id or an array,
// running an operation per id with partial-failure collection, and
// formatting the aggregated results as JSON.
package batch
