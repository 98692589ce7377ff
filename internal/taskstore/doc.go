// Package taskstore persists outstanding action records between
// classification runs.
//
// The store is backed by a single SQLite database and partitions
// records by action category. It owns all mutation of persisted task
// state; callers never touch the database directly. Saves are merged
// transactionally with last-write-wins semantics for record content,
// while the completed flag is sticky: once a task is marked done, a
// later classification run carrying a stale copy of the record cannot
// revive it. That rule is what lets a UI-triggered completion and a
// background save commute regardless of interleaving.
package taskstore
