// Package triage turns raw model output into persisted tasks.
//
// The builder converts a repaired classification payload (category
// buckets of loosely-typed action items) into strongly-typed
// ActionRecords, defaulting or dropping invalid fields instead of
// failing the batch. The pipeline orchestrates a full run: one model
// call per email, response repair, record building, a single merge
// into the task store, and an append to the accuracy run history.
package triage
