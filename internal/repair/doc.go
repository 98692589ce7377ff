// Package repair recovers parseable JSON from malformed AI model output.
//
// Language models asked to answer in JSON routinely wrap the object in
// prose or markdown fences, truncate it mid-string, leave trailing
// commas, or emit raw control characters inside literals. This package
// applies an ordered list of heuristic repair passes, re-validating the
// text after each one and stopping at the first pass that yields valid
// JSON. Already-valid input is returned unchanged, so repair is
// idempotent.
//
// The package only guarantees syntactic validity. Whether the repaired
// object carries the expected keys is the caller's concern.
package repair
