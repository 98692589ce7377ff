// Package ai talks to the classification model.
//
// It exposes a small Completer interface so the triage pipeline can be
// tested with a stub, a Gemini-backed implementation of it, and the
// prompt template that asks the model for a per-category JSON
// classification of one email. Model output is returned raw; cleanup
// is the repair engine's concern.
package ai
