// Package accuracy tracks classification quality over time.
//
// Each triage pass is recorded as an immutable run: total emails
// classified, how many classifications the user later corrected, and
// the resulting accuracy rate. The history is append-only so that
// trend queries always reflect what was true at the time of each run.
// Aggregations (recent-window trends and a full-history dashboard)
// are computed at query time and skip runs that classified no emails.
package accuracy
