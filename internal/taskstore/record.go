package taskstore

import "time"

// Action categories produced by classification. The set is open: the
// store partitions by whatever category a record carries, and unknown
// categories get their own bucket.
const (
	ActionRequiredPersonal = "required_personal_action"
	ActionOptional         = "optional_action"
	ActionSuperseded       = "superseded_action"
	ActionJobListing       = "job_listing"
	ActionFYI              = "fyi"
)

// Priority levels for an action record.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ActionRecord is one outstanding task derived from a classified email.
type ActionRecord struct {
	TaskID           string     `json:"task_id"`
	ActionType       string     `json:"action_type"`
	Priority         string     `json:"priority"`
	Topic            string     `json:"topic"`
	WhyRelevant      string     `json:"why_relevant"`
	CanonicalEmailID string     `json:"canonical_email_id"`
	Completed        bool       `json:"completed"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Snapshot is the store's active view, partitioned by action category.
// Within a bucket no two records share a TaskID.
type Snapshot map[string][]ActionRecord

// Total returns the number of records across all buckets.
func (s Snapshot) Total() int {
	n := 0
	for _, records := range s {
		n += len(records)
	}
	return n
}

// Outstanding returns the number of not-yet-completed records across
// all buckets.
func (s Snapshot) Outstanding() int {
	n := 0
	for _, records := range s {
		for _, r := range records {
			if !r.Completed {
				n++
			}
		}
	}
	return n
}
