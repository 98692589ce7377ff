package triage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/AmeliaRose802/mailtriage/internal/taskstore"
)

// bucketActionTypes maps the category buckets the classification model
// returns to the action type recorded for their items. Buckets outside
// this map are still accepted when their items carry an explicit
// action_type.
var bucketActionTypes = map[string]string{
	"truly_relevant_actions": taskstore.ActionRequiredPersonal,
	"optional_actions":       taskstore.ActionOptional,
	"superseded_actions":     taskstore.ActionSuperseded,
	"job_listings":           taskstore.ActionJobListing,
	"fyi_notices":            taskstore.ActionFYI,
}

var validPriorities = map[string]bool{
	taskstore.PriorityHigh:   true,
	taskstore.PriorityMedium: true,
	taskstore.PriorityLow:    true,
}

// bucketItem is the loosely-typed shape of one classified action as the
// model emits it. Every field is optional at this stage; validation and
// defaulting happen in Build.
type bucketItem struct {
	TaskID           string `json:"task_id"`
	ActionType       string `json:"action_type"`
	Priority         string `json:"priority"`
	Topic            string `json:"topic"`
	WhyRelevant      string `json:"why_relevant"`
	CanonicalEmailID string `json:"canonical_email_id"`
}

// BuildReport is the outcome of converting one repaired classification
// payload into typed records. Superseded actions are counted but not
// turned into records; invalid items are dropped with a warning rather
// than failing the batch.
type BuildReport struct {
	Records         []taskstore.ActionRecord
	Warnings        []string
	Dropped         int
	SupersededCount int
}

// Build converts repaired classification output into ActionRecords.
// data must be valid JSON holding one object whose keys are category
// buckets, each an array of action items. Missing buckets yield no
// records. canonicalEmailID is the id of the message the payload was
// produced for; items that name their own email id keep it.
func Build(data []byte, canonicalEmailID string, now time.Time) BuildReport {
	report := BuildReport{}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("classification payload is not a JSON object: %v", err))
		return report
	}

	// Deterministic bucket order so warnings and records are stable
	// across runs over the same payload.
	buckets := make([]string, 0, len(top))
	for bucket := range top {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)

	for _, bucket := range buckets {
		var items []bucketItem
		if err := json.Unmarshal(top[bucket], &items); err != nil {
			if _, known := bucketActionTypes[bucket]; known {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("bucket %q is not an array of actions: %v", bucket, err))
			}
			continue
		}

		bucketType := bucketActionTypes[bucket]
		for i, item := range items {
			actionType := item.ActionType
			if actionType == "" {
				actionType = bucketType
			}
			if actionType == "" {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("dropped item %d in bucket %q: missing action_type", i, bucket))
				report.Dropped++
				continue
			}

			if actionType == taskstore.ActionSuperseded {
				report.SupersededCount++
				continue
			}

			emailID := item.CanonicalEmailID
			if emailID == "" {
				emailID = canonicalEmailID
			}

			priority := item.Priority
			if !validPriorities[priority] {
				priority = taskstore.PriorityMedium
			}

			taskID := item.TaskID
			if taskID == "" {
				taskID = deriveTaskID(emailID, actionType)
			}

			report.Records = append(report.Records, taskstore.ActionRecord{
				TaskID:           taskID,
				ActionType:       actionType,
				Priority:         priority,
				Topic:            item.Topic,
				WhyRelevant:      item.WhyRelevant,
				CanonicalEmailID: emailID,
				CreatedAt:        now,
			})
		}
	}

	return report
}

// deriveTaskID produces a stable id from the originating email and the
// action category, so repeated runs over the same message collapse onto
// one record instead of accumulating duplicates.
func deriveTaskID(canonicalEmailID, actionType string) string {
	sum := sha256.Sum256([]byte(canonicalEmailID + "|" + actionType))
	return "task-" + hex.EncodeToString(sum[:])[:12]
}
