package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AmeliaRose802/mailtriage/internal/accuracy"
	"github.com/AmeliaRose802/mailtriage/internal/ai"
	"github.com/AmeliaRose802/mailtriage/internal/instrumentation"
	"github.com/AmeliaRose802/mailtriage/internal/logging"
	"github.com/AmeliaRose802/mailtriage/internal/repair"
	"github.com/AmeliaRose802/mailtriage/internal/taskstore"
)

// Email is one message handed to the pipeline for classification.
type Email struct {
	ID           string
	Subject      string
	Sender       string
	Recipient    string
	Body         string
	ReceivedDate time.Time
}

// RunReport summarizes one triage run. Per-email failures surface here
// as warnings and counts, never as a run-level error.
type RunReport struct {
	RunID           string   `json:"run_id"`
	TotalEmails     int      `json:"total_emails"`
	SavedTasks      int      `json:"saved_tasks"`
	SupersededCount int      `json:"superseded_count"`
	DroppedActions  int      `json:"dropped_actions"`
	Malformed       int      `json:"malformed"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Pipeline runs the classification flow: prompt the model per email,
// repair its response, build typed records, merge them into the task
// store, and record the run in the accuracy history.
type Pipeline struct {
	completer ai.Completer
	store     *taskstore.Store
	tracker   *accuracy.Tracker
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
}

// NewPipeline wires a pipeline. metrics may be nil when instrumentation
// is disabled.
func NewPipeline(completer ai.Completer, store *taskstore.Store, tracker *accuracy.Tracker, logger *slog.Logger, metrics *instrumentation.Metrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		completer: completer,
		store:     store,
		tracker:   tracker,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run classifies the given emails as one run. A malformed or
// unrepairable model response contributes zero actions for that email
// and a warning; only store and history write failures abort the run.
func (p *Pipeline) Run(ctx context.Context, emails []Email) (RunReport, error) {
	report := RunReport{
		RunID:       uuid.NewString(),
		TotalEmails: len(emails),
	}
	logger := p.logger.With(logging.RunID(report.RunID))
	now := time.Now()

	var records []taskstore.ActionRecord
	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		build, err := p.classify(ctx, email, now)
		if err != nil {
			report.Malformed++
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("email %s: %v", email.ID, err))
			logger.Warn("classification produced no actions",
				slog.String("email_id", email.ID), logging.Err(err))
			continue
		}

		records = append(records, build.Records...)
		report.SupersededCount += build.SupersededCount
		report.DroppedActions += build.Dropped
		report.Warnings = append(report.Warnings, build.Warnings...)
	}

	if len(records) > 0 {
		saveStart := time.Now()
		err := p.store.Save(ctx, records, now)
		p.recordStoreOperation(ctx, instrumentation.OperationSave, err, time.Since(saveStart))
		if err != nil {
			p.recordRunMetrics(ctx, report, logging.StatusError)
			return report, fmt.Errorf("failed to save %d task records: %w", len(records), err)
		}
	}
	report.SavedTasks = len(records)

	if p.metrics != nil {
		perCategory := map[string]int{}
		for _, rec := range records {
			perCategory[rec.ActionType]++
		}
		for category, n := range perCategory {
			p.metrics.RecordActionsRecorded(ctx, category, n)
		}
	}

	// The pipeline itself makes no corrections; modifications arrive
	// later through the accuracy tools when the user reviews results.
	run := accuracy.NewRun(report.TotalEmails, 0, nil, now)
	run.RunID = report.RunID
	recordStart := time.Now()
	err := p.tracker.RecordSession(ctx, run)
	p.recordStoreOperation(ctx, instrumentation.OperationRecordSession, err, time.Since(recordStart))
	if err != nil {
		p.recordRunMetrics(ctx, report, logging.StatusError)
		return report, fmt.Errorf("failed to record run history: %w", err)
	}

	p.recordRunMetrics(ctx, report, logging.StatusSuccess)
	logger.Info("triage run complete",
		slog.Int("total_emails", report.TotalEmails),
		slog.Int("saved_tasks", report.SavedTasks),
		slog.Int("malformed", report.Malformed))
	return report, nil
}

// classify handles one email end to end: model call, repair, build.
func (p *Pipeline) classify(ctx context.Context, email Email, now time.Time) (BuildReport, error) {
	prompt := ai.BuildClassificationPrompt(ai.EmailContext{
		ID:           email.ID,
		Subject:      email.Subject,
		Sender:       email.Sender,
		Recipient:    email.Recipient,
		Body:         email.Body,
		ReceivedDate: email.ReceivedDate.Format(time.RFC3339),
	})

	raw, err := p.completer.Complete(ctx, prompt)
	if err != nil {
		return BuildReport{}, fmt.Errorf("completion failed: %w", err)
	}

	repaired, pass, err := repair.RepairDetail(raw)
	if p.metrics != nil {
		p.metrics.RecordRepairOutcome(ctx, repairOutcome(pass, err))
	}
	if err != nil {
		if errors.Is(err, repair.ErrNoContent) {
			return BuildReport{}, fmt.Errorf("response contained no classification data: %w", err)
		}
		return BuildReport{}, fmt.Errorf("response could not be repaired: %w", err)
	}

	return Build([]byte(repaired), email.ID, now), nil
}

func (p *Pipeline) recordRunMetrics(ctx context.Context, report RunReport, status string) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordTriageRun(ctx, status)
	p.metrics.RecordEmailsClassified(ctx, report.TotalEmails)
}

func (p *Pipeline) recordStoreOperation(ctx context.Context, operation string, err error, duration time.Duration) {
	if p.metrics == nil {
		return
	}
	status := logging.StatusSuccess
	if err != nil {
		status = logging.StatusError
	}
	p.metrics.RecordStoreOperation(ctx, operation, status, duration)
}

func repairOutcome(pass string, err error) string {
	switch {
	case err != nil:
		return "failed"
	case pass == "":
		return "clean"
	default:
		return pass
	}
}
