package accuracy

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/AmeliaRose802/mailtriage/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id              TEXT PRIMARY KEY,
	total_emails        INTEGER NOT NULL,
	modifications_count INTEGER NOT NULL,
	accuracy_rate       REAL NOT NULL,
	created_at          TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS category_modifications (
	run_id        TEXT NOT NULL,
	category      TEXT NOT NULL,
	modifications INTEGER NOT NULL,
	PRIMARY KEY (run_id, category)
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// createdAtLayout is fixed width so that ORDER BY created_at, which
// compares the TEXT column lexicographically, is always chronological.
// RFC3339Nano would not do: it drops trailing fractional zeros, making
// a whole-second timestamp sort after fractional ones in that second.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ClassificationRun captures one processing pass over a batch of
// emails. Runs are append-only: once recorded they are never mutated,
// so every run preserves its point-in-time accuracy calculation even
// if the derivation changes later.
type ClassificationRun struct {
	RunID                 string         `json:"run_id"`
	TotalEmails           int            `json:"total_emails"`
	ModificationsCount    int            `json:"modifications_count"`
	AccuracyRate          float64        `json:"accuracy_rate"`
	CategoryModifications map[string]int `json:"category_modifications,omitempty"`
	Timestamp             time.Time      `json:"timestamp"`
}

// NewRun builds a ClassificationRun with a fresh run id and the
// accuracy rate derived from the counts, rounded to one decimal.
// A zero-email run carries a zero rate and is excluded from averages
// at query time.
func NewRun(totalEmails, modifications int, categoryMods map[string]int, now time.Time) ClassificationRun {
	run := ClassificationRun{
		RunID:                 uuid.NewString(),
		TotalEmails:           totalEmails,
		ModificationsCount:    modifications,
		CategoryModifications: categoryMods,
		Timestamp:             now,
	}
	if totalEmails > 0 {
		run.AccuracyRate = round1(float64(totalEmails-modifications) / float64(totalEmails) * 100)
	}
	return run
}

// TrendReport aggregates accuracy over a window of recent runs.
// NoData is set when the window holds no run with classified emails;
// the numeric fields are meaningless in that case.
type TrendReport struct {
	LatestAccuracy  float64 `json:"latest_accuracy"`
	AverageAccuracy float64 `json:"average_accuracy"`
	TotalRuns       int     `json:"total_runs"`
	NoData          bool    `json:"no_data"`
}

// DashboardReport aggregates across the full run history.
type DashboardReport struct {
	TotalSessions         int            `json:"total_sessions"`
	AverageAccuracy       float64        `json:"average_accuracy"`
	CategoryModifications map[string]int `json:"category_modifications"`
}

// Tracker records classification runs and answers trend queries.
// The run history lives in its own database, independent of the task
// store, so either can be rebuilt from empty without the other.
type Tracker struct {
	db *sql.DB
	mu sync.Mutex

	logger *slog.Logger
}

// Open opens (or creates) the accuracy database at path.
func Open(path string, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create accuracy store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open accuracy store: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure accuracy store: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize accuracy store schema: %w", err)
	}

	return &Tracker{db: db, logger: logger.With(logging.Store("accuracy"))}, nil
}

// Close releases the underlying database handle.
func (t *Tracker) Close() error {
	return t.db.Close()
}

// RecordSession appends a classification run. Prior runs are never
// touched. Recording the same run id twice is an error.
func (t *Tracker) RecordSession(ctx context.Context, run ClassificationRun) error {
	if run.RunID == "" {
		return fmt.Errorf("classification run is missing a run id")
	}
	if run.TotalEmails < 0 || run.ModificationsCount < 0 {
		return fmt.Errorf("classification run %s has negative counts", run.RunID)
	}
	if run.ModificationsCount > run.TotalEmails {
		return fmt.Errorf("classification run %s has more modifications (%d) than emails (%d)",
			run.RunID, run.ModificationsCount, run.TotalEmails)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin session transaction: %w", err)
	}
	defer tx.Rollback()

	ts := run.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, total_emails, modifications_count, accuracy_rate, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.RunID, run.TotalEmails, run.ModificationsCount, run.AccuracyRate,
		ts.UTC().Format(createdAtLayout),
	); err != nil {
		return fmt.Errorf("failed to record session %s: %w", run.RunID, err)
	}

	for category, count := range run.CategoryModifications {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO category_modifications (run_id, category, modifications) VALUES (?, ?, ?)`,
			run.RunID, category, count,
		); err != nil {
			return fmt.Errorf("failed to record category modifications for %s: %w", run.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}

	t.logger.Debug("recorded classification session",
		logging.RunID(run.RunID), slog.Int("total_emails", run.TotalEmails))
	return nil
}

// Trends reports accuracy over the window most recent runs, ordered by
// timestamp descending. Zero-email runs count toward TotalRuns but are
// excluded from the latest and average figures; a window with no
// eligible run yields NoData rather than a division by zero.
func (t *Tracker) Trends(ctx context.Context, window int) (TrendReport, error) {
	if window <= 0 {
		return TrendReport{NoData: true}, nil
	}

	rows, err := t.db.QueryContext(ctx,
		`SELECT total_emails, accuracy_rate FROM runs ORDER BY created_at DESC, run_id LIMIT ?`, window)
	if err != nil {
		return TrendReport{}, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	report := TrendReport{}
	sum := 0.0
	eligible := 0
	latestSet := false
	for rows.Next() {
		var totalEmails int
		var rate float64
		if err := rows.Scan(&totalEmails, &rate); err != nil {
			return TrendReport{}, fmt.Errorf("failed to scan run row: %w", err)
		}
		report.TotalRuns++
		if totalEmails == 0 {
			continue
		}
		if !latestSet {
			report.LatestAccuracy = rate
			latestSet = true
		}
		sum += rate
		eligible++
	}
	if err := rows.Err(); err != nil {
		return TrendReport{}, fmt.Errorf("failed to read run rows: %w", err)
	}

	if eligible == 0 {
		return TrendReport{TotalRuns: report.TotalRuns, NoData: true}, nil
	}
	report.AverageAccuracy = round1(sum / float64(eligible))
	return report, nil
}

// DashboardMetrics aggregates over the entire run history: session
// count, overall average accuracy, and per-category modification
// totals summed across runs.
func (t *Tracker) DashboardMetrics(ctx context.Context) (DashboardReport, error) {
	report := DashboardReport{CategoryModifications: map[string]int{}}

	var avg sql.NullFloat64
	if err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(CASE WHEN total_emails > 0 THEN accuracy_rate END) FROM runs`,
	).Scan(&report.TotalSessions, &avg); err != nil {
		return DashboardReport{}, fmt.Errorf("failed to aggregate run history: %w", err)
	}
	if avg.Valid {
		report.AverageAccuracy = round1(avg.Float64)
	}

	rows, err := t.db.QueryContext(ctx,
		`SELECT category, SUM(modifications) FROM category_modifications GROUP BY category`)
	if err != nil {
		return DashboardReport{}, fmt.Errorf("failed to aggregate category modifications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var total int
		if err := rows.Scan(&category, &total); err != nil {
			return DashboardReport{}, fmt.Errorf("failed to scan category row: %w", err)
		}
		report.CategoryModifications[category] = total
	}
	if err := rows.Err(); err != nil {
		return DashboardReport{}, fmt.Errorf("failed to read category rows: %w", err)
	}
	return report, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
