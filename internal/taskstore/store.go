package taskstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/AmeliaRose802/mailtriage/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	task_id            TEXT NOT NULL,
	action_type        TEXT NOT NULL,
	priority           TEXT NOT NULL DEFAULT 'medium',
	topic              TEXT NOT NULL DEFAULT '',
	why_relevant       TEXT NOT NULL DEFAULT '',
	canonical_email_id TEXT NOT NULL DEFAULT '',
	completed          INTEGER NOT NULL DEFAULT 0,
	created_at         TEXT NOT NULL,
	completed_at       TEXT,
	PRIMARY KEY (action_type, task_id)
);
CREATE INDEX IF NOT EXISTS idx_tasks_task_id ON tasks(task_id);
`

// Store is the durable home of outstanding action records. It is the
// sole owner of persisted task state: all mutation goes through Save
// and MarkCompleted, which are serialized against each other so a
// reader never observes a partially merged batch. Records are never
// deleted, only flagged completed, so a re-run against the same email
// cannot resurrect a task the user already finished.
type Store struct {
	db *sql.DB
	mu sync.Mutex

	logger *slog.Logger
}

// Open opens (or creates) the task database at path. WAL mode keeps
// concurrent readers consistent while a save transaction is in flight;
// a fresh or missing file simply yields an empty store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create task store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open task store: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure task store: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize task store schema: %w", err)
	}

	return &Store{db: db, logger: logger.With(logging.Store("tasks"))}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save merges a batch of records into the store in one transaction.
// A record whose (category, task_id) already exists is replaced,
// except that an existing completed flag is preserved when the
// incoming record does not set it: a stale classification run must not
// un-complete a task the user already finished. New ids are appended.
func (s *Store) Save(ctx context.Context, records []ActionRecord, now time.Time) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks (task_id, action_type, priority, topic, why_relevant, canonical_email_id, completed, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (action_type, task_id) DO UPDATE SET
			priority           = excluded.priority,
			topic              = excluded.topic,
			why_relevant       = excluded.why_relevant,
			canonical_email_id = excluded.canonical_email_id,
			completed          = MAX(tasks.completed, excluded.completed),
			completed_at       = COALESCE(tasks.completed_at, excluded.completed_at)`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		var completedAt any
		if r.CompletedAt != nil {
			completedAt = r.CompletedAt.UTC().Format(time.RFC3339)
		}
		if _, err := stmt.ExecContext(ctx,
			r.TaskID, r.ActionType, r.Priority, r.Topic, r.WhyRelevant,
			r.CanonicalEmailID, boolToInt(r.Completed),
			createdAt.UTC().Format(time.RFC3339), completedAt,
		); err != nil {
			return fmt.Errorf("failed to save task %s: %w", r.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save: %w", err)
	}

	s.logger.Debug("saved task batch", logging.Count(len(records)))
	return nil
}

// MarkCompleted flags the given task ids as completed across every
// category bucket. Ids that are absent or already completed are
// ignored; the operation is idempotent.
func (s *Store) MarkCompleted(ctx context.Context, taskIDs []string, now time.Time) error {
	if len(taskIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin completion transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE tasks SET completed = 1, completed_at = ? WHERE task_id = ? AND completed = 0`)
	if err != nil {
		return fmt.Errorf("failed to prepare completion statement: %w", err)
	}
	defer stmt.Close()

	ts := now.UTC().Format(time.RFC3339)
	marked := 0
	for _, id := range taskIDs {
		res, err := stmt.ExecContext(ctx, ts, id)
		if err != nil {
			return fmt.Errorf("failed to mark task %s completed: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			marked += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}

	s.logger.Debug("marked tasks completed", logging.Count(marked))
	return nil
}

// Load returns the current active view, partitioned by category.
// Within a bucket records are ordered newest first and no two records
// share a task id.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, action_type, priority, topic, why_relevant, canonical_email_id, completed, created_at, completed_at
		FROM tasks
		ORDER BY action_type, created_at DESC, task_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	defer rows.Close()

	snapshot := make(Snapshot)
	for rows.Next() {
		var (
			r           ActionRecord
			completed   int
			createdAt   string
			completedAt sql.NullString
		)
		if err := rows.Scan(&r.TaskID, &r.ActionType, &r.Priority, &r.Topic,
			&r.WhyRelevant, &r.CanonicalEmailID, &completed, &createdAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		r.Completed = completed != 0
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = t
		}
		if completedAt.Valid {
			if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
				r.CompletedAt = &t
			}
		}
		snapshot[r.ActionType] = append(snapshot[r.ActionType], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read task rows: %w", err)
	}
	return snapshot, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
