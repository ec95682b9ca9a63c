package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/CaroLe-prw/zap/internal/apperr"
	"github.com/CaroLe-prw/zap/internal/model"
)

// openEntry appends a new open session for a task. The note ordinal is
// the count of prior entries plus one; it is informational only and
// never parsed back.
func (s *Store) openEntry(ctx context.Context, tx *sql.Tx, taskID int64, title, nowStr string) error {
	var count int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM time_entries WHERE task_id = ?", taskID,
	).Scan(&count); err != nil {
		return fmt.Errorf("count entries: %w", err)
	}

	note := fmt.Sprintf("%s #%d", title, count+1)

	_, err := tx.ExecContext(ctx,
		"INSERT INTO time_entries (task_id, started_at, note) VALUES (?, ?, ?)",
		taskID, nowStr, note,
	)
	if err != nil {
		return fmt.Errorf("open entry: %w", err)
	}
	return nil
}

// closeOpenEntries closes every open session for a task, freezing the
// duration as the integer difference of epoch seconds. The single-open
// invariant makes this at most one row, but closing all of them keeps
// the ledger self-healing.
func (s *Store) closeOpenEntries(ctx context.Context, tx *sql.Tx, taskID int64, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE time_entries
		 SET ended_at = ?,
		     duration_seconds = ? - CAST(strftime('%s', started_at) AS INTEGER)
		 WHERE task_id = ? AND ended_at IS NULL`,
		formatTime(now), now.Unix(), taskID,
	)
	if err != nil {
		return fmt.Errorf("close entries: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.TimeEntryNotFound(taskID)
	}
	return nil
}

// ListEntries returns all sessions for a task, oldest first.
func (s *Store) ListEntries(ctx context.Context, taskID int64) ([]model.TimeEntry, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, task_id, started_at, ended_at, duration_seconds, note
		 FROM time_entries WHERE task_id = ? ORDER BY started_at, id`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []model.TimeEntry
	for rows.Next() {
		var entry model.TimeEntry
		if err := rows.Scan(
			&entry.ID, &entry.TaskID, &entry.StartedAt, &entry.EndedAt, &entry.DurationSeconds, &entry.Note,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
