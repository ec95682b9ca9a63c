package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// timeLayout is the persisted timestamp format. All timestamps are
// stored as UTC strings; calendar days are the date prefix.
const timeLayout = "2006-01-02 15:04:05"

const dayLayout = "2006-01-02"

// Store wraps the sqlite handle with the task lifecycle, time ledger,
// statistics and listing operations. The clock is injectable so tests
// can assert exact durations.
type Store struct {
	DB  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db, now: time.Now}
}

// nowUTC returns the current clock reading truncated to whole seconds.
func (s *Store) nowUTC() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, value, time.UTC)
}

func formatDay(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

func parseDay(value string) (time.Time, error) {
	return time.ParseInLocation(dayLayout, value, time.UTC)
}

// elapsedSeconds is the live duration of an open entry: the integer
// difference of epoch seconds, never fractional, never negative.
func elapsedSeconds(now time.Time, startedAt string) int64 {
	started, err := parseTime(startedAt)
	if err != nil {
		return 0
	}
	seconds := now.Unix() - started.Unix()
	if seconds < 0 {
		return 0
	}
	return seconds
}
