package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/CaroLe-prw/zap/internal/apperr"
	"github.com/CaroLe-prw/zap/internal/model"
)

// GetDailyFocus returns the focus record for a date, or nil when the
// date has none yet.
func (s *Store) GetDailyFocus(ctx context.Context, date string) (*model.DailyFocus, error) {
	var focus model.DailyFocus
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, focus_date, content, is_done, position, created_at, updated_at
		 FROM daily_focus WHERE focus_date = ? LIMIT 1`, date,
	).Scan(
		&focus.ID, &focus.FocusDate, &focus.Content, &focus.IsDone,
		&focus.Position, &focus.CreatedAt, &focus.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily focus: %w", err)
	}
	return &focus, nil
}

// UpsertDailyFocus creates the record on first write for a date and
// updates the content thereafter.
func (s *Store) UpsertDailyFocus(ctx context.Context, date, content string) (*model.DailyFocus, error) {
	nowStr := formatTime(s.nowUTC())

	existing, err := s.GetDailyFocus(ctx, date)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		_, err = s.DB.ExecContext(ctx,
			"UPDATE daily_focus SET content = ?, updated_at = ? WHERE id = ?",
			content, nowStr, existing.ID,
		)
	} else {
		_, err = s.DB.ExecContext(ctx,
			"INSERT INTO daily_focus (focus_date, content, created_at, updated_at) VALUES (?, ?, ?, ?)",
			date, content, nowStr, nowStr,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert daily focus: %w", err)
	}

	focus, err := s.GetDailyFocus(ctx, date)
	if err != nil {
		return nil, err
	}
	if focus == nil {
		return nil, apperr.InvalidTaskData("failed to retrieve upserted focus")
	}
	return focus, nil
}

// ToggleDailyFocus flips the done flag of a focus record.
func (s *Store) ToggleDailyFocus(ctx context.Context, id int64) (*model.DailyFocus, error) {
	res, err := s.DB.ExecContext(ctx,
		"UPDATE daily_focus SET is_done = 1 - is_done, updated_at = ? WHERE id = ?",
		formatTime(s.nowUTC()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle daily focus: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, apperr.TaskNotFound(id)
	}

	var focus model.DailyFocus
	err = s.DB.QueryRowContext(ctx,
		`SELECT id, focus_date, content, is_done, position, created_at, updated_at
		 FROM daily_focus WHERE id = ?`, id,
	).Scan(
		&focus.ID, &focus.FocusDate, &focus.Content, &focus.IsDone,
		&focus.Position, &focus.CreatedAt, &focus.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("reload daily focus: %w", err)
	}
	return &focus, nil
}
