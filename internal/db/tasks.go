package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/CaroLe-prw/zap/internal/apperr"
	"github.com/CaroLe-prw/zap/internal/model"
)

// CreateTaskRequest carries the optional fields of task creation.
type CreateTaskRequest struct {
	Title           string  `json:"title"`
	CategoryID      *int64  `json:"category_id"`
	EstimateSeconds *int64  `json:"estimate_seconds"`
	Notes           *string `json:"notes"`
	IsTodayFocus    *bool   `json:"is_today_focus"`
	StartOnCreate   *bool   `json:"start_on_create"`
}

// TaskQuery filters and paginates task listings. Zero page values are
// normalized to the defaults (page 1, 20 per page). A nil Done hides
// finished tasks.
type TaskQuery struct {
	PageIndex int               `json:"page_index"`
	PageSize  int               `json:"page_size"`
	TaskName  *string           `json:"task_name"`
	Done      *model.TaskStatus `json:"done"`
}

func (q *TaskQuery) normalize() {
	if q.PageIndex < 1 {
		q.PageIndex = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
}

// TaskRow is one row of the task listing: the task joined with its
// category, lifetime and today totals, and the live elapsed seconds of
// its open session (0 when not running).
type TaskRow struct {
	TaskID               int64            `json:"task_id"`
	Title                string           `json:"title"`
	Status               model.TaskStatus `json:"done"`
	CategoryID           *int64           `json:"category_id"`
	CategoryName         *string          `json:"category_name"`
	Color                *string          `json:"color"`
	TotalDurationSeconds int64            `json:"total_duration_seconds"`
	TodayDurationSeconds int64            `json:"today_duration_seconds"`
	CompletedAt          *string          `json:"completed_at"`
	SessionSeconds       int64            `json:"session_seconds"`
}

// Page is a paginated response envelope.
type Page[T any] struct {
	Data      []T `json:"data"`
	Total     int `json:"total"`
	PageIndex int `json:"page_index"`
	PageSize  int `json:"page_size"`
}

func emptyPage[T any](pageIndex, pageSize int) Page[T] {
	return Page[T]{Data: []T{}, PageIndex: pageIndex, PageSize: pageSize}
}

// CreateTask inserts a task and, when StartOnCreate is set, opens its
// first time entry in the same transaction. Returns the new task id.
func (s *Store) CreateTask(ctx context.Context, req CreateTaskRequest) (int64, error) {
	if req.Title == "" {
		return 0, apperr.InvalidTaskData("title cannot be empty")
	}
	if req.EstimateSeconds != nil && *req.EstimateSeconds < 0 {
		return 0, apperr.InvalidTaskData("estimate cannot be negative")
	}

	now := s.nowUTC()
	nowStr := formatTime(now)

	var taskID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if req.CategoryID != nil {
			var count int64
			if err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM categories WHERE id = ?", *req.CategoryID,
			).Scan(&count); err != nil {
				return fmt.Errorf("check category: %w", err)
			}
			if count == 0 {
				return apperr.InvalidCategoryData("category id not found")
			}
		}

		isTodayFocus := req.IsTodayFocus != nil && *req.IsTodayFocus

		res, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (title, done, category_id, estimate_seconds, notes, is_today_focus, created_at, updated_at)
			 VALUES (?, 0, ?, ?, ?, ?, ?, ?)`,
			req.Title, req.CategoryID, req.EstimateSeconds, req.Notes, isTodayFocus, nowStr, nowStr,
		)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}

		taskID, err = res.LastInsertId()
		if err != nil {
			return err
		}

		if req.StartOnCreate != nil && *req.StartOnCreate {
			if err := s.openEntry(ctx, tx, taskID, req.Title, nowStr); err != nil {
				return err
			}
			if err := setTaskStatus(ctx, tx, taskID, model.StatusRunning, nowStr); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return taskID, nil
}

// StartTask transitions Todo -> Running and opens a new time entry.
// The status check and the write are one conditional update so that of
// two concurrent starts only one can win.
func (s *Store) StartTask(ctx context.Context, taskID int64) error {
	now := s.nowUTC()
	nowStr := formatTime(now)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE tasks SET done = 1, updated_at = ? WHERE id = ? AND done = 0",
			nowStr, taskID,
		)
		if err != nil {
			return fmt.Errorf("start task: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			task, err := getTask(ctx, tx, taskID)
			if err != nil {
				return err
			}
			if task.Status != model.StatusTodo {
				return apperr.TaskAlreadyStarted(taskID)
			}
			return fmt.Errorf("start task %d: update matched no rows", taskID)
		}

		task, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		return s.openEntry(ctx, tx, taskID, task.Title, nowStr)
	})
}

// StopTask transitions Running -> Todo and closes the open entry,
// freezing its duration.
func (s *Store) StopTask(ctx context.Context, taskID int64) error {
	now := s.nowUTC()
	nowStr := formatTime(now)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE tasks SET done = 0, updated_at = ? WHERE id = ? AND done = 1",
			nowStr, taskID,
		)
		if err != nil {
			return fmt.Errorf("stop task: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			task, err := getTask(ctx, tx, taskID)
			if err != nil {
				return err
			}
			if task.Status != model.StatusRunning {
				return apperr.TaskNotStarted(taskID)
			}
			return fmt.Errorf("stop task %d: update matched no rows", taskID)
		}

		return s.closeOpenEntries(ctx, tx, taskID, now)
	})
}

// FinishTask marks a task finished from any status. A running task is
// implicitly stopped first; the implicit stop and the finish write are
// one atomic unit.
func (s *Store) FinishTask(ctx context.Context, taskID int64) error {
	now := s.nowUTC()
	nowStr := formatTime(now)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		task, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}

		if task.Status == model.StatusRunning {
			if err := s.closeOpenEntries(ctx, tx, taskID, now); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE tasks SET done = 2, completed_at = ?, updated_at = ? WHERE id = ?",
			nowStr, nowStr, taskID,
		)
		if err != nil {
			return fmt.Errorf("finish task: %w", err)
		}
		return nil
	})
}

// ReopenTask transitions Finished -> Todo and clears completed_at, so
// list and stats views never disagree about a stale completion time.
func (s *Store) ReopenTask(ctx context.Context, taskID int64) error {
	nowStr := formatTime(s.nowUTC())

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE tasks SET done = 0, completed_at = NULL, updated_at = ? WHERE id = ? AND done = 2",
			nowStr, taskID,
		)
		if err != nil {
			return fmt.Errorf("reopen task: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			task, err := getTask(ctx, tx, taskID)
			if err != nil {
				return err
			}
			if task.Status != model.StatusFinished {
				return apperr.TaskNotDone(taskID)
			}
			return fmt.Errorf("reopen task %d: update matched no rows", taskID)
		}
		return nil
	})
}

// ListTasks returns a page of tasks joined with category and duration
// data. Without an explicit status filter, finished tasks are hidden.
func (s *Store) ListTasks(ctx context.Context, query TaskQuery) (Page[TaskRow], error) {
	query.normalize()

	now := s.nowUTC()
	today := formatDay(now)

	where, args := taskFilters(query)

	var total int
	countQuery := "SELECT COUNT(*) FROM tasks t WHERE 1=1" + where
	if err := s.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return Page[TaskRow]{}, fmt.Errorf("count tasks: %w", err)
	}
	if total == 0 {
		return emptyPage[TaskRow](query.PageIndex, query.PageSize), nil
	}

	listQuery := `SELECT t.id, t.title, t.done, t.category_id, c.name, c.color,
		COALESCE((SELECT SUM(duration_seconds) FROM time_entries WHERE task_id = t.id), 0),
		COALESCE((SELECT SUM(duration_seconds) FROM time_entries WHERE task_id = t.id AND date(started_at) = ?), 0),
		t.completed_at,
		te.started_at
		FROM tasks t
		LEFT JOIN categories c ON t.category_id = c.id
		LEFT JOIN time_entries te ON t.id = te.task_id AND te.ended_at IS NULL
		WHERE 1=1` + where + " ORDER BY t.done ASC, t.created_at DESC LIMIT ? OFFSET ?"

	offset := (query.PageIndex - 1) * query.PageSize
	listArgs := append([]any{today}, args...)
	listArgs = append(listArgs, query.PageSize, offset)

	rows, err := s.DB.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return Page[TaskRow]{}, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	data := make([]TaskRow, 0, query.PageSize)
	for rows.Next() {
		var row TaskRow
		var openStartedAt sql.NullString
		if err := rows.Scan(
			&row.TaskID, &row.Title, &row.Status, &row.CategoryID, &row.CategoryName, &row.Color,
			&row.TotalDurationSeconds, &row.TodayDurationSeconds, &row.CompletedAt, &openStartedAt,
		); err != nil {
			return Page[TaskRow]{}, err
		}
		if row.Status == model.StatusRunning && openStartedAt.Valid {
			row.SessionSeconds = elapsedSeconds(now, openStartedAt.String)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return Page[TaskRow]{}, err
	}

	return Page[TaskRow]{Data: data, Total: total, PageIndex: query.PageIndex, PageSize: query.PageSize}, nil
}

func taskFilters(query TaskQuery) (string, []any) {
	var where strings.Builder
	var args []any

	if query.TaskName != nil && *query.TaskName != "" {
		where.WriteString(" AND t.title LIKE ?")
		args = append(args, "%"+*query.TaskName+"%")
	}
	if query.Done != nil {
		where.WriteString(" AND t.done = ?")
		args = append(args, int(*query.Done))
	} else {
		where.WriteString(" AND t.done IN (0, 1)")
	}

	return where.String(), args
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTask(ctx context.Context, q querier, taskID int64) (model.Task, error) {
	var task model.Task
	err := q.QueryRowContext(ctx,
		`SELECT id, title, done, category_id, estimate_seconds, notes, is_today_focus, created_at, updated_at, completed_at
		 FROM tasks WHERE id = ?`, taskID,
	).Scan(
		&task.ID, &task.Title, &task.Status, &task.CategoryID, &task.EstimateSeconds,
		&task.Notes, &task.IsTodayFocus, &task.CreatedAt, &task.UpdatedAt, &task.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return model.Task{}, apperr.TaskNotFound(taskID)
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("get task %d: %w", taskID, err)
	}
	return task, nil
}

// GetTask fetches a single task by id.
func (s *Store) GetTask(ctx context.Context, taskID int64) (model.Task, error) {
	return getTask(ctx, s.DB, taskID)
}

func setTaskStatus(ctx context.Context, tx *sql.Tx, taskID int64, status model.TaskStatus, nowStr string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE tasks SET done = ?, updated_at = ? WHERE id = ?",
		int(status), nowStr, taskID,
	)
	if err != nil {
		return fmt.Errorf("set task %d status: %w", taskID, err)
	}
	return nil
}
