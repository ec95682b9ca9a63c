package model

// TaskStatus is the lifecycle state of a task, persisted as an integer
// in the tasks.done column.
type TaskStatus int

const (
	StatusTodo TaskStatus = iota
	StatusRunning
	StatusFinished
)

func (s TaskStatus) String() string {
	switch s {
	case StatusTodo:
		return "todo"
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	}
	return "unknown"
}

// Valid reports whether s is one of the three known statuses.
func (s TaskStatus) Valid() bool {
	return s >= StatusTodo && s <= StatusFinished
}

type Task struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Status          TaskStatus `json:"done"`
	CategoryID      *int64     `json:"category_id"`
	EstimateSeconds *int64     `json:"estimate_seconds"`
	Notes           *string    `json:"notes"`
	IsTodayFocus    bool       `json:"is_today_focus"`
	CreatedAt       string     `json:"created_at"`
	UpdatedAt       string     `json:"updated_at"`
	CompletedAt     *string    `json:"completed_at"`
}

type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TimeEntry is one contiguous interval of tracked work on a task.
// An open entry has neither EndedAt nor DurationSeconds; both are set
// together when the entry is closed and never recomputed afterwards.
type TimeEntry struct {
	ID              int64   `json:"id"`
	TaskID          int64   `json:"task_id"`
	StartedAt       string  `json:"started_at"`
	EndedAt         *string `json:"ended_at"`
	DurationSeconds *int64  `json:"duration_seconds"`
	Note            string  `json:"note"`
}

// DailyFocus is the one-record-per-date freeform focus note.
type DailyFocus struct {
	ID        int64  `json:"id"`
	FocusDate string `json:"focus_date"`
	Content   string `json:"content"`
	IsDone    int    `json:"is_done"`
	Position  int    `json:"position"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
