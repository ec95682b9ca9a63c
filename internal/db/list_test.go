package db

import (
	"context"
	"testing"
	"time"

	"github.com/CaroLe-prw/zap/internal/model"
)

func TestListHidesFinishedByDefault(t *testing.T) {
	store, clock := newTestStore(t)

	todoID := mustCreateTask(t, store, CreateTaskRequest{Title: "Open item"})
	clock.Advance(time.Second)
	doneID := mustCreateTask(t, store, CreateTaskRequest{Title: "Done item"})
	if err := store.FinishTask(context.Background(), doneID); err != nil {
		t.Fatalf("finish: %v", err)
	}

	page, err := store.ListTasks(context.Background(), TaskQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || len(page.Data) != 1 || page.Data[0].TaskID != todoID {
		t.Fatalf("expected only the open task, got %+v", page)
	}

	finished := model.StatusFinished
	page, err = store.ListTasks(context.Background(), TaskQuery{Done: &finished})
	if err != nil {
		t.Fatalf("list finished: %v", err)
	}
	if page.Total != 1 || page.Data[0].TaskID != doneID {
		t.Fatalf("expected the finished task, got %+v", page)
	}
	if page.Data[0].CompletedAt == nil {
		t.Fatal("expected completed_at in listing")
	}
}

func TestListOrdersByStatusThenNewest(t *testing.T) {
	store, clock := newTestStore(t)

	oldest := mustCreateTask(t, store, CreateTaskRequest{Title: "Oldest"})
	clock.Advance(time.Second)
	running := mustCreateTask(t, store, CreateTaskRequest{Title: "Running"})
	clock.Advance(time.Second)
	newest := mustCreateTask(t, store, CreateTaskRequest{Title: "Newest"})
	if err := store.StartTask(context.Background(), running); err != nil {
		t.Fatalf("start: %v", err)
	}

	page, err := store.ListTasks(context.Background(), TaskQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := make([]int64, 0, len(page.Data))
	for _, row := range page.Data {
		got = append(got, row.TaskID)
	}
	want := []int64{newest, oldest, running}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestListPagination(t *testing.T) {
	store, clock := newTestStore(t)

	for i := 0; i < 5; i++ {
		mustCreateTask(t, store, CreateTaskRequest{Title: "Task"})
		clock.Advance(time.Second)
	}

	page, err := store.ListTasks(context.Background(), TaskQuery{PageIndex: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 5 || len(page.Data) != 2 || page.PageIndex != 2 || page.PageSize != 2 {
		t.Fatalf("unexpected page: total=%d len=%d", page.Total, len(page.Data))
	}

	page, err = store.ListTasks(context.Background(), TaskQuery{PageIndex: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Data) != 1 {
		t.Fatalf("expected 1 task on the last page, got %d", len(page.Data))
	}
}

func TestListEmptyFilterSkipsDataQuery(t *testing.T) {
	store, _ := newTestStore(t)

	mustCreateTask(t, store, CreateTaskRequest{Title: "Only this"})

	name := "no such task"
	page, err := store.ListTasks(context.Background(), TaskQuery{TaskName: &name})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 0 || len(page.Data) != 0 {
		t.Fatalf("expected empty page, got %+v", page)
	}
}

func TestListNameFilterIsContainment(t *testing.T) {
	store, _ := newTestStore(t)

	mustCreateTask(t, store, CreateTaskRequest{Title: "Write the report"})
	mustCreateTask(t, store, CreateTaskRequest{Title: "Read a book"})

	name := "report"
	page, err := store.ListTasks(context.Background(), TaskQuery{TaskName: &name})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.Data[0].Title != "Write the report" {
		t.Fatalf("expected the report task, got %+v", page)
	}
}

func TestListDurationsAndLiveSession(t *testing.T) {
	store, clock := newTestStore(t)

	id := mustCreateTask(t, store, CreateTaskRequest{Title: "Span days"})

	// 100s logged yesterday, 40s today, then a session left running.
	yesterday := time.Date(2024, 2, 9, 20, 0, 0, 0, time.UTC)
	logWork(t, store, clock, id, yesterday, 100*time.Second)

	today := time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC)
	logWork(t, store, clock, id, today, 40*time.Second)

	clock.Set(time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC))
	if err := store.StartTask(context.Background(), id); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(25 * time.Second)

	page, err := store.ListTasks(context.Background(), TaskQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	row := page.Data[0]
	if row.TotalDurationSeconds != 140 {
		t.Fatalf("expected lifetime 140, got %d", row.TotalDurationSeconds)
	}
	if row.TodayDurationSeconds != 40 {
		t.Fatalf("expected today 40, got %d", row.TodayDurationSeconds)
	}
	if row.SessionSeconds != 25 {
		t.Fatalf("expected live session 25, got %d", row.SessionSeconds)
	}
	if row.Status != model.StatusRunning {
		t.Fatalf("expected running, got %v", row.Status)
	}
}
