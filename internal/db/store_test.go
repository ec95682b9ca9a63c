package db

import (
	"context"
	"testing"
	"time"
)

// testClock is a frozen clock the tests advance explicitly so session
// durations and stats come out exact.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func (c *testClock) Set(t time.Time) { c.now = t }

func newTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()
	sqlDB, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	clock := &testClock{now: time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)}
	store := NewStore(sqlDB)
	store.now = clock.Now
	return store, clock
}

func mustCreateTask(t *testing.T, store *Store, req CreateTaskRequest) int64 {
	t.Helper()
	id, err := store.CreateTask(context.Background(), req)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return id
}

// logWork records one closed session of the given length starting at
// the given instant.
func logWork(t *testing.T, store *Store, clock *testClock, taskID int64, start time.Time, length time.Duration) {
	t.Helper()
	clock.Set(start)
	if err := store.StartTask(context.Background(), taskID); err != nil {
		t.Fatalf("start task %d: %v", taskID, err)
	}
	clock.Advance(length)
	if err := store.StopTask(context.Background(), taskID); err != nil {
		t.Fatalf("stop task %d: %v", taskID, err)
	}
}

func openEntryCount(t *testing.T, store *Store, taskID int64) int {
	t.Helper()
	var count int
	err := store.DB.QueryRow(
		"SELECT COUNT(*) FROM time_entries WHERE task_id = ? AND ended_at IS NULL", taskID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count open entries: %v", err)
	}
	return count
}

func ptr[T any](v T) *T { return &v }
