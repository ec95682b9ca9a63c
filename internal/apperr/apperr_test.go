package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{TaskNotFound(7), "Task not found: id=7"},
		{TaskAlreadyStarted(3), "Task already started: id=3"},
		{TaskNotStarted(3), "Task not started: id=3"},
		{TaskNotDone(9), "Task not done: id=9"},
		{CategoryNotFound(2), "Category not found: id=2"},
		{TimeEntryNotFound(5), "Time entry not found: id=5"},
		{InvalidTaskData("title cannot be empty"), "Invalid task data: title cannot be empty"},
		{InvalidCategoryData("name cannot be empty"), "Invalid category data: name cannot be empty"},
		{CategoryHasTasks(), "Category has associated tasks"},
		{Database(errors.New("locked")), "Database error: locked"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("got %q, want %q", got, tc.want)
		}
	}
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", TaskNotFound(7))
	if !errors.Is(err, TaskNotFound(7)) {
		t.Fatal("expected kind match through wrapping")
	}
	if errors.Is(err, TaskAlreadyStarted(7)) {
		t.Fatal("different kinds must not match")
	}
}

func TestKindOfDefaultsToDatabase(t *testing.T) {
	if KindOf(errors.New("disk full")) != KindDatabase {
		t.Fatal("expected unknown errors to surface as Database")
	}
	if KindOf(fmt.Errorf("op: %w", TaskNotDone(1))) != KindTaskNotDone {
		t.Fatal("expected wrapped taxonomy kind to surface")
	}
}
