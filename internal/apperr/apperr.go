// Package apperr defines the error taxonomy shared by the store and
// the HTTP bridge. Every failure surfaced to a caller carries a Kind
// plus enough context (an id or field) to render a message.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindDatabase Kind = iota
	KindMigration
	KindIo
	KindTaskNotFound
	KindTaskAlreadyStarted
	KindTaskNotStarted
	KindTaskNotDone
	KindCategoryNotFound
	KindTimeEntryNotFound
	KindInvalidTaskData
	KindInvalidCategoryData
	KindCategoryHasTasks
)

type Error struct {
	Kind Kind
	ID   int64
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindDatabase:
		return fmt.Sprintf("Database error: %v", e.Err)
	case KindMigration:
		return fmt.Sprintf("Migration error: %v", e.Err)
	case KindIo:
		return fmt.Sprintf("IO error: %v", e.Err)
	case KindTaskNotFound:
		return fmt.Sprintf("Task not found: id=%d", e.ID)
	case KindTaskAlreadyStarted:
		return fmt.Sprintf("Task already started: id=%d", e.ID)
	case KindTaskNotStarted:
		return fmt.Sprintf("Task not started: id=%d", e.ID)
	case KindTaskNotDone:
		return fmt.Sprintf("Task not done: id=%d", e.ID)
	case KindCategoryNotFound:
		return fmt.Sprintf("Category not found: id=%d", e.ID)
	case KindTimeEntryNotFound:
		return fmt.Sprintf("Time entry not found: id=%d", e.ID)
	case KindInvalidTaskData:
		return fmt.Sprintf("Invalid task data: %s", e.Msg)
	case KindInvalidCategoryData:
		return fmt.Sprintf("Invalid category data: %s", e.Msg)
	case KindCategoryHasTasks:
		return "Category has associated tasks"
	}
	return "unknown error"
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is comparisons against bare-kind template errors,
// e.g. errors.Is(err, &Error{Kind: KindTaskNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Database(err error) *Error  { return &Error{Kind: KindDatabase, Err: err} }
func Migration(err error) *Error { return &Error{Kind: KindMigration, Err: err} }
func Io(err error) *Error        { return &Error{Kind: KindIo, Err: err} }

func TaskNotFound(id int64) *Error       { return &Error{Kind: KindTaskNotFound, ID: id} }
func TaskAlreadyStarted(id int64) *Error { return &Error{Kind: KindTaskAlreadyStarted, ID: id} }
func TaskNotStarted(id int64) *Error     { return &Error{Kind: KindTaskNotStarted, ID: id} }
func TaskNotDone(id int64) *Error        { return &Error{Kind: KindTaskNotDone, ID: id} }
func CategoryNotFound(id int64) *Error   { return &Error{Kind: KindCategoryNotFound, ID: id} }
func TimeEntryNotFound(id int64) *Error  { return &Error{Kind: KindTimeEntryNotFound, ID: id} }

func InvalidTaskData(msg string) *Error {
	return &Error{Kind: KindInvalidTaskData, Msg: msg}
}

func InvalidCategoryData(msg string) *Error {
	return &Error{Kind: KindInvalidCategoryData, Msg: msg}
}

func CategoryHasTasks() *Error { return &Error{Kind: KindCategoryHasTasks} }

// KindOf returns the kind carried by err, or KindDatabase when err is
// not a taxonomy error (infrastructure failures propagate unchanged).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDatabase
}
