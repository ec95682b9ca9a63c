package db

import (
	"context"
	"errors"
	"testing"

	"github.com/CaroLe-prw/zap/internal/apperr"
)

func TestCategoriesOrderedByName(t *testing.T) {
	store, _ := newTestStore(t)

	seedCategory(t, store, "Work", "#FF0000")
	seedCategory(t, store, "Admin", "#0000FF")

	categories, err := store.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories))
	}
	if categories[0].Name != "Admin" || categories[1].Name != "Work" {
		t.Fatalf("expected name ordering, got %+v", categories)
	}
	if categories[0].Color != "#0000FF" {
		t.Fatalf("expected color preserved, got %+v", categories[0])
	}
}

func TestAddCategoryRejectsEmptyName(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.AddCategory(context.Background(), "", "#FFFFFF")
	if apperr.KindOf(err) != apperr.KindInvalidCategoryData {
		t.Fatalf("expected InvalidCategoryData, got %v", err)
	}
}

func TestDeleteCategoryBlockedByTasks(t *testing.T) {
	store, _ := newTestStore(t)

	id := seedCategory(t, store, "Busy", "#123456")
	mustCreateTask(t, store, CreateTaskRequest{Title: "Attached", CategoryID: &id})

	err := store.DeleteCategory(context.Background(), id)
	if !errors.Is(err, apperr.CategoryHasTasks()) {
		t.Fatalf("expected CategoryHasTasks, got %v", err)
	}

	categories, err := store.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 1 {
		t.Fatal("category must survive a blocked delete")
	}
}

func TestDeleteCategory(t *testing.T) {
	store, _ := newTestStore(t)

	id := seedCategory(t, store, "Fleeting", "#654321")
	if err := store.DeleteCategory(context.Background(), id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	err := store.DeleteCategory(context.Background(), id)
	if !errors.Is(err, apperr.CategoryNotFound(id)) {
		t.Fatalf("expected CategoryNotFound, got %v", err)
	}
}
