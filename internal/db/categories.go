package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/CaroLe-prw/zap/internal/apperr"
	"github.com/CaroLe-prw/zap/internal/model"
)

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT id, name, color FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]model.Category, 0, 8)
	for rows.Next() {
		var category model.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Color); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// AddCategory inserts a category and returns its id. An empty color
// falls back to the neutral default used for the Other bucket.
func (s *Store) AddCategory(ctx context.Context, name, color string) (int64, error) {
	if name == "" {
		return 0, apperr.InvalidCategoryData("name cannot be empty")
	}
	if color == "" {
		color = "#9CA3AF"
	}

	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO categories (name, color, created_at) VALUES (?, ?, ?)",
		name, color, formatTime(s.nowUTC()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	return res.LastInsertId()
}

// DeleteCategory removes a category with no dependent tasks. The
// referential check and the delete share one transaction.
func (s *Store) DeleteCategory(ctx context.Context, categoryID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM categories WHERE id = ?", categoryID).Scan(&one)
		if err == sql.ErrNoRows {
			return apperr.CategoryNotFound(categoryID)
		}
		if err != nil {
			return fmt.Errorf("check category: %w", err)
		}

		var tasks int64
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM tasks WHERE category_id = ?", categoryID,
		).Scan(&tasks); err != nil {
			return fmt.Errorf("count category tasks: %w", err)
		}
		if tasks > 0 {
			return apperr.CategoryHasTasks()
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", categoryID); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}
