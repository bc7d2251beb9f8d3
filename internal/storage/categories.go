package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/common"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
)

// GetCategories returns all active categories.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, type
		FROM categories
		WHERE is_active = 1
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Type); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategoryByName returns an active category by its name, ignoring ASCII case.
// It returns nil when no such category exists.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, type
		FROM categories
		WHERE name = ? AND is_active = 1`

	var cat model.Category
	err := s.db.QueryRowContext(ctx, query, strings.TrimSpace(name)).Scan(&cat.ID, &cat.Name, &cat.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return &cat, nil
}

// CreateCategory creates a new category, or reactivates a deleted one with the same name.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name string, categoryType model.CategoryType) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validateCategory(name, categoryType); err != nil {
		return nil, err
	}

	var (
		existing model.Category
		active   bool
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, is_active
		FROM categories
		WHERE name = ?`, name).Scan(&existing.ID, &existing.Name, &existing.Type, &active)

	switch {
	case err == nil && active:
		return nil, fmt.Errorf("%w: category %q", common.ErrDuplicateEntry, existing.Name)
	case err == nil:
		if _, err := s.db.ExecContext(ctx,
			`UPDATE categories SET is_active = 1, type = ? WHERE id = ?`,
			categoryType, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to reactivate category: %w", err)
		}
		existing.Type = categoryType
		slog.Info("reactivated existing category", "name", existing.Name)
		return &existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("failed to check existing category: %w", err)
	}

	cat := model.Category{
		ID:   uuid.NewString(),
		Name: name,
		Type: categoryType,
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, type, is_active)
		VALUES (?, ?, ?, 1)`,
		cat.ID, cat.Name, cat.Type); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	slog.Debug("created category", "id", cat.ID, "name", cat.Name)
	return &cat, nil
}

// DeleteCategory deactivates a category. Transactions keep their reference.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE categories SET is_active = 0 WHERE id = ? AND is_active = 1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	return requireAffected(result, "category", id)
}

func requireAffected(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, common.ErrNotFound)
	}
	return nil
}
