package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
)

// SaveRule inserts or replaces a classification rule, keeping its original position.
func (s *SQLiteStorage) SaveRule(ctx context.Context, rule model.ClassificationRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(rule.ID, "rule.ID"); err != nil {
		return err
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule %s: %w", rule.ID, err)
	}

	keywords, err := json.Marshal(rule.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}

	var conditions []byte
	if len(rule.Conditions) > 0 {
		conditions, err = json.Marshal(rule.Conditions)
		if err != nil {
			return fmt.Errorf("failed to marshal conditions: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO classification_rules (id, category_id, keywords, conditions, confidence, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_id = excluded.category_id,
			keywords = excluded.keywords,
			conditions = excluded.conditions,
			confidence = excluded.confidence,
			active = excluded.active,
			updated_at = CURRENT_TIMESTAMP`,
		rule.ID, rule.CategoryID, string(keywords), nullString(string(conditions)), rule.Confidence, rule.Active)
	if err != nil {
		return fmt.Errorf("failed to save rule %s: %w", rule.ID, err)
	}

	return nil
}

// GetRules returns every stored rule in creation order.
func (s *SQLiteStorage) GetRules(ctx context.Context) ([]model.ClassificationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category_id, keywords, COALESCE(conditions, ''), confidence, active
		FROM classification_rules
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.ClassificationRule
	for rows.Next() {
		var (
			rule       model.ClassificationRule
			keywords   string
			conditions string
		)
		if err := rows.Scan(&rule.ID, &rule.CategoryID, &keywords, &conditions, &rule.Confidence, &rule.Active); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		if err := json.Unmarshal([]byte(keywords), &rule.Keywords); err != nil {
			return nil, fmt.Errorf("failed to unmarshal keywords of rule %s: %w", rule.ID, err)
		}
		if conditions != "" {
			if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
				return nil, fmt.Errorf("failed to unmarshal conditions of rule %s: %w", rule.ID, err)
			}
		}

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

// DeleteRule removes a stored rule.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM classification_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return requireAffected(result, "rule", id)
}
