package model

import (
	"fmt"
	"strings"
)

// ClassificationRule binds a set of keywords to a category with a base confidence.
// Built-in rules are seeded by the classification engine; custom rules are added by users.
type ClassificationRule struct {
	ID         string     `json:"id"`
	CategoryID string     `json:"category_id"`
	Keywords   []string   `json:"keywords"`
	Conditions Conditions `json:"conditions,omitempty"`
	Confidence float64    `json:"confidence"`
	Active     bool       `json:"active"`
}

// Clone returns a deep copy of the rule.
func (r ClassificationRule) Clone() ClassificationRule {
	c := r
	c.Keywords = append([]string(nil), r.Keywords...)
	if r.Conditions != nil {
		c.Conditions = append(Conditions(nil), r.Conditions...)
	}
	return c
}

// Validate ensures the rule is structurally usable.
func (r *ClassificationRule) Validate() error {
	if len(r.Keywords) == 0 {
		return fmt.Errorf("rule must have at least one keyword")
	}
	for i, kw := range r.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("keyword %d is empty", i)
		}
	}

	if strings.TrimSpace(r.CategoryID) == "" {
		return fmt.Errorf("category is required")
	}

	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %.2f", r.Confidence)
	}

	for i, cond := range r.Conditions {
		if cond == nil {
			return fmt.Errorf("condition %d is nil", i)
		}
		if err := cond.Validate(); err != nil {
			return fmt.Errorf("condition %d (%s): %w", i, cond.Kind(), err)
		}
	}

	return nil
}
