package classification

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/common"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
)

// Rule id namespaces.
const (
	BuiltinRulePrefix = "builtin_"
	CustomRulePrefix  = "custom_"
)

// IsBuiltinRuleID reports whether id belongs to the built-in rule namespace.
func IsBuiltinRuleID(id string) bool {
	return strings.HasPrefix(id, BuiltinRulePrefix)
}

// IsCustomRuleID reports whether id belongs to the custom rule namespace.
func IsCustomRuleID(id string) bool {
	return strings.HasPrefix(id, CustomRulePrefix)
}

// RuleUpdate carries the fields UpdateRule changes. Nil fields are left as they are.
type RuleUpdate struct {
	CategoryID *string
	Confidence *float64
	Active     *bool
	Conditions *model.Conditions
	Keywords   []string
}

// AddCustomRule validates rule, assigns it a fresh custom id and appends it to the rule list.
// Any id on the input is ignored.
func (e *Engine) AddCustomRule(rule model.ClassificationRule) (model.ClassificationRule, error) {
	rule = rule.Clone()
	rule.ID = CustomRulePrefix + uuid.NewString()
	rule.Keywords = normalizeKeywords(rule.Keywords)

	if err := rule.Validate(); err != nil {
		return model.ClassificationRule{}, fmt.Errorf("%w: %w", common.ErrInvalidRule, err)
	}

	e.rules = append(e.rules, rule)
	return rule.Clone(), nil
}

// RestoreCustomRule re-installs a custom rule previously created by AddCustomRule,
// keeping its id. It is meant for callers reloading persisted rules.
func (e *Engine) RestoreCustomRule(rule model.ClassificationRule) error {
	if !IsCustomRuleID(rule.ID) {
		return fmt.Errorf("%w: %q is not a custom rule id", common.ErrInvalidRule, rule.ID)
	}
	if e.indexOf(rule.ID) >= 0 {
		return fmt.Errorf("%w: rule %s", common.ErrDuplicateEntry, rule.ID)
	}

	rule = rule.Clone()
	rule.Keywords = normalizeKeywords(rule.Keywords)
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidRule, err)
	}

	e.rules = append(e.rules, rule)
	return nil
}

// UpdateRule applies update to the rule with the given id. It returns false when
// the rule does not exist or the updated rule would be invalid, leaving the rule unchanged.
func (e *Engine) UpdateRule(id string, update RuleUpdate) bool {
	idx := e.indexOf(id)
	if idx < 0 {
		return false
	}

	rule := e.rules[idx].Clone()
	if update.Keywords != nil {
		rule.Keywords = normalizeKeywords(update.Keywords)
	}
	if update.CategoryID != nil {
		rule.CategoryID = *update.CategoryID
	}
	if update.Confidence != nil {
		rule.Confidence = *update.Confidence
	}
	if update.Active != nil {
		rule.Active = *update.Active
	}
	if update.Conditions != nil {
		rule.Conditions = append(model.Conditions(nil), (*update.Conditions)...)
	}

	if err := rule.Validate(); err != nil {
		return false
	}

	e.rules[idx] = rule
	return true
}

// DeleteRule removes a custom rule. Built-in rules cannot be deleted, only
// deactivated, so DeleteRule returns false for them as well as for unknown ids.
func (e *Engine) DeleteRule(id string) bool {
	if IsBuiltinRuleID(id) {
		return false
	}

	idx := e.indexOf(id)
	if idx < 0 {
		return false
	}

	e.rules = append(e.rules[:idx], e.rules[idx+1:]...)
	return true
}

// Rules returns a snapshot of all rules in evaluation order.
func (e *Engine) Rules() []model.ClassificationRule {
	out := make([]model.ClassificationRule, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Clone()
	}
	return out
}

// Rule returns a copy of the rule with the given id.
func (e *Engine) Rule(id string) (model.ClassificationRule, bool) {
	idx := e.indexOf(id)
	if idx < 0 {
		return model.ClassificationRule{}, false
	}
	return e.rules[idx].Clone(), true
}

// Stats returns rule and learning counters.
func (e *Engine) Stats() Stats {
	active := 0
	for _, r := range e.rules {
		if r.Active {
			active++
		}
	}

	return Stats{
		TotalRules:      len(e.rules),
		ActiveRules:     active,
		LearningEntries: e.learning.size(),
	}
}

func (e *Engine) indexOf(id string) int {
	for i, r := range e.rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}
