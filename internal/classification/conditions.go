package classification

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/textnorm"
)

// subject is what rule conditions are evaluated against.
type subject struct {
	date        time.Time // Zero when unknown
	amount      decimal.Decimal
	description string // Normalized
}

// conditionsMet reports whether every condition of a rule holds for s.
func (e *Engine) conditionsMet(conds model.Conditions, s subject) bool {
	for _, cond := range conds {
		if !e.conditionMet(cond, s) {
			return false
		}
	}
	return true
}

func (e *Engine) conditionMet(cond model.Condition, s subject) bool {
	switch c := cond.(type) {
	case model.AmountCondition:
		return matchesAmount(c, s.amount.Abs())
	case model.DayCondition:
		return matchesDay(c, s.date)
	case model.TextCondition:
		found := e.matchesText(c, s.description)
		if c.Exclude {
			return !found
		}
		return found
	default:
		return false
	}
}

func matchesAmount(c model.AmountCondition, amount decimal.Decimal) bool {
	switch c.Op {
	case model.AmountLessThan:
		return amount.LessThan(c.Value)
	case model.AmountLessEqual:
		return amount.LessThanOrEqual(c.Value)
	case model.AmountEqual:
		return amount.Equal(c.Value)
	case model.AmountGreaterEqual:
		return amount.GreaterThanOrEqual(c.Value)
	case model.AmountGreaterThan:
		return amount.GreaterThan(c.Value)
	case model.AmountRange:
		if c.Min != nil && amount.LessThan(*c.Min) {
			return false
		}
		if c.Max != nil && amount.GreaterThan(*c.Max) {
			return false
		}
		return true
	}
	return false
}

func matchesDay(c model.DayCondition, date time.Time) bool {
	if date.IsZero() {
		return false
	}
	day := date.Day()
	if c.MinDay != 0 && day < c.MinDay {
		return false
	}
	if c.MaxDay != 0 && day > c.MaxDay {
		return false
	}
	return true
}

func (e *Engine) matchesText(c model.TextCondition, description string) bool {
	if !c.Regex {
		return strings.Contains(description, textnorm.Normalize(c.Pattern))
	}

	re, ok := e.compiled[c.Pattern]
	if !ok {
		var err error
		re, err = regexp.Compile(c.Pattern)
		if err != nil {
			re = nil
		}
		e.compiled[c.Pattern] = re
	}
	return re != nil && re.MatchString(description)
}
