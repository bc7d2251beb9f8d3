package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ConditionKind discriminates the variants of Condition.
type ConditionKind string

// Condition kinds.
const (
	ConditionAmount ConditionKind = "amount"
	ConditionDay    ConditionKind = "day"
	ConditionText   ConditionKind = "text"
)

// Condition is an extra requirement a rule places on a transaction beyond its keywords.
// The set of implementations is closed: AmountCondition, DayCondition and TextCondition.
type Condition interface {
	Kind() ConditionKind
	Validate() error
	isCondition()
}

// AmountOperator represents the type of amount comparison.
type AmountOperator string

// Amount operators.
const (
	AmountLessThan     AmountOperator = "lt"
	AmountLessEqual    AmountOperator = "le"
	AmountEqual        AmountOperator = "eq"
	AmountGreaterEqual AmountOperator = "ge"
	AmountGreaterThan  AmountOperator = "gt"
	AmountRange        AmountOperator = "range"
)

// AmountCondition compares the absolute transaction amount against a threshold or range.
type AmountCondition struct {
	Min   *decimal.Decimal `json:"min,omitempty"`
	Max   *decimal.Decimal `json:"max,omitempty"`
	Op    AmountOperator   `json:"op"`
	Value decimal.Decimal  `json:"value"`
}

// Kind implements Condition.
func (AmountCondition) Kind() ConditionKind { return ConditionAmount }

func (AmountCondition) isCondition() {}

// Validate implements Condition.
func (c AmountCondition) Validate() error {
	switch c.Op {
	case AmountLessThan, AmountLessEqual, AmountEqual, AmountGreaterEqual, AmountGreaterThan:
		return nil
	case AmountRange:
		if c.Min == nil && c.Max == nil {
			return fmt.Errorf("range needs a min or a max")
		}
		if c.Min != nil && c.Max != nil && c.Min.GreaterThan(*c.Max) {
			return fmt.Errorf("amount min must be less than or equal to amount max")
		}
		return nil
	default:
		return fmt.Errorf("unknown amount operator %q", c.Op)
	}
}

// DayCondition restricts a rule to a day-of-month window. Zero bounds are open.
type DayCondition struct {
	MinDay int `json:"min_day,omitempty"`
	MaxDay int `json:"max_day,omitempty"`
}

// Kind implements Condition.
func (DayCondition) Kind() ConditionKind { return ConditionDay }

func (DayCondition) isCondition() {}

// Validate implements Condition.
func (c DayCondition) Validate() error {
	if c.MinDay == 0 && c.MaxDay == 0 {
		return fmt.Errorf("day window needs a min or a max day")
	}
	if c.MinDay < 0 || c.MinDay > 31 {
		return fmt.Errorf("min day must be between 1 and 31")
	}
	if c.MaxDay < 0 || c.MaxDay > 31 {
		return fmt.Errorf("max day must be between 1 and 31")
	}
	if c.MinDay != 0 && c.MaxDay != 0 && c.MinDay > c.MaxDay {
		return fmt.Errorf("min day must be less than or equal to max day")
	}
	return nil
}

// TextCondition requires (or, with Exclude, forbids) a substring or regular
// expression in the normalized description.
type TextCondition struct {
	Pattern string `json:"pattern"`
	Regex   bool   `json:"regex,omitempty"`
	Exclude bool   `json:"exclude,omitempty"`
}

// Kind implements Condition.
func (TextCondition) Kind() ConditionKind { return ConditionText }

func (TextCondition) isCondition() {}

// Validate implements Condition.
func (c TextCondition) Validate() error {
	if strings.TrimSpace(c.Pattern) == "" {
		return fmt.Errorf("pattern is required")
	}
	if c.Regex {
		if _, err := regexp.Compile(c.Pattern); err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}
	return nil
}

// Conditions is an ordered list of rule conditions with a tagged JSON encoding.
type Conditions []Condition

type conditionEnvelope struct {
	Amount *AmountCondition `json:"amount,omitempty"`
	Day    *DayCondition    `json:"day,omitempty"`
	Text   *TextCondition   `json:"text,omitempty"`
	Kind   ConditionKind    `json:"kind"`
}

// MarshalJSON encodes each condition with a kind discriminator.
func (cs Conditions) MarshalJSON() ([]byte, error) {
	envelopes := make([]conditionEnvelope, 0, len(cs))
	for _, c := range cs {
		env := conditionEnvelope{}
		switch v := c.(type) {
		case AmountCondition:
			env.Kind, env.Amount = ConditionAmount, &v
		case DayCondition:
			env.Kind, env.Day = ConditionDay, &v
		case TextCondition:
			env.Kind, env.Text = ConditionText, &v
		default:
			return nil, fmt.Errorf("unsupported condition type %T", c)
		}
		envelopes = append(envelopes, env)
	}
	return json.Marshal(envelopes)
}

// UnmarshalJSON decodes conditions written by MarshalJSON.
func (cs *Conditions) UnmarshalJSON(data []byte) error {
	var envelopes []conditionEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return fmt.Errorf("failed to unmarshal conditions: %w", err)
	}

	out := make(Conditions, 0, len(envelopes))
	for i, env := range envelopes {
		switch {
		case env.Kind == ConditionAmount && env.Amount != nil:
			out = append(out, *env.Amount)
		case env.Kind == ConditionDay && env.Day != nil:
			out = append(out, *env.Day)
		case env.Kind == ConditionText && env.Text != nil:
			out = append(out, *env.Text)
		default:
			return fmt.Errorf("condition %d: unknown or empty kind %q", i, env.Kind)
		}
	}

	*cs = out
	return nil
}
