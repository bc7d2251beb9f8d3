// Package dedupe finds transactions that likely describe the same real-world
// event and turns a chosen remediation into delete and update advice.
package dedupe

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/common"
)

// Settings controls duplicate scoring and grouping.
type Settings struct {
	SmallAmountThreshold           decimal.Decimal `json:"small_amount_threshold"`
	AmountTolerance                float64         `json:"amount_tolerance"`                 // Fraction of the average amount, 0.02 = 2%
	DescriptionSimilarityThreshold float64         `json:"description_similarity_threshold"` // Informational only
	DaysTolerance                  int             `json:"days_tolerance"`
	IgnoreSmallAmounts             bool            `json:"ignore_small_amounts"`
	ExactMatchRequired             bool            `json:"exact_match_required"`
	ConsiderAccount                bool            `json:"consider_account"`
	ConsiderCategory               bool            `json:"consider_category"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		AmountTolerance:                0.02,
		DaysTolerance:                  3,
		DescriptionSimilarityThreshold: 0.8,
		IgnoreSmallAmounts:             false,
		SmallAmountThreshold:           decimal.NewFromInt(1),
		ExactMatchRequired:             false,
		ConsiderAccount:                true,
		ConsiderCategory:               false,
	}
}

// Validate reports settings a user should not be allowed to save.
// The detector itself accepts any values.
func (s Settings) Validate() error {
	if s.AmountTolerance < 0 {
		return fmt.Errorf("%w: amount tolerance must not be negative", common.ErrInvalidConfig)
	}
	if s.DaysTolerance < 0 {
		return fmt.Errorf("%w: days tolerance must not be negative", common.ErrInvalidConfig)
	}
	if s.DescriptionSimilarityThreshold < 0 || s.DescriptionSimilarityThreshold > 1 {
		return fmt.Errorf("%w: description similarity threshold must be between 0.0 and 1.0", common.ErrInvalidConfig)
	}
	if s.SmallAmountThreshold.IsNegative() {
		return fmt.Errorf("%w: small amount threshold must not be negative", common.ErrInvalidConfig)
	}
	return nil
}

// SettingsUpdate is a partial Settings. Nil fields keep their current value.
type SettingsUpdate struct {
	AmountTolerance                *float64
	DaysTolerance                  *int
	DescriptionSimilarityThreshold *float64
	IgnoreSmallAmounts             *bool
	SmallAmountThreshold           *decimal.Decimal
	ExactMatchRequired             *bool
	ConsiderAccount                *bool
	ConsiderCategory               *bool
}

// Apply returns s with the non-nil fields of u merged in.
func (u SettingsUpdate) Apply(s Settings) Settings {
	if u.AmountTolerance != nil {
		s.AmountTolerance = *u.AmountTolerance
	}
	if u.DaysTolerance != nil {
		s.DaysTolerance = *u.DaysTolerance
	}
	if u.DescriptionSimilarityThreshold != nil {
		s.DescriptionSimilarityThreshold = *u.DescriptionSimilarityThreshold
	}
	if u.IgnoreSmallAmounts != nil {
		s.IgnoreSmallAmounts = *u.IgnoreSmallAmounts
	}
	if u.SmallAmountThreshold != nil {
		s.SmallAmountThreshold = *u.SmallAmountThreshold
	}
	if u.ExactMatchRequired != nil {
		s.ExactMatchRequired = *u.ExactMatchRequired
	}
	if u.ConsiderAccount != nil {
		s.ConsiderAccount = *u.ConsiderAccount
	}
	if u.ConsiderCategory != nil {
		s.ConsiderCategory = *u.ConsiderCategory
	}
	return s
}
