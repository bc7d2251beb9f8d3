package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/classification"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/common"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/dedupe"
)

// Configuration keys.
const (
	KeyDatabasePath = "database.path"

	KeyAmountTolerance        = "duplicates.amount_tolerance"
	KeyDaysTolerance          = "duplicates.days_tolerance"
	KeyDescriptionThreshold   = "duplicates.description_similarity_threshold"
	KeyIgnoreSmallAmounts     = "duplicates.ignore_small_amounts"
	KeySmallAmountThreshold   = "duplicates.small_amount_threshold"
	KeyExactMatchRequired     = "duplicates.exact_match_required"
	KeyConsiderAccount        = "duplicates.consider_account"
	KeyConsiderCategory       = "duplicates.consider_category"
	KeyClassificationPrimary  = "classification.fragments"
	KeyClassificationFallback = "classification.fallback"
)

// DefaultDatabasePath returns where the database lives when database.path is unset.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "solviss.db"
	}
	return filepath.Join(home, ".local", "share", "solviss", "solviss.db")
}

// DatabasePath resolves the configured database location.
func DatabasePath(v *viper.Viper) string {
	if p := v.GetString(KeyDatabasePath); p != "" {
		return ExpandPath(p)
	}
	return DefaultDatabasePath()
}

// LoadDuplicateSettings reads duplicate detection settings, starting from the
// defaults and overriding every key that is set.
func LoadDuplicateSettings(v *viper.Viper) (dedupe.Settings, error) {
	s := dedupe.DefaultSettings()

	if v.IsSet(KeyAmountTolerance) {
		s.AmountTolerance = v.GetFloat64(KeyAmountTolerance)
	}
	if v.IsSet(KeyDaysTolerance) {
		s.DaysTolerance = v.GetInt(KeyDaysTolerance)
	}
	if v.IsSet(KeyDescriptionThreshold) {
		s.DescriptionSimilarityThreshold = v.GetFloat64(KeyDescriptionThreshold)
	}
	if v.IsSet(KeyIgnoreSmallAmounts) {
		s.IgnoreSmallAmounts = v.GetBool(KeyIgnoreSmallAmounts)
	}
	if v.IsSet(KeySmallAmountThreshold) {
		threshold, err := decimal.NewFromString(v.GetString(KeySmallAmountThreshold))
		if err != nil {
			return s, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, KeySmallAmountThreshold, err)
		}
		s.SmallAmountThreshold = threshold
	}
	if v.IsSet(KeyExactMatchRequired) {
		s.ExactMatchRequired = v.GetBool(KeyExactMatchRequired)
	}
	if v.IsSet(KeyConsiderAccount) {
		s.ConsiderAccount = v.GetBool(KeyConsiderAccount)
	}
	if v.IsSet(KeyConsiderCategory) {
		s.ConsiderCategory = v.GetBool(KeyConsiderCategory)
	}

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// LoadFragmentTable reads the category binding table. Each half of the table
// falls back to the built-in Portuguese defaults when it is not configured.
func LoadFragmentTable(v *viper.Viper) (classification.FragmentTable, error) {
	table := classification.DefaultFragmentTable()

	if v.IsSet(KeyClassificationPrimary) {
		var primary []classification.FragmentRule
		if err := v.UnmarshalKey(KeyClassificationPrimary, &primary); err != nil {
			return table, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, KeyClassificationPrimary, err)
		}
		for i, rule := range primary {
			if rule.Fragment == "" || len(rule.Keywords) == 0 {
				return table, fmt.Errorf("%w: %s[%d] needs a fragment and keywords", common.ErrInvalidConfig, KeyClassificationPrimary, i)
			}
		}
		table.Primary = primary
	}

	if v.IsSet(KeyClassificationFallback) {
		var fallback map[string][]string
		if err := v.UnmarshalKey(KeyClassificationFallback, &fallback); err != nil {
			return table, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, KeyClassificationFallback, err)
		}
		table.Fallback = fallback
	}

	return table, nil
}
