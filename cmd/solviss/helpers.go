package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/classification"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/common"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/config"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/dedupe"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/service"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/similarity"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/storage"
)

// duplicateSettingsKey is the settings row holding user-edited duplicate settings.
const duplicateSettingsKey = "duplicates"

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := config.DatabasePath(viper.GetViper())

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadEngine builds a classification engine from the stored categories, then
// replays persisted rule edits, custom rules and confirmed categorizations.
func loadEngine(ctx context.Context, store service.Storage) (*classification.Engine, []model.Category, error) {
	categories, err := store.GetCategories(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get categories: %w", err)
	}

	table, err := config.LoadFragmentTable(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}

	engine := classification.NewEngine(categories, classification.WithFragmentTable(table))

	rules, err := store.GetRules(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get rules: %w", err)
	}

	active := make(map[string]bool, len(categories))
	for _, c := range categories {
		active[c.ID] = true
	}

	for _, rule := range rules {
		if !active[rule.CategoryID] {
			slog.Debug("skipping rule for inactive category", "rule", rule.ID, "category", rule.CategoryID)
			continue
		}

		switch {
		case classification.IsCustomRuleID(rule.ID):
			if err := engine.RestoreCustomRule(rule); err != nil {
				slog.Warn("skipping stored rule", "rule", rule.ID, "error", err)
			}
		case classification.IsBuiltinRuleID(rule.ID):
			if !engine.UpdateRule(rule.ID, overrideFrom(rule)) {
				slog.Debug("stored override has no matching built-in rule", "rule", rule.ID)
			}
		}
	}

	categorized := true
	history, err := store.GetTransactions(ctx, service.TransactionFilter{Categorized: &categorized})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get categorized transactions: %w", err)
	}
	for _, txn := range history {
		if active[txn.CategoryID] {
			engine.Learn(txn.Description, txn.CategoryID)
		}
	}

	stats := engine.Stats()
	common.LogDebug("engine loaded", common.Fields{
		"rules":            stats.TotalRules,
		"active_rules":     stats.ActiveRules,
		"learning_entries": stats.LearningEntries,
	})

	return engine, categories, nil
}

func overrideFrom(rule model.ClassificationRule) classification.RuleUpdate {
	conditions := rule.Conditions
	return classification.RuleUpdate{
		CategoryID: &rule.CategoryID,
		Confidence: &rule.Confidence,
		Active:     &rule.Active,
		Conditions: &conditions,
		Keywords:   rule.Keywords,
	}
}

// persistRule stores the engine's current copy of a rule.
func persistRule(ctx context.Context, store service.Storage, engine *classification.Engine, id string) (model.ClassificationRule, error) {
	rule, ok := engine.Rule(id)
	if !ok {
		return model.ClassificationRule{}, fmt.Errorf("%w: rule %s", common.ErrNotFound, id)
	}
	if err := store.SaveRule(ctx, rule); err != nil {
		return model.ClassificationRule{}, fmt.Errorf("failed to save rule: %w", err)
	}
	return rule, nil
}

// loadDetector returns a detector using the stored settings when present,
// otherwise the settings from the config file.
func loadDetector(ctx context.Context, store service.Storage) (*dedupe.Detector, error) {
	settings, err := effectiveDuplicateSettings(ctx, store)
	if err != nil {
		return nil, err
	}
	return dedupe.NewDetector(settings), nil
}

func effectiveDuplicateSettings(ctx context.Context, store service.Storage) (dedupe.Settings, error) {
	settings, err := config.LoadDuplicateSettings(viper.GetViper())
	if err != nil {
		return dedupe.Settings{}, err
	}

	var stored dedupe.Settings
	found, err := store.GetSetting(ctx, duplicateSettingsKey, &stored)
	if err != nil {
		return dedupe.Settings{}, fmt.Errorf("failed to load duplicate settings: %w", err)
	}
	if found {
		return stored, nil
	}
	return settings, nil
}

// findCategory resolves a category by name, suggesting the closest name on a miss.
func findCategory(ctx context.Context, store service.Storage, name string) (*model.Category, error) {
	category, err := store.GetCategoryByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up category: %w", err)
	}
	if category != nil {
		return category, nil
	}

	categories, err := store.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return nil, categoryNotFound(name, categories)
}

func categoryNotFound(name string, categories []model.Category) error {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}

	msg := fmt.Sprintf("Categoria %q não encontrada", name)
	if closest, ok := similarity.Closest(name, names, 3); ok {
		msg += fmt.Sprintf(". Você quis dizer %q?", closest)
	}
	return common.NewUserError(msg, fmt.Errorf("%w: category %q", common.ErrNotFound, name))
}

func categoryNames(categories []model.Category) map[string]string {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names
}

// parseDate accepts YYYY-MM-DD or DD/MM/YYYY.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, common.NewUserError(
		fmt.Sprintf("Data inválida %q, use AAAA-MM-DD ou DD/MM/AAAA", s),
		errors.New("invalid date"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
