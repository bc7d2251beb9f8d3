package main

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/classification"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/dedupe"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/testutil"
)

func TestLoadEngine_ReplaysStoredState(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, testutil.BasicCategories)
	leisure := db.MustCategory("Lazer")
	food := db.MustCategory("Alimentação")

	require.NoError(t, db.Storage.SaveRule(ctx, model.ClassificationRule{
		ID:         "custom_games",
		CategoryID: leisure.ID,
		Keywords:   []string{"nuuvem"},
		Confidence: 0.85,
		Active:     true,
	}))
	require.NoError(t, db.Storage.SaveRule(ctx, model.ClassificationRule{
		ID:         "builtin_transport",
		CategoryID: db.MustCategory("Transporte").ID,
		Keywords:   []string{"uber"},
		Confidence: 0.9,
		Active:     false,
	}))

	confirmed := testutil.Transaction("t1", "Cantina da Nona", "-54.00", 5)
	confirmed.CategoryID = food.ID
	db.SeedTransactions(confirmed)

	engine, categories, err := loadEngine(ctx, db.Storage)
	require.NoError(t, err)
	assert.Len(t, categories, len(testutil.BasicCategories))

	games := engine.Categorize("NUUVEM JOGOS", decimal.NewFromInt(-50), "")
	assert.Equal(t, leisure.ID, games.CategoryID)
	assert.Equal(t, "custom_games", games.RuleID)

	rule, ok := engine.Rule("builtin_transport")
	require.True(t, ok)
	assert.False(t, rule.Active)
	assert.Equal(t, classification.SourceNone, engine.Categorize("uber trip", decimal.Zero, "").Source)

	learned := engine.Categorize("cantina da nona", decimal.Zero, "")
	assert.Equal(t, classification.SourceLearning, learned.Source)
	assert.Equal(t, food.ID, learned.CategoryID)
}

func TestLoadEngine_SkipsRulesForDeletedCategories(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, testutil.BasicCategories)
	leisure := db.MustCategory("Lazer")

	require.NoError(t, db.Storage.SaveRule(ctx, model.ClassificationRule{
		ID:         "custom_games",
		CategoryID: leisure.ID,
		Keywords:   []string{"nuuvem"},
		Confidence: 0.85,
		Active:     true,
	}))
	require.NoError(t, db.Storage.DeleteCategory(ctx, leisure.ID))

	engine, _, err := loadEngine(ctx, db.Storage)
	require.NoError(t, err)

	_, ok := engine.Rule("custom_games")
	assert.False(t, ok)
}

func TestEffectiveDuplicateSettings(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, nil)

	settings, err := effectiveDuplicateSettings(ctx, db.Storage)
	require.NoError(t, err)
	assert.Equal(t, dedupe.DefaultSettings().DaysTolerance, settings.DaysTolerance)

	stored := dedupe.DefaultSettings()
	stored.DaysTolerance = 7
	stored.SmallAmountThreshold = decimal.RequireFromString("5.00")
	require.NoError(t, db.Storage.SaveSetting(ctx, duplicateSettingsKey, stored))

	settings, err = effectiveDuplicateSettings(ctx, db.Storage)
	require.NoError(t, err)
	assert.Equal(t, 7, settings.DaysTolerance)
	assert.True(t, stored.SmallAmountThreshold.Equal(settings.SmallAmountThreshold))

	detector, err := loadDetector(ctx, db.Storage)
	require.NoError(t, err)
	assert.Equal(t, 7, detector.Settings().DaysTolerance)
}
