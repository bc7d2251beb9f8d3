package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/common"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
)

func TestRules_SaveAndLoad(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	limit := decimal.RequireFromString("100")
	custom := model.ClassificationRule{
		ID:         "custom_1",
		CategoryID: "food",
		Keywords:   []string{"padaria", "confeitaria"},
		Conditions: model.Conditions{
			model.AmountCondition{Op: model.AmountRange, Max: &limit},
			model.TextCondition{Pattern: "boleto", Exclude: true},
		},
		Confidence: 0.85,
		Active:     true,
	}
	override := model.ClassificationRule{
		ID:         "builtin_transport",
		CategoryID: "transport",
		Keywords:   []string{"uber"},
		Confidence: 0.9,
		Active:     false,
	}

	require.NoError(t, store.SaveRule(ctx, custom))
	require.NoError(t, store.SaveRule(ctx, override))

	// Updating keeps the original order.
	custom.Confidence = 0.6
	require.NoError(t, store.SaveRule(ctx, custom))

	rules, err := store.GetRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "custom_1", rules[0].ID)
	assert.InDelta(t, 0.6, rules[0].Confidence, 1e-9)
	assert.Equal(t, []string{"padaria", "confeitaria"}, rules[0].Keywords)
	require.Len(t, rules[0].Conditions, 2)
	amount, ok := rules[0].Conditions[0].(model.AmountCondition)
	require.True(t, ok)
	assert.True(t, amount.Max.Equal(limit))

	assert.Equal(t, override, rules[1])
}

func TestRules_Errors(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	err := store.SaveRule(ctx, model.ClassificationRule{ID: "custom_x", CategoryID: "c", Confidence: 0.5})
	assert.Error(t, err, "rules without keywords are rejected")

	err = store.SaveRule(ctx, model.ClassificationRule{Keywords: []string{"x"}, CategoryID: "c"})
	assert.ErrorIs(t, err, ErrEmptyString)

	err = store.DeleteRule(ctx, "custom_missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRules_Delete(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRule(ctx, model.ClassificationRule{
		ID: "custom_1", CategoryID: "c", Keywords: []string{"x"}, Confidence: 0.5, Active: true,
	}))
	require.NoError(t, store.DeleteRule(ctx, "custom_1"))

	rules, err := store.GetRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}
