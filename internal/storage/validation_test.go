package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/service"
)

func TestStorageValidation(t *testing.T) {
	store := createTestStorage(t)

	t.Run("nil context", func(t *testing.T) {
		//nolint:staticcheck // nil contexts are passed on purpose
		calls := map[string]func() error{
			"SaveTransactions": func() error {
				_, err := store.SaveTransactions(nil, []model.Transaction{testTransaction("a", "x", "1", 1)})
				return err
			},
			"GetTransactions": func() error {
				_, err := store.GetTransactions(nil, service.TransactionFilter{})
				return err
			},
			"GetTransactionByID": func() error {
				_, err := store.GetTransactionByID(nil, "a")
				return err
			},
			"ApplyDuplicateResolution": func() error {
				return store.ApplyDuplicateResolution(nil, model.ActionResult{})
			},
			"GetCategories": func() error {
				_, err := store.GetCategories(nil)
				return err
			},
			"GetRules": func() error {
				_, err := store.GetRules(nil)
				return err
			},
			"SaveSetting": func() error {
				return store.SaveSetting(nil, "k", 1)
			},
		}

		for name, call := range calls {
			t.Run(name, func(t *testing.T) {
				assert.ErrorIs(t, call(), ErrNilContext)
			})
		}
	})

	t.Run("empty strings", func(t *testing.T) {
		ctx := context.Background()

		calls := map[string]func() error{
			"GetTransactionByID": func() error {
				_, err := store.GetTransactionByID(ctx, "")
				return err
			},
			"UpdateTransactionCategory": func() error {
				return store.UpdateTransactionCategory(ctx, "a", "   ")
			},
			"GetCategoryByName": func() error {
				_, err := store.GetCategoryByName(ctx, "")
				return err
			},
			"DeleteCategory": func() error {
				return store.DeleteCategory(ctx, " ")
			},
			"DeleteRule": func() error {
				return store.DeleteRule(ctx, "")
			},
			"GetSetting": func() error {
				var v int
				_, err := store.GetSetting(ctx, "", &v)
				return err
			},
		}

		for name, call := range calls {
			t.Run(name, func(t *testing.T) {
				assert.ErrorIs(t, call(), ErrEmptyString)
			})
		}
	})
}
