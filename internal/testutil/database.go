// Package testutil provides database fixtures for tests that need a migrated store.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/storage"
)

// BasicCategories is the minimal category set most tests seed.
var BasicCategories = []model.Category{
	{Name: "Alimentação", Type: model.CategoryTypeExpense},
	{Name: "Transporte", Type: model.CategoryTypeExpense},
	{Name: "Lazer", Type: model.CategoryTypeExpense},
	{Name: "Salário", Type: model.CategoryTypeIncome},
}

// TestDB is a migrated SQLite store in a temporary directory.
type TestDB struct {
	Storage    *storage.SQLiteStorage
	t          *testing.T
	categories map[string]model.Category
}

// SetupTestDB creates a migrated database seeded with cats. It is closed when the test ends.
func SetupTestDB(t *testing.T, cats []model.Category) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db := &TestDB{Storage: store, t: t, categories: make(map[string]model.Category)}
	for _, cat := range cats {
		created, err := store.CreateCategory(ctx, cat.Name, cat.Type)
		if err != nil {
			t.Fatalf("failed to seed category %q: %v", cat.Name, err)
		}
		db.categories[created.Name] = *created
	}
	return db
}

// MustCategory returns the seeded category with the given name or fails the test.
func (db *TestDB) MustCategory(name string) model.Category {
	db.t.Helper()
	cat, ok := db.categories[name]
	if !ok {
		db.t.Fatalf("category %q was not seeded", name)
	}
	return cat
}

// SeedTransactions stores txns, filling in missing hashes, and fails the test on error.
func (db *TestDB) SeedTransactions(txns ...model.Transaction) {
	db.t.Helper()
	for i := range txns {
		if txns[i].Hash == "" {
			txns[i].Hash = txns[i].GenerateHash()
		}
	}
	if _, err := db.Storage.SaveTransactions(context.Background(), txns); err != nil {
		db.t.Fatalf("failed to seed transactions: %v", err)
	}
}

// Transaction builds a transaction on the given day of January 2024.
func Transaction(id, description, amount string, day int) model.Transaction {
	return model.Transaction{
		ID:          id,
		Date:        time.Date(2024, time.January, day, 0, 0, 0, 0, time.UTC),
		Description: description,
		Amount:      decimal.RequireFromString(amount),
		AccountID:   "conta-1",
	}
}
