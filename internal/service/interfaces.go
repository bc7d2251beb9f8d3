// Package service defines the persistence contract the CLI works against.
// The classification and duplicate engines never see it.
package service

import (
	"context"
	"time"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	AccountID string
	// Categorized restricts results to categorized (true) or uncategorized (false) transactions.
	Categorized *bool
	Limit       int
}

// BackupInfo describes a database snapshot on disk.
type BackupInfo struct {
	CreatedAt time.Time
	Name      string
	Path      string
	Size      int64
	IsAuto    bool
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id, categoryID string) error
	ApplyDuplicateResolution(ctx context.Context, result model.ActionResult) error

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, name string, categoryType model.CategoryType) (*model.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	// Classification rule operations. Built-in rules are stored only once a user overrides them.
	SaveRule(ctx context.Context, rule model.ClassificationRule) error
	GetRules(ctx context.Context) ([]model.ClassificationRule, error)
	DeleteRule(ctx context.Context, id string) error

	// Settings operations. Values are stored as JSON.
	SaveSetting(ctx context.Context, key string, value any) error
	GetSetting(ctx context.Context, key string, dest any) (bool, error)
	DeleteSetting(ctx context.Context, key string) error

	// Database management
	Migrate(ctx context.Context) error
	Backup(ctx context.Context, name string) (string, error)
	AutoBackup(ctx context.Context, operation string) (string, error)
	ListBackups() ([]BackupInfo, error)
	Close() error
}
