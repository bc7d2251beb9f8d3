// Package model defines the core data structures shared by the engines, storage and CLI.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single financial transaction as seen by the engines.
// The engines never mutate a Transaction; they only emit advice about it.
type Transaction struct {
	Date        time.Time
	Amount      decimal.Decimal // Signed, currency agnostic
	ID          string
	Description string // Free text as supplied by the bank or the user
	AccountID   string
	CategoryID  string // Empty when uncategorized
	Hash        string
}

// HasCategory reports whether the transaction carries a category reference.
func (t *Transaction) HasCategory() bool {
	return t.CategoryID != ""
}

// GenerateHash creates a content hash used to skip re-imports of the same statement line.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount.StringFixed(2),
		t.Description,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
