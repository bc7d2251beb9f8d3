package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/common"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/service"
)

const transactionColumns = `id, hash, date, description, amount, account_id, category_id`

// SaveTransactions stores transactions, skipping any whose hash is already present.
// It returns how many were inserted.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateTransactions(transactions); err != nil {
		return 0, err
	}

	inserted := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO transactions (`+transactionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, txn := range transactions {
			if txn.Hash == "" {
				txn.Hash = txn.GenerateHash()
			}

			result, err := stmt.ExecContext(ctx,
				txn.ID,
				txn.Hash,
				txn.Date.UTC(),
				txn.Description,
				txn.Amount.String(),
				txn.AccountID,
				nullString(txn.CategoryID),
			)
			if err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
			}

			if n, err := result.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Debug("saved transactions", "received", len(transactions), "inserted", inserted)
	return inserted, nil
}

// GetTransactions returns transactions matching filter, oldest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, *filter.EndDate, *filter.StartDate)
	}

	var (
		where []string
		args  []any
	)
	if filter.StartDate != nil {
		where = append(where, "date >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		where = append(where, "date <= ?")
		args = append(args, filter.EndDate.UTC())
	}
	if filter.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.Categorized != nil {
		if *filter.Categorized {
			where = append(where, "category_id IS NOT NULL")
		} else {
			where = append(where, "category_id IS NULL")
		}
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, created_at ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return s.queryTransactions(ctx, s.db, query, args...)
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// UpdateTransactionCategory assigns a category to a transaction.
func (s *SQLiteStorage) UpdateTransactionCategory(ctx context.Context, id, categoryID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateString(categoryID, "categoryID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE transactions SET category_id = ? WHERE id = ?`, categoryID, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction category: %w", err)
	}
	return requireAffected(result, "transaction", id)
}

// ApplyDuplicateResolution performs the deletes and the update described by
// result atomically. Nothing changes if any referenced transaction is missing.
func (s *SQLiteStorage) ApplyDuplicateResolution(ctx context.Context, result model.ActionResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range result.ToDelete {
			res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
			if err != nil {
				return fmt.Errorf("failed to delete transaction %s: %w", id, err)
			}
			if err := requireAffected(res, "transaction", id); err != nil {
				return err
			}
		}

		if result.ToUpdate != nil {
			if err := updateTransactionFields(ctx, tx, *result.ToUpdate); err != nil {
				return err
			}
		}

		slog.Debug("applied duplicate resolution",
			"deleted", len(result.ToDelete),
			"updated", result.ToUpdate != nil)
		return nil
	})
}

func updateTransactionFields(ctx context.Context, q queryable, update model.ProposedUpdate) error {
	var (
		sets []string
		args []any
	)
	if update.Updates.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Updates.Description)
	}
	if update.Updates.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, nullString(*update.Updates.CategoryID))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, update.ID)
	res, err := q.ExecContext(ctx, `UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", update.ID, err)
	}
	return requireAffected(res, "transaction", update.ID)
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, q queryable, query string, args ...any) ([]model.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var (
		txn        model.Transaction
		categoryID sql.NullString
	)
	err := row.Scan(
		&txn.ID,
		&txn.Hash,
		&txn.Date,
		&txn.Description,
		&txn.Amount,
		&txn.AccountID,
		&categoryID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return txn, err
	}
	if err != nil {
		return txn, fmt.Errorf("failed to scan transaction: %w", err)
	}

	txn.CategoryID = categoryID.String
	return txn, nil
}
