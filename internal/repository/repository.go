// Package repository persists transactions and user accounts. Each store has
// a file-backed implementation (CSV ledger, JSON credentials) and a gorm
// implementation for SQLite or PostgreSQL; services only see the interfaces.
package repository

import (
	"context"
	"fmt"

	apperrors "misa/internal/errors"
	"misa/internal/models"
	"misa/internal/uuid"
)

// TransactionRepository stores every user's transactions on one shared medium.
// Writers are serialized per medium; reads return snapshots.
type TransactionRepository interface {
	// Append validates tx, assigns a new id and persists it.
	Append(ctx context.Context, tx models.Transaction) (string, error)
	// AppendAll persists every transaction or none of them.
	AppendAll(ctx context.Context, txs []models.Transaction) ([]string, error)
	// List returns all records of owner in a stable order. An unknown owner
	// yields an empty slice.
	List(ctx context.Context, owner string) ([]models.Transaction, error)
	// ReplaceAll substitutes owner's records with records. Rows without an
	// id are inserts. Other owners' rows are never touched.
	ReplaceAll(ctx context.Context, owner string, records []models.Transaction) error
}

// UserRepository stores credentials and budget configurations keyed by username.
type UserRepository interface {
	// Create fails with ErrUserExists when the username is taken.
	Create(ctx context.Context, user *models.User) error
	// FindByUsername fails with ErrUserNotFound for unknown usernames.
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// MutateConfig applies fn to the stored configuration and persists the
	// result as a single read-modify-write. Nothing is written if fn fails.
	MutateConfig(ctx context.Context, username string, fn func(*models.BudgetConfiguration) error) (models.BudgetConfiguration, error)
}

// prepareAppend validates txs and assigns fresh ids.
func prepareAppend(txs []models.Transaction) ([]models.Transaction, []string, error) {
	out := make([]models.Transaction, len(txs))
	ids := make([]string, len(txs))
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return nil, nil, err
		}
		tx.ID = uuid.New()
		tx.Invalid = false
		out[i] = tx
		ids[i] = tx.ID
	}
	return out, ids, nil
}

// prepareReplacement validates a bulk edit for owner. foreign reports whether
// an id already belongs to another owner.
func prepareReplacement(owner string, records []models.Transaction, foreign func(id string) bool) ([]models.Transaction, error) {
	if owner == "" {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "owner is required")
	}

	out := make([]models.Transaction, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		rec.Owner = owner
		rec.Invalid = false
		if rec.ID == "" {
			rec.ID = uuid.New()
		} else {
			if _, dup := seen[rec.ID]; dup {
				return nil, apperrors.WithMessage(apperrors.ErrValidation, fmt.Sprintf("row %d: duplicate id %s", i+1, rec.ID))
			}
			if foreign(rec.ID) {
				return nil, apperrors.WithMessage(apperrors.ErrValidation, fmt.Sprintf("row %d: id %s belongs to another owner", i+1, rec.ID))
			}
		}
		if err := rec.Validate(); err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrValidation, fmt.Sprintf("row %d: %s", i+1, err.Error()))
		}
		seen[rec.ID] = struct{}{}
		out[i] = rec
	}
	return out, nil
}
