package repository

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	apperrors "misa/internal/errors"
	"misa/internal/logger"
	"misa/internal/models"
)

// GormTransactionRepository stores transactions in the transactions table of
// a SQLite or PostgreSQL database.
type GormTransactionRepository struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewGormTransactionRepository creates a TransactionRepository over db.
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Append implements TransactionRepository.
func (r *GormTransactionRepository) Append(ctx context.Context, tx models.Transaction) (string, error) {
	ids, err := r.AppendAll(ctx, []models.Transaction{tx})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AppendAll implements TransactionRepository.
func (r *GormTransactionRepository) AppendAll(ctx context.Context, txs []models.Transaction) ([]string, error) {
	prepared, ids, err := prepareAppend(txs)
	if err != nil {
		return nil, err
	}
	if len(prepared) == 0 {
		return ids, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&prepared, 100).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	logger.Get().Infow("transactions appended", "backend", r.db.Dialector.Name(), "count", len(prepared))
	return ids, nil
}

// List implements TransactionRepository.
func (r *GormTransactionRepository) List(ctx context.Context, owner string) ([]models.Transaction, error) {
	out := []models.Transaction{}
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return out, nil
}

// ReplaceAll implements TransactionRepository.
func (r *GormTransactionRepository) ReplaceAll(ctx context.Context, owner string, records []models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		for _, rec := range records {
			if rec.ID != "" {
				ids = append(ids, rec.ID)
			}
		}

		foreign := map[string]struct{}{}
		if len(ids) > 0 {
			var taken []string
			if err := tx.Model(&models.Transaction{}).
				Where("id IN ? AND owner <> ?", ids, owner).
				Pluck("id", &taken).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrStorage, err)
			}
			for _, id := range taken {
				foreign[id] = struct{}{}
			}
		}

		replacement, err := prepareReplacement(owner, records, func(id string) bool {
			_, ok := foreign[id]
			return ok
		})
		if err != nil {
			return err
		}

		if err := tx.Where("owner = ?", owner).Delete(&models.Transaction{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		if len(replacement) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&replacement, 100).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}

	logger.Get().Infow("transactions replaced", "backend", r.db.Dialector.Name(), "owner", owner, "count", len(records))
	return nil
}
