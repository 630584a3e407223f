package repository

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "misa/internal/errors"
	"misa/internal/models"
)

// GormUserRepository stores accounts in the users table.
type GormUserRepository struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewGormUserRepository creates a UserRepository over db.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create implements UserRepository.
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		if count > 0 {
			return apperrors.ErrUserExists
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrUserExists
			}
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		return nil
	})
}

// FindByUsername implements UserRepository.
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return &user, nil
}

// MutateConfig implements UserRepository.
func (r *GormUserRepository) MutateConfig(ctx context.Context, username string, fn func(*models.BudgetConfiguration) error) (models.BudgetConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result models.BudgetConfiguration
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		query := tx
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.Where("username = ?", username).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}

		cfg := user.Config.Clone()
		if err := fn(&cfg); err != nil {
			return err
		}

		user.Config = cfg
		if err := tx.Model(&user).Select("config_net_income", "config_budgets", "updated_at").Updates(&user).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		result = cfg.Clone()
		return nil
	})
	if err != nil {
		return models.BudgetConfiguration{}, err
	}
	return result, nil
}
