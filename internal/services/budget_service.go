package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "misa/internal/errors"
	"misa/internal/logger"
	"misa/internal/models"
	"misa/internal/repository"
)

// budgetService edits budget configurations. Removing a category never
// touches transactions already filed under it.
type budgetService struct {
	users repository.UserRepository
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(users repository.UserRepository) BudgetServicer {
	return &budgetService{users: users}
}

// GetConfig returns the user's current configuration.
func (s *budgetService) GetConfig(ctx context.Context, username string) (models.BudgetConfiguration, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return models.BudgetConfiguration{}, err
	}
	return user.Config.Clone(), nil
}

// UpdateConfig replaces the whole configuration. Concurrent replacements
// resolve as last writer wins.
func (s *budgetService) UpdateConfig(ctx context.Context, username string, cfg models.BudgetConfiguration) (models.BudgetConfiguration, error) {
	next := cfg.Clone()
	for i := range next.Budgets {
		next.Budgets[i].Name = strings.TrimSpace(next.Budgets[i].Name)
	}
	if err := next.Validate(); err != nil {
		return models.BudgetConfiguration{}, apperrors.WithMessage(apperrors.ErrValidation, err.Error())
	}

	return s.mutate(ctx, username, "config replaced", func(c *models.BudgetConfiguration) error {
		*c = next.Clone()
		return nil
	})
}

// SetIncome changes the monthly net income.
func (s *budgetService) SetIncome(ctx context.Context, username string, income decimal.Decimal) (models.BudgetConfiguration, error) {
	if income.IsNegative() {
		return models.BudgetConfiguration{}, apperrors.WithMessage(apperrors.ErrValidation, "net income must not be negative")
	}
	if !models.FitsMoneyScale(income) {
		return models.BudgetConfiguration{}, apperrors.WithMessage(apperrors.ErrValidation, "net income must have at most 2 decimal places")
	}
	return s.mutate(ctx, username, "income set", func(c *models.BudgetConfiguration) error {
		c.NetIncome = income
		return nil
	})
}

// AddCategory appends a new envelope.
func (s *budgetService) AddCategory(ctx context.Context, username, name string, limit decimal.Decimal) (models.BudgetConfiguration, error) {
	name = strings.TrimSpace(name)
	if err := checkEnvelope(name, limit); err != nil {
		return models.BudgetConfiguration{}, err
	}
	return s.mutate(ctx, username, "category added", func(c *models.BudgetConfiguration) error {
		if c.Budgets.Has(name) {
			return apperrors.ErrCategoryExists
		}
		c.Budgets = append(c.Budgets, models.BudgetEnvelope{Name: name, Limit: limit})
		return nil
	})
}

// SetLimit changes the limit of an existing envelope.
func (s *budgetService) SetLimit(ctx context.Context, username, name string, limit decimal.Decimal) (models.BudgetConfiguration, error) {
	name = strings.TrimSpace(name)
	if err := checkEnvelope(name, limit); err != nil {
		return models.BudgetConfiguration{}, err
	}
	return s.mutate(ctx, username, "limit set", func(c *models.BudgetConfiguration) error {
		i := c.Budgets.Index(name)
		if i < 0 {
			return apperrors.ErrCategoryNotFound
		}
		c.Budgets[i].Limit = limit
		return nil
	})
}

// RemoveCategory deletes an envelope.
func (s *budgetService) RemoveCategory(ctx context.Context, username, name string) (models.BudgetConfiguration, error) {
	name = strings.TrimSpace(name)
	return s.mutate(ctx, username, "category removed", func(c *models.BudgetConfiguration) error {
		i := c.Budgets.Index(name)
		if i < 0 {
			return apperrors.ErrCategoryNotFound
		}
		c.Budgets = append(c.Budgets[:i], c.Budgets[i+1:]...)
		return nil
	})
}

func (s *budgetService) mutate(ctx context.Context, username, what string, fn func(*models.BudgetConfiguration) error) (models.BudgetConfiguration, error) {
	cfg, err := s.users.MutateConfig(ctx, username, fn)
	if err != nil {
		return models.BudgetConfiguration{}, err
	}
	logger.Get().Infow(what, "username", username, "categories", len(cfg.Budgets))
	return cfg, nil
}

func checkEnvelope(name string, limit decimal.Decimal) error {
	if name == "" {
		return apperrors.WithMessage(apperrors.ErrValidation, "category name is required")
	}
	if len(name) > models.MaxCategoryNameLength {
		return apperrors.WithMessage(apperrors.ErrValidation, "category name is too long (max 50 characters)")
	}
	if limit.IsNegative() {
		return apperrors.WithMessage(apperrors.ErrValidation, "limit must not be negative")
	}
	if !models.FitsMoneyScale(limit) {
		return apperrors.WithMessage(apperrors.ErrValidation, "limit must have at most 2 decimal places")
	}
	return nil
}
