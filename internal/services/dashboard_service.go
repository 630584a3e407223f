package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"misa/internal/analytics"
	apperrors "misa/internal/errors"
	"misa/internal/models"
	"misa/internal/repository"
)

// dashboardService assembles the monthly report.
type dashboardService struct {
	txs          repository.TransactionRepository
	users        repository.UserRepository
	antThreshold decimal.Decimal
	now          func() time.Time
}

// NewDashboardService creates a new DashboardServicer. antThreshold is used
// when a request does not carry its own.
func NewDashboardService(txs repository.TransactionRepository, users repository.UserRepository, antThreshold decimal.Decimal) DashboardServicer {
	if !antThreshold.IsPositive() {
		antThreshold = analytics.DefaultAntThreshold
	}
	return &dashboardService{txs: txs, users: users, antThreshold: antThreshold, now: time.Now}
}

// GetReport loads the configuration and ledger concurrently and builds the
// report for period.
func (s *dashboardService) GetReport(ctx context.Context, username string, period models.Period, antThreshold *decimal.Decimal) (*analytics.Report, error) {
	threshold := s.antThreshold
	if antThreshold != nil {
		if !antThreshold.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrValidation, "ant_threshold must be greater than zero")
		}
		threshold = *antThreshold
	}

	var (
		cfg models.BudgetConfiguration
		txs []models.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := s.users.FindByUsername(gctx, username)
		if err != nil {
			return err
		}
		cfg = user.Config
		return nil
	})
	g.Go(func() error {
		var err error
		txs, err = s.txs.List(gctx, username)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := analytics.BuildReport(txs, cfg, period, s.now(), threshold)
	return &report, nil
}
