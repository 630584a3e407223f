package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	apperrors "misa/internal/errors"
	"misa/internal/logger"
	"misa/internal/models"
	"misa/internal/repository"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// userService handles registration and login.
type userService struct {
	users repository.UserRepository
	cost  int
}

// NewUserService creates a new UserServicer.
func NewUserService(users repository.UserRepository) UserServicer {
	return &userService{users: users, cost: bcrypt.DefaultCost}
}

// Register creates an account with a hashed password. A nil initial
// configuration assigns the default one.
func (s *userService) Register(ctx context.Context, username, password string, initial *models.BudgetConfiguration) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "username and password are required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "password must be at least 6 characters")
	}

	cfg := models.DefaultBudgetConfiguration()
	if initial != nil {
		cfg = initial.Clone()
		if err := cfg.Validate(); err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrValidation, err.Error())
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
		Config:       cfg,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.Get().Infow("user registered", "username", username)
	return user, nil
}

// Authenticate checks credentials and returns a session. Unknown users and
// wrong passwords fail the same way.
func (s *userService) Authenticate(ctx context.Context, username, password string) (*models.Session, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	return &models.Session{Username: user.Username, Config: user.Config.Clone()}, nil
}

// GetProfile returns the stored account.
func (s *userService) GetProfile(ctx context.Context, username string) (*models.User, error) {
	return s.users.FindByUsername(ctx, username)
}
