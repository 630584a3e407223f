package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	apperrors "misa/internal/errors"
	"misa/internal/logger"
	"misa/internal/models"
	"misa/internal/uuid"
)

// credentialRecord is the on-disk shape of one account.
type credentialRecord struct {
	ID           string                     `json:"id,omitempty"`
	PasswordHash string                     `json:"password_hash"`
	Config       models.BudgetConfiguration `json:"config"`
	CreatedAt    time.Time                  `json:"created_at,omitempty"`
	UpdatedAt    time.Time                  `json:"updated_at,omitempty"`
}

// JSONUserRepository keeps all accounts in one JSON document keyed by
// username. Every write rewrites the document through an atomic rename.
type JSONUserRepository struct {
	path string
	mu   sync.RWMutex
}

// NewJSONUserRepository creates a repository over path. A missing file means
// no accounts yet.
func NewJSONUserRepository(path string) *JSONUserRepository {
	return &JSONUserRepository{path: path}
}

// Create implements UserRepository.
func (r *JSONUserRepository) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	records, err := r.load()
	if err != nil {
		return err
	}
	if _, exists := records[user.Username]; exists {
		return apperrors.ErrUserExists
	}

	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.New()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	records[user.Username] = credentialRecord{
		ID:           user.ID,
		PasswordHash: user.PasswordHash,
		Config:       user.Config.Clone(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := r.write(records); err != nil {
		return err
	}
	logger.Get().Infow("user created", "username", user.Username)
	return nil
}

// FindByUsername implements UserRepository.
func (r *JSONUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := r.load()
	if err != nil {
		return nil, err
	}
	rec, ok := records[username]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return rec.toUser(username), nil
}

// MutateConfig implements UserRepository.
func (r *JSONUserRepository) MutateConfig(ctx context.Context, username string, fn func(*models.BudgetConfiguration) error) (models.BudgetConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return models.BudgetConfiguration{}, err
	}

	records, err := r.load()
	if err != nil {
		return models.BudgetConfiguration{}, err
	}
	rec, ok := records[username]
	if !ok {
		return models.BudgetConfiguration{}, apperrors.ErrUserNotFound
	}

	cfg := rec.Config.Clone()
	if err := fn(&cfg); err != nil {
		return models.BudgetConfiguration{}, err
	}

	rec.Config = cfg
	rec.UpdatedAt = time.Now().UTC()
	records[username] = rec
	if err := r.write(records); err != nil {
		return models.BudgetConfiguration{}, err
	}
	return cfg.Clone(), nil
}

func (r *JSONUserRepository) load() (map[string]credentialRecord, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]credentialRecord{}, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, fmt.Errorf("read credentials: %w", err))
	}
	records := map[string]credentialRecord{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, fmt.Errorf("decode credentials: %w", err))
	}
	return records, nil
}

func (r *JSONUserRepository) write(records map[string]credentialRecord) error {
	err := writeFileAtomic(r.path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return nil
}

func (rec credentialRecord) toUser(username string) *models.User {
	return &models.User{
		Base:         models.Base{ID: rec.ID, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt},
		Username:     username,
		PasswordHash: rec.PasswordHash,
		Config:       rec.Config.Clone(),
	}
}
