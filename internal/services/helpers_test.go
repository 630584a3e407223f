package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"misa/internal/ai"
	"misa/internal/events"
	"misa/internal/models"
	"misa/internal/repository"
	"misa/internal/testutil"
)

// stores are the file-backed repositories of one test.
type stores struct {
	txs   *repository.CSVTransactionRepository
	users *repository.JSONUserRepository
}

func newFileStores(t *testing.T) stores {
	t.Helper()

	dir := t.TempDir()
	return stores{
		txs:   repository.NewCSVTransactionRepository(filepath.Join(dir, "transactions.csv")),
		users: repository.NewJSONUserRepository(filepath.Join(dir, "users.json")),
	}
}

// newTestUserService returns a user service hashing at the minimum cost.
func newTestUserService(users repository.UserRepository) UserServicer {
	return &userService{users: users, cost: bcrypt.MinCost}
}

// registerUser creates a user with the default configuration.
func registerUser(t *testing.T, users repository.UserRepository) string {
	t.Helper()

	username := testutil.UniqueUsername()
	_, err := newTestUserService(users).Register(context.Background(), username, testutil.TestPassword, nil)
	testutil.AssertNoError(t, err)
	return username
}

// stubClassifier is a function-field ai.Classifier.
type stubClassifier struct {
	fn func(ctx context.Context, concept string, candidates []string) (ai.Classification, error)
}

func (s *stubClassifier) Classify(ctx context.Context, concept string, candidates []string) (ai.Classification, error) {
	return s.fn(ctx, concept, candidates)
}

// stubAnalyst is a function-field ai.Analyst.
type stubAnalyst struct {
	fn func(ctx context.Context, question string, txs []models.Transaction) (string, error)
}

func (s *stubAnalyst) Ask(ctx context.Context, question string, txs []models.Transaction) (string, error) {
	return s.fn(ctx, question, txs)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}
