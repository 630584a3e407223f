package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "misa/internal/errors"
	"misa/internal/models"
	"misa/internal/testutil"
)

func newJSONRepo(t *testing.T) (*JSONUserRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	return NewJSONUserRepository(path), path
}

func TestJSONUserCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		repo, path := newJSONRepo(t)
		user := testutil.NewTestUser(t, "alice")

		testutil.AssertNoError(t, repo.Create(ctx, user))
		if user.ID == "" {
			t.Error("expected an id to be assigned")
		}

		found, err := repo.FindByUsername(ctx, "alice")
		testutil.AssertNoError(t, err)
		if found.PasswordHash != user.PasswordHash {
			t.Error("expected password hash to round-trip")
		}
		if got := found.Config.Budgets.Names(); len(got) != 6 || got[0] != "Renta" {
			t.Errorf("expected budget order preserved, got %v", got)
		}
		testutil.AssertDecimal(t, "net income", found.Config.NetIncome, "14600")

		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected credentials file: %v", err)
		}
	})

	t.Run("duplicate_username", func(t *testing.T) {
		repo, _ := newJSONRepo(t)
		testutil.AssertNoError(t, repo.Create(ctx, testutil.NewTestUser(t, "alice")))

		err := repo.Create(ctx, testutil.NewTestUser(t, "alice"))
		testutil.AssertAppError(t, err, "ALREADY_EXISTS")
	})
}

func TestJSONUserFindUnknown(t *testing.T) {
	repo, _ := newJSONRepo(t)

	_, err := repo.FindByUsername(context.Background(), "ghost")
	testutil.AssertAppError(t, err, "USER_NOT_FOUND")
}

func TestJSONUserMutateConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("persists_result", func(t *testing.T) {
		repo, _ := newJSONRepo(t)
		testutil.AssertNoError(t, repo.Create(ctx, testutil.NewTestUser(t, "alice")))

		cfg, err := repo.MutateConfig(ctx, "alice", func(c *models.BudgetConfiguration) error {
			c.NetIncome = decimal.NewFromInt(20000)
			c.Budgets = append(c.Budgets, models.BudgetEnvelope{Name: "Gym", Limit: decimal.NewFromInt(400)})
			return nil
		})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "returned income", cfg.NetIncome, "20000")

		reloaded := NewJSONUserRepository(repo.path)
		user, err := reloaded.FindByUsername(ctx, "alice")
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "stored income", user.Config.NetIncome, "20000")
		if !user.Config.Budgets.Has("Gym") {
			t.Error("expected new envelope to be stored")
		}
	})

	t.Run("failed_mutation_writes_nothing", func(t *testing.T) {
		repo, _ := newJSONRepo(t)
		testutil.AssertNoError(t, repo.Create(ctx, testutil.NewTestUser(t, "alice")))

		boom := errors.New("boom")
		_, err := repo.MutateConfig(ctx, "alice", func(c *models.BudgetConfiguration) error {
			c.NetIncome = decimal.NewFromInt(1)
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected mutation error, got %v", err)
		}

		user, _ := repo.FindByUsername(ctx, "alice")
		testutil.AssertDecimal(t, "income", user.Config.NetIncome, "14600")
	})

	t.Run("unknown_user", func(t *testing.T) {
		repo, _ := newJSONRepo(t)

		_, err := repo.MutateConfig(ctx, "ghost", func(*models.BudgetConfiguration) error { return nil })
		if !errors.Is(err, apperrors.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("concurrent_category_adds", func(t *testing.T) {
		repo, _ := newJSONRepo(t)
		user := testutil.NewTestUser(t, "alice")
		user.Config = models.BudgetConfiguration{}
		testutil.AssertNoError(t, repo.Create(ctx, user))

		names := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
		var wg sync.WaitGroup
		for _, name := range names {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				_, err := repo.MutateConfig(ctx, "alice", func(c *models.BudgetConfiguration) error {
					c.Budgets = append(c.Budgets, models.BudgetEnvelope{Name: name, Limit: decimal.NewFromInt(1)})
					return nil
				})
				if err != nil {
					t.Errorf("mutate %s: %v", name, err)
				}
			}(name)
		}
		wg.Wait()

		stored, _ := repo.FindByUsername(ctx, "alice")
		if len(stored.Config.Budgets) != len(names) {
			t.Errorf("expected %d envelopes, got %d", len(names), len(stored.Config.Budgets))
		}
	})
}

func TestJSONUserCorruptFile(t *testing.T) {
	repo, path := newJSONRepo(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := repo.FindByUsername(context.Background(), "alice")
	testutil.AssertAppError(t, err, "STORAGE_ERROR")
}
