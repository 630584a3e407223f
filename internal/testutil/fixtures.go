package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"misa/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// UniqueUsername returns a username not used by any other fixture.
func UniqueUsername() string {
	return fmt.Sprintf("user%d", nextID())
}

// NewTestUser builds an unsaved user with a hashed TestPassword and the
// default budget configuration.
func NewTestUser(t *testing.T, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Config:       models.DefaultBudgetConfiguration(),
	}
}

// CreateTestUser creates a user with a unique username.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := NewTestUser(t, UniqueUsername())
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// NewTestTransaction builds an unsaved, valid transaction.
func NewTestTransaction(owner string, date models.Date, category string, amount string) models.Transaction {
	return models.Transaction{
		Owner:       owner,
		Date:        date,
		Concept:     fmt.Sprintf("Test concept %d", nextID()),
		Category:    category,
		Subcategory: models.SubcategoryManual,
		Amount:      decimal.RequireFromString(amount),
		Method:      "Efectivo",
	}
}

// CreateTestTransaction stores a transaction for owner.
func CreateTestTransaction(t *testing.T, db *gorm.DB, owner string, date models.Date, category string, amount string) *models.Transaction {
	t.Helper()

	tx := NewTestTransaction(owner, date, category, amount)
	if err := db.Create(&tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return &tx
}
