package services

import (
	"context"
	"io"

	"github.com/shopspring/decimal"

	"misa/internal/ai"
	"misa/internal/analytics"
	"misa/internal/models"
	"misa/internal/pagination"
)

// UserServicer defines the contract for account registration and login.
type UserServicer interface {
	Register(ctx context.Context, username, password string, initial *models.BudgetConfiguration) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.Session, error)
	GetProfile(ctx context.Context, username string) (*models.User, error)
}

// BudgetServicer defines the contract for editing a user's budget configuration.
// Every mutation is one atomic read-modify-write at the store.
type BudgetServicer interface {
	GetConfig(ctx context.Context, username string) (models.BudgetConfiguration, error)
	UpdateConfig(ctx context.Context, username string, cfg models.BudgetConfiguration) (models.BudgetConfiguration, error)
	SetIncome(ctx context.Context, username string, income decimal.Decimal) (models.BudgetConfiguration, error)
	AddCategory(ctx context.Context, username, name string, limit decimal.Decimal) (models.BudgetConfiguration, error)
	SetLimit(ctx context.Context, username, name string, limit decimal.Decimal) (models.BudgetConfiguration, error)
	RemoveCategory(ctx context.Context, username, name string) (models.BudgetConfiguration, error)
}

// RecordInput is a manually entered transaction. An empty Category asks the
// categorizer for one.
type RecordInput struct {
	Date     models.Date
	Concept  string
	Category string
	Amount   decimal.Decimal
	Method   string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	Period   *models.Period
	Category *string
}

// ImportResult summarizes a committed bulk import.
type ImportResult struct {
	Imported   int      `json:"imported"`
	Classified int      `json:"classified"`
	IDs        []string `json:"ids"`
}

// TransactionServicer defines the contract for ledger operations.
type TransactionServicer interface {
	Record(ctx context.Context, username string, input RecordInput) (*models.Transaction, error)
	List(ctx context.Context, username string, filter TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	ReplaceAll(ctx context.Context, username string, records []models.Transaction) ([]models.Transaction, error)
	Import(ctx context.Context, username string, r io.Reader, classify bool) (*ImportResult, error)
	Classify(ctx context.Context, username, concept string) (ai.Classification, error)
}

// DashboardServicer defines the contract for the monthly report.
type DashboardServicer interface {
	GetReport(ctx context.Context, username string, period models.Period, antThreshold *decimal.Decimal) (*analytics.Report, error)
}

// Answer is the analyst's reply together with the context it was given.
type Answer struct {
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	Period       string `json:"period,omitempty"`
	Transactions int    `json:"transactions"`
	Available    bool   `json:"available"`
}

// AssistantServicer defines the contract for questions about the ledger.
type AssistantServicer interface {
	Ask(ctx context.Context, username, question string, period *models.Period) (*Answer, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(username, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
