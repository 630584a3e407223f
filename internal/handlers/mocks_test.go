package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"misa/internal/ai"
	"misa/internal/analytics"
	"misa/internal/middleware"
	"misa/internal/models"
	"misa/internal/pagination"
	"misa/internal/services"
	"misa/internal/validator"
)

// --- mock services ---

type mockUserService struct {
	registerFn     func(ctx context.Context, username, password string, initial *models.BudgetConfiguration) (*models.User, error)
	authenticateFn func(ctx context.Context, username, password string) (*models.Session, error)
	getProfileFn   func(ctx context.Context, username string) (*models.User, error)
}

func (m *mockUserService) Register(ctx context.Context, username, password string, initial *models.BudgetConfiguration) (*models.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, username, password, initial)
	}
	return &models.User{Username: username, Config: models.DefaultBudgetConfiguration()}, nil
}

func (m *mockUserService) Authenticate(ctx context.Context, username, password string) (*models.Session, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, username, password)
	}
	return &models.Session{Username: username, Config: models.DefaultBudgetConfiguration()}, nil
}

func (m *mockUserService) GetProfile(ctx context.Context, username string) (*models.User, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, username)
	}
	return &models.User{Username: username, Config: models.DefaultBudgetConfiguration()}, nil
}

type mockBudgetService struct {
	getConfigFn      func(ctx context.Context, username string) (models.BudgetConfiguration, error)
	updateConfigFn   func(ctx context.Context, username string, cfg models.BudgetConfiguration) (models.BudgetConfiguration, error)
	setIncomeFn      func(ctx context.Context, username string, income decimal.Decimal) (models.BudgetConfiguration, error)
	addCategoryFn    func(ctx context.Context, username, name string, limit decimal.Decimal) (models.BudgetConfiguration, error)
	setLimitFn       func(ctx context.Context, username, name string, limit decimal.Decimal) (models.BudgetConfiguration, error)
	removeCategoryFn func(ctx context.Context, username, name string) (models.BudgetConfiguration, error)
}

func (m *mockBudgetService) GetConfig(ctx context.Context, username string) (models.BudgetConfiguration, error) {
	if m.getConfigFn != nil {
		return m.getConfigFn(ctx, username)
	}
	return models.DefaultBudgetConfiguration(), nil
}

func (m *mockBudgetService) UpdateConfig(ctx context.Context, username string, cfg models.BudgetConfiguration) (models.BudgetConfiguration, error) {
	if m.updateConfigFn != nil {
		return m.updateConfigFn(ctx, username, cfg)
	}
	return cfg, nil
}

func (m *mockBudgetService) SetIncome(ctx context.Context, username string, income decimal.Decimal) (models.BudgetConfiguration, error) {
	if m.setIncomeFn != nil {
		return m.setIncomeFn(ctx, username, income)
	}
	return models.DefaultBudgetConfiguration(), nil
}

func (m *mockBudgetService) AddCategory(ctx context.Context, username, name string, limit decimal.Decimal) (models.BudgetConfiguration, error) {
	if m.addCategoryFn != nil {
		return m.addCategoryFn(ctx, username, name, limit)
	}
	return models.DefaultBudgetConfiguration(), nil
}

func (m *mockBudgetService) SetLimit(ctx context.Context, username, name string, limit decimal.Decimal) (models.BudgetConfiguration, error) {
	if m.setLimitFn != nil {
		return m.setLimitFn(ctx, username, name, limit)
	}
	return models.DefaultBudgetConfiguration(), nil
}

func (m *mockBudgetService) RemoveCategory(ctx context.Context, username, name string) (models.BudgetConfiguration, error) {
	if m.removeCategoryFn != nil {
		return m.removeCategoryFn(ctx, username, name)
	}
	return models.DefaultBudgetConfiguration(), nil
}

type mockTransactionService struct {
	recordFn     func(ctx context.Context, username string, input services.RecordInput) (*models.Transaction, error)
	listFn       func(ctx context.Context, username string, filter services.TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	replaceAllFn func(ctx context.Context, username string, records []models.Transaction) ([]models.Transaction, error)
	importFn     func(ctx context.Context, username string, r io.Reader, classify bool) (*services.ImportResult, error)
	classifyFn   func(ctx context.Context, username, concept string) (ai.Classification, error)
}

func (m *mockTransactionService) Record(ctx context.Context, username string, input services.RecordInput) (*models.Transaction, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, username, input)
	}
	return &models.Transaction{Owner: username}, nil
}

func (m *mockTransactionService) List(ctx context.Context, username string, filter services.TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if m.listFn != nil {
		return m.listFn(ctx, username, filter, page)
	}
	resp := pagination.Slice([]models.Transaction{}, page)
	return &resp, nil
}

func (m *mockTransactionService) ReplaceAll(ctx context.Context, username string, records []models.Transaction) ([]models.Transaction, error) {
	if m.replaceAllFn != nil {
		return m.replaceAllFn(ctx, username, records)
	}
	return records, nil
}

func (m *mockTransactionService) Import(ctx context.Context, username string, r io.Reader, classify bool) (*services.ImportResult, error) {
	if m.importFn != nil {
		return m.importFn(ctx, username, r, classify)
	}
	return &services.ImportResult{}, nil
}

func (m *mockTransactionService) Classify(ctx context.Context, username, concept string) (ai.Classification, error) {
	if m.classifyFn != nil {
		return m.classifyFn(ctx, username, concept)
	}
	return ai.Fallback, nil
}

type mockDashboardService struct {
	getReportFn func(ctx context.Context, username string, period models.Period, antThreshold *decimal.Decimal) (*analytics.Report, error)
}

func (m *mockDashboardService) GetReport(ctx context.Context, username string, period models.Period, antThreshold *decimal.Decimal) (*analytics.Report, error) {
	if m.getReportFn != nil {
		return m.getReportFn(ctx, username, period, antThreshold)
	}
	return &analytics.Report{Period: period}, nil
}

type mockAssistantService struct {
	askFn func(ctx context.Context, username, question string, period *models.Period) (*services.Answer, error)
}

func (m *mockAssistantService) Ask(ctx context.Context, username, question string, period *models.Period) (*services.Answer, error) {
	if m.askFn != nil {
		return m.askFn(ctx, username, question, period)
	}
	return &services.Answer{Question: question, Answer: ai.NoDataMessage}, nil
}

// mockAuditService records the actions it was asked to log.
type mockAuditService struct {
	mu      sync.Mutex
	actions []string
}

func (m *mockAuditService) Log(_, action, resourceType, _, _ string, _ map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action+" "+resourceType)
}

func (m *mockAuditService) logged() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.actions...)
}

var (
	_ services.UserServicer        = (*mockUserService)(nil)
	_ services.BudgetServicer      = (*mockBudgetService)(nil)
	_ services.TransactionServicer = (*mockTransactionService)(nil)
	_ services.DashboardServicer   = (*mockDashboardService)(nil)
	_ services.AssistantServicer   = (*mockAssistantService)(nil)
	_ services.AuditServicer       = (*mockAuditService)(nil)
)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectUsername(username string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UsernameKey, username)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}
