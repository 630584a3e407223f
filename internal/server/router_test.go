package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"misa/internal/ai"
	"misa/internal/logger"
	"misa/internal/repository"
	"misa/internal/validator"
)

const pipelineKey = "test-pipeline-key"

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// testApp holds the full application stack backed by files in a temp dir.
type testApp struct {
	Router *gin.Engine
	Dir    string
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	dir := t.TempDir()
	router := NewRouter(Dependencies{
		Transactions:   repository.NewCSVTransactionRepository(filepath.Join(dir, "transactions.csv")),
		Users:          repository.NewJSONUserRepository(filepath.Join(dir, "users.json")),
		Categorizer:    ai.NewCategorizer(ai.NewKeywordClassifier(), time.Second),
		Assistant:      ai.NewAssistant(nil, time.Second),
		PipelineAPIKey: pipelineKey,
	})
	return &testApp{Router: router, Dir: dir}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) upload(t *testing.T, path, content string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "statement.csv")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user with the default configuration and
// returns the token.
func (app *testApp) registerUser(t *testing.T, username string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":"password123"}`, username)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["token"].(string)
}

func TestHealth(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/health", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/v1/nothing-here", "", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	errObj, _ := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %v", errObj)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := setupApp(t)

	for _, route := range []struct{ method, path string }{
		{"GET", "/api/v1/profile"},
		{"GET", "/api/v1/config"},
		{"GET", "/api/v1/transactions"},
		{"GET", "/api/v1/dashboard"},
		{"POST", "/api/v1/assistant/ask"},
	} {
		rec := app.request(route.method, route.path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", route.method, route.path, rec.Code)
		}
	}
}

func TestLedgerFlow(t *testing.T) {
	app := setupApp(t)
	token := app.registerUser(t, "alice")
	today := time.Now().Format("2006-01-02")

	// Login returns the stored configuration
	rec := app.request("POST", "/api/v1/auth/login", `{"username":"alice","password":"password123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = app.request("POST", "/api/v1/auth/login", `{"username":"alice","password":"wrong-password"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on wrong password, got %d", rec.Code)
	}

	// Add a category
	rec = app.request("POST", "/api/v1/config/categories", `{"name":"Mascotas","limit":"300"}`, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add category failed: %d %s", rec.Code, rec.Body.String())
	}

	// Manual entry in the new category
	rec = app.request("POST", "/api/v1/transactions",
		fmt.Sprintf(`{"date":%q,"concept":"Croquetas","category":"Mascotas","amount":"250","method":"Efectivo"}`, today), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record failed: %d %s", rec.Code, rec.Body.String())
	}

	// Entry without a category is classified
	rec = app.request("POST", "/api/v1/transactions",
		fmt.Sprintf(`{"date":%q,"concept":"Uber al trabajo","amount":"85.50"}`, today), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record failed: %d %s", rec.Code, rec.Body.String())
	}
	tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
	if tx["category"] != "Transporte" {
		t.Errorf("expected Transporte, got %v", tx["category"])
	}

	// Dashboard sees both
	rec = app.request("GET", "/api/v1/dashboard", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard failed: %d %s", rec.Code, rec.Body.String())
	}
	report := parseJSON(t, rec)
	budget := report["budget"].(map[string]interface{})
	if budget["total_spent"] != "335.5" {
		t.Errorf("expected total spent 335.5, got %v", budget["total_spent"])
	}
	if report["transactions"] != float64(2) {
		t.Errorf("expected 2 transactions, got %v", report["transactions"])
	}

	// Pipeline import appends to alice's ledger
	statement := fmt.Sprintf("fecha,concepto,monto,categoria\n%s,Super,\"1.250,00\",Alimentos\n", today)
	rec = app.upload(t, "/api/v1/pipeline/users/alice/import", statement, map[string]string{"X-API-Key": pipelineKey})
	if rec.Code != http.StatusCreated {
		t.Fatalf("pipeline import failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = app.upload(t, "/api/v1/pipeline/users/alice/import", statement, map[string]string{"X-API-Key": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on wrong pipeline key, got %d", rec.Code)
	}

	rec = app.request("GET", "/api/v1/transactions", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("list failed: %d %s", rec.Code, rec.Body.String())
	}
	if total := parseJSON(t, rec)["total_items"]; total != float64(3) {
		t.Errorf("expected 3 transactions, got %v", total)
	}

	// The assistant has data but no provider
	rec = app.request("POST", "/api/v1/assistant/ask", `{"question":"¿Cuánto gasté?"}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("ask failed: %d %s", rec.Code, rec.Body.String())
	}
	if answer := parseJSON(t, rec)["answer"]; answer != ai.UnavailableMessage {
		t.Errorf("expected unavailable message, got %v", answer)
	}

	// Bulk replace with an empty ledger clears it
	rec = app.request("PUT", "/api/v1/transactions", `{"transactions":[]}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = app.request("GET", "/api/v1/transactions", "", token)
	if total := parseJSON(t, rec)["total_items"]; total != float64(0) {
		t.Errorf("expected an empty ledger, got %v", total)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	app := setupApp(t)
	alice := app.registerUser(t, "alice")
	bob := app.registerUser(t, "bob")

	rec := app.request("POST", "/api/v1/transactions", `{"date":"2025-03-01","concept":"Cine","category":"Diversion","amount":"120"}`, alice)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record failed: %d %s", rec.Code, rec.Body.String())
	}

	// Bob replacing his own ledger never touches alice's rows
	rec = app.request("PUT", "/api/v1/transactions", `{"transactions":[]}`, bob)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", "/api/v1/transactions", "", bob)
	if total := parseJSON(t, rec)["total_items"]; total != float64(0) {
		t.Errorf("expected bob to see nothing, got %v", total)
	}
	rec = app.request("GET", "/api/v1/transactions", "", alice)
	if total := parseJSON(t, rec)["total_items"]; total != float64(1) {
		t.Errorf("expected alice to keep her row, got %v", total)
	}

	rec = app.request("POST", "/api/v1/auth/register", `{"username":"alice","password":"password123"}`, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for a duplicate username, got %d", rec.Code)
	}
}
