package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"budgetdesk/internal/models"
	"budgetdesk/internal/pagination"
	"budgetdesk/internal/services"
	"budgetdesk/internal/validator"
)

// --- mock services ---

type mockBudgetService struct {
	createPlanFn         func(kind models.BudgetKind, year int, name, department, description string, plannedAmount int64) (*models.BudgetPlan, error)
	getPlanByIDFn        func(planID string) (*models.BudgetPlan, error)
	getPlansFn           func(page pagination.PageRequest, filter services.PlanFilter) (*pagination.PageResponse[models.BudgetPlan], error)
	updatePlanFn         func(planID string, fields services.PlanUpdateFields) (*models.BudgetPlan, error)
	applyRealizedDeltaFn func(tx *gorm.DB, plan *models.BudgetPlan, delta int64) error
}

func (m *mockBudgetService) CreatePlan(kind models.BudgetKind, year int, name, department, description string, plannedAmount int64) (*models.BudgetPlan, error) {
	if m.createPlanFn != nil {
		return m.createPlanFn(kind, year, name, department, description, plannedAmount)
	}
	return &models.BudgetPlan{}, nil
}

func (m *mockBudgetService) GetPlanByID(planID string) (*models.BudgetPlan, error) {
	if m.getPlanByIDFn != nil {
		return m.getPlanByIDFn(planID)
	}
	return &models.BudgetPlan{}, nil
}

func (m *mockBudgetService) GetPlans(page pagination.PageRequest, filter services.PlanFilter) (*pagination.PageResponse[models.BudgetPlan], error) {
	if m.getPlansFn != nil {
		return m.getPlansFn(page, filter)
	}
	resp := pagination.NewPageResponse([]models.BudgetPlan{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockBudgetService) UpdatePlan(planID string, fields services.PlanUpdateFields) (*models.BudgetPlan, error) {
	if m.updatePlanFn != nil {
		return m.updatePlanFn(planID, fields)
	}
	return &models.BudgetPlan{}, nil
}

func (m *mockBudgetService) ApplyRealizedDelta(tx *gorm.DB, plan *models.BudgetPlan, delta int64) error {
	if m.applyRealizedDeltaFn != nil {
		return m.applyRealizedDeltaFn(tx, plan, delta)
	}
	return nil
}

type mockTransactionService struct {
	createTransactionFn  func(budgetPlanID string, amount int64, vendor, requester, description string, date time.Time) (*models.Transaction, error)
	getTransactionByIDFn func(transactionID string) (*models.Transaction, error)
	getTransactionsFn    func(page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	updateTransactionFn  func(transactionID string, fields services.TransactionUpdateFields) (*models.Transaction, error)
	deleteTransactionFn  func(transactionID string) error
}

func (m *mockTransactionService) CreateTransaction(budgetPlanID string, amount int64, vendor, requester, description string, date time.Time) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(budgetPlanID, amount, vendor, requester, description, date)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetTransactionByID(transactionID string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(transactionID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetTransactions(page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getTransactionsFn != nil {
		return m.getTransactionsFn(page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) UpdateTransaction(transactionID string, fields services.TransactionUpdateFields) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(transactionID, fields)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(transactionID string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(transactionID)
	}
	return nil
}

type mockActivityService struct{}

func (m *mockActivityService) Log(_, _, _, _, _ string, _ map[string]any) {}

// verify interface compliance
var (
	_ services.BudgetServicer      = (*mockBudgetService)(nil)
	_ services.TransactionServicer = (*mockTransactionService)(nil)
	_ services.ActivityServicer    = (*mockActivityService)(nil)
)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
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
