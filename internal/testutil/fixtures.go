package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"budgetdesk/internal/models"

	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestBudgetPlan creates a budget plan with zero realized spend.
// The display ID is written directly (high suffix, real partition format)
// so fixtures never collide with allocator-issued IDs.
func CreateTestBudgetPlan(t *testing.T, db *gorm.DB, kind models.BudgetKind, year int, plannedAmount int64) *models.BudgetPlan {
	t.Helper()

	prefix := "OP"
	if kind == models.BudgetKindCapex {
		prefix = "CA"
	}
	plan := &models.BudgetPlan{
		Kind:            kind,
		DisplayID:       fmt.Sprintf("%s-%02d-%04d", prefix, year%100, 9000+nextID()),
		Year:            year,
		Name:            fmt.Sprintf("Test Plan %d", nextID()),
		Department:      "IT Infrastructure",
		PlannedAmount:   plannedAmount,
		RealizedAmount:  0,
		RemainingAmount: plannedAmount,
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("failed to create test budget plan: %v", err)
	}
	return plan
}

// CreateTestTransaction inserts a transaction row directly, without any
// ledger effect. Use it for read/list tests only; lifecycle tests must go
// through the transaction service.
func CreateTestTransaction(t *testing.T, db *gorm.DB, plan *models.BudgetPlan, amount int64) *models.Transaction {
	t.Helper()

	prefix := "TRX-OP"
	if plan.Kind == models.BudgetKindCapex {
		prefix = "TRX-CA"
	}
	transaction := &models.Transaction{
		Kind:         plan.Kind,
		DisplayID:    fmt.Sprintf("%s-%02d-%04d", prefix, time.Now().Year()%100, 9000+nextID()),
		BudgetPlanID: plan.ID,
		Amount:       amount,
		Vendor:       fmt.Sprintf("Vendor %d", nextID()),
		Requester:    "tester",
		Status:       models.TransactionStatusPending,
		Date:         time.Now(),
	}
	if err := db.Create(transaction).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return transaction
}
