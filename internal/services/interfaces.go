package services

import (
	"time"

	"gorm.io/gorm"

	"budgetdesk/internal/models"
	"budgetdesk/internal/pagination"
)

// PlanFilter holds optional filter parameters for listing budget plans.
type PlanFilter struct {
	Kind *models.BudgetKind
	Year *int
}

// PlanUpdateFields holds the mutable fields of a budget plan. Nil fields
// are left unchanged.
type PlanUpdateFields struct {
	Name          *string
	Department    *string
	Description   *string
	PlannedAmount *int64
}

// BudgetServicer defines the contract for budget-plan business logic.
// It owns the plan's realized/remaining ledger columns: no other code
// path may write them.
type BudgetServicer interface {
	CreatePlan(kind models.BudgetKind, year int, name, department, description string, plannedAmount int64) (*models.BudgetPlan, error)
	GetPlanByID(planID string) (*models.BudgetPlan, error)
	GetPlans(page pagination.PageRequest, filter PlanFilter) (*pagination.PageResponse[models.BudgetPlan], error)
	UpdatePlan(planID string, fields PlanUpdateFields) (*models.BudgetPlan, error)
	ApplyRealizedDelta(tx *gorm.DB, plan *models.BudgetPlan, delta int64) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	Kind         *models.BudgetKind
	BudgetPlanID *string
	Status       *models.TransactionStatus
	FromDate     *time.Time
	ToDate       *time.Time
	MinAmount    *int64
	MaxAmount    *int64
}

// TransactionUpdateFields holds the mutable fields of a transaction.
// Nil fields are left unchanged; the owning budget plan is immutable.
type TransactionUpdateFields struct {
	Amount      *int64
	Vendor      *string
	Requester   *string
	Status      *models.TransactionStatus
	Description *string
	Date        *time.Time
}

// TransactionServicer defines the contract for transaction lifecycle
// coordination.
type TransactionServicer interface {
	CreateTransaction(budgetPlanID string, amount int64, vendor, requester, description string, date time.Time) (*models.Transaction, error)
	GetTransactionByID(transactionID string) (*models.Transaction, error)
	GetTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	UpdateTransaction(transactionID string, fields TransactionUpdateFields) (*models.Transaction, error)
	DeleteTransaction(transactionID string) error
}

// ActivityServicer defines the contract for activity log recording.
type ActivityServicer interface {
	Log(actor, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}
