package models

// BudgetKind distinguishes operational from capital budget plans.
type BudgetKind string

const (
	BudgetKindOpex  BudgetKind = "opex"
	BudgetKindCapex BudgetKind = "capex"
)

// BudgetPlan represents a yearly allocation for a department.
//
// RealizedAmount and RemainingAmount are derived columns owned by the
// ledger: RealizedAmount is the sum of all non-deleted transaction amounts
// against the plan, and RemainingAmount == PlannedAmount - RealizedAmount
// after every committed mutation. They must only ever be written through
// BudgetServicer.ApplyRealizedDelta or UpdatePlan.
type BudgetPlan struct {
	Base
	Kind            BudgetKind `gorm:"not null;index" json:"kind"`
	DisplayID       string     `gorm:"not null;uniqueIndex" json:"display_id"`
	Year            int        `gorm:"not null;index" json:"year"`
	Name            string     `gorm:"not null" json:"name"`
	Department      string     `json:"department"`
	Description     string     `json:"description"`
	PlannedAmount   int64      `gorm:"type:bigint;not null" json:"planned_amount"`
	RealizedAmount  int64      `gorm:"type:bigint;not null;default:0" json:"realized_amount"`
	RemainingAmount int64      `gorm:"type:bigint;not null;default:0" json:"remaining_amount"`
}

// OverBudget reports whether realized spend has exceeded the planned
// amount. Only OPEX plans can reach this state; CAPEX transactions that
// would drive remaining negative are rejected.
func (b *BudgetPlan) OverBudget() bool {
	return b.RemainingAmount < 0
}
