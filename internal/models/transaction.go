package models

import "time"

// TransactionStatus represents the processing state of a purchase.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusOrdered TransactionStatus = "ordered"
	TransactionStatusPaid    TransactionStatus = "paid"
)

// Transaction represents a recorded expenditure against exactly one
// budget plan. BudgetPlanID is immutable after creation; a transaction
// is never re-parented to a different plan.
type Transaction struct {
	Base
	Kind         BudgetKind        `gorm:"not null;index" json:"kind"`
	DisplayID    string            `gorm:"not null;uniqueIndex" json:"display_id"`
	BudgetPlanID string            `gorm:"type:uuid;not null;index" json:"budget_plan_id"`
	Amount       int64             `gorm:"type:bigint;not null" json:"amount"`
	Vendor       string            `json:"vendor"`
	Requester    string            `json:"requester"`
	Status       TransactionStatus `gorm:"not null;default:pending" json:"status"`
	Description  string            `json:"description"`
	Date         time.Time         `gorm:"not null" json:"date"`

	// Relationships
	BudgetPlan BudgetPlan `gorm:"foreignKey:BudgetPlanID" json:"-"`
}
