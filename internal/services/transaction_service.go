package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "budgetdesk/internal/errors"
	"budgetdesk/internal/models"
	"budgetdesk/internal/pagination"
	"budgetdesk/internal/sequence"
)

// allocationAttempts bounds retries when a display-ID insert hits the
// unique constraint. One retry re-runs allocation from the committed
// counter state before the request fails as a conflict.
const allocationAttempts = 2

// transactionService coordinates the lifecycle of purchase transactions.
// Every create, update and delete validates against the owning plan,
// computes the realized-amount delta and commits the ledger effect and
// the row mutation as one atomic unit.
type transactionService struct {
	db            *gorm.DB
	budgetService BudgetServicer
	allocator     *sequence.Allocator
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, budgetService BudgetServicer, allocator *sequence.Allocator) TransactionServicer {
	return &transactionService{
		db:            db,
		budgetService: budgetService,
		allocator:     allocator,
	}
}

// CreateTransaction records a purchase against a budget plan: it
// allocates a display ID, applies the +amount delta to the plan's
// ledger and inserts the row, all in one database transaction.
func (s *transactionService) CreateTransaction(
	budgetPlanID string,
	amount int64,
	vendor, requester, description string,
	date time.Time,
) (*models.Transaction, error) {
	if budgetPlanID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget plan ID is required")
	}

	// Default date to now if not provided
	if date.IsZero() {
		date = time.Now()
	}

	// Fail fast before any ledger mutation when the plan does not exist.
	plan, err := s.budgetService.GetPlanByID(budgetPlanID)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < allocationAttempts; attempt++ {
		transaction := &models.Transaction{
			Kind:         plan.Kind,
			BudgetPlanID: plan.ID,
			Amount:       amount,
			Vendor:       vendor,
			Requester:    requester,
			Status:       models.TransactionStatusPending,
			Description:  description,
			Date:         date,
		}

		err := s.db.Transaction(func(tx *gorm.DB) error {
			// Transactions are numbered by the calendar year at creation
			// time, not the plan's fiscal year.
			displayID, err := s.allocator.NextID(tx, sequence.TransactionEntity(plan.Kind), time.Now().Year())
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			transaction.DisplayID = displayID

			if err := s.budgetService.ApplyRealizedDelta(tx, plan, amount); err != nil {
				return err
			}

			return tx.Create(transaction).Error
		})
		if err == nil {
			return transaction, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			lastErr = err
			continue
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return nil, apperrors.Wrap(apperrors.ErrAllocationConflict, lastErr)
}

// GetTransactionByID retrieves a transaction by its opaque identifier.
func (s *transactionService) GetTransactionByID(transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// GetTransactions retrieves a paginated, filtered list of transactions.
func (s *transactionService) GetTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := applyTransactionFilters(s.db.Model(&models.Transaction{}), filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.Kind != nil {
		q = q.Where("kind = ?", *f.Kind)
	}
	if f.BudgetPlanID != nil {
		q = q.Where("budget_plan_id = ?", *f.BudgetPlanID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	return q
}

// UpdateTransaction updates a transaction's mutable fields. An amount
// change applies the newAmount - oldAmount delta to the owning plan's
// ledger in the same database transaction as the row update. The owning
// plan itself can never change.
//
// The delta is computed from the amount re-read inside the database
// transaction, never from a value read earlier in the request, and the
// row update is conditional on that amount so a competing event that
// commits first makes this one roll back instead of applying a stale
// delta.
func (s *transactionService) UpdateTransaction(transactionID string, fields TransactionUpdateFields) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(transactionID)
	if err != nil {
		return nil, err
	}

	plan, err := s.budgetService.GetPlanByID(transaction.BudgetPlanID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Vendor != nil {
		updates["vendor"] = *fields.Vendor
	}
	if fields.Requester != nil {
		updates["requester"] = *fields.Requester
	}
	if fields.Status != nil {
		updates["status"] = *fields.Status
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.Date != nil {
		updates["date"] = *fields.Date
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var current models.Transaction
		if err := tx.Where("id = ?", transactionID).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrTransactionNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var delta int64
		if fields.Amount != nil {
			delta = *fields.Amount - current.Amount
			updates["amount"] = *fields.Amount
		}

		if len(updates) > 0 {
			res := tx.Model(&models.Transaction{}).
				Where("id = ? AND amount = ?", current.ID, current.Amount).
				Updates(updates)
			if res.Error != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
			}
			if res.RowsAffected == 0 {
				// Deleted or amended since the read above.
				return apperrors.ErrTransactionNotFound
			}
		}

		return s.budgetService.ApplyRealizedDelta(tx, plan, delta)
	})
	if err != nil {
		return nil, err
	}

	// Reload to get fresh data
	if err := s.db.Where("id = ?", transaction.ID).First(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// DeleteTransaction removes a transaction and reverses its full stored
// amount on the owning plan's ledger. Deleted is terminal; the display
// ID is never reissued.
//
// The reversal delta comes from the row re-read inside the database
// transaction, and the soft delete is conditional on that state: when a
// competing delete or amend commits first the delete matches zero rows
// and this event rolls back without touching the ledger, so each
// transaction's amount is reversed exactly once.
func (s *transactionService) DeleteTransaction(transactionID string) error {
	transaction, err := s.GetTransactionByID(transactionID)
	if err != nil {
		return err
	}

	plan, err := s.budgetService.GetPlanByID(transaction.BudgetPlanID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var current models.Transaction
		if err := tx.Where("id = ?", transactionID).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrTransactionNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		res := tx.Where("amount = ?", current.Amount).Delete(&current)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrTransactionNotFound
		}

		return s.budgetService.ApplyRealizedDelta(tx, plan, -current.Amount)
	})
}
