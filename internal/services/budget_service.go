package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "budgetdesk/internal/errors"
	"budgetdesk/internal/logger"
	"budgetdesk/internal/models"
	"budgetdesk/internal/pagination"
	"budgetdesk/internal/sequence"
)

// budgetService handles budget-plan business logic and owns the ledger
// columns realized_amount and remaining_amount.
type budgetService struct {
	db        *gorm.DB
	allocator *sequence.Allocator
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, allocator *sequence.Allocator) BudgetServicer {
	return &budgetService{db: db, allocator: allocator}
}

// CreatePlan creates a budget plan with a freshly allocated display ID.
// A new plan starts with zero realized spend and remaining equal to the
// planned amount.
func (s *budgetService) CreatePlan(
	kind models.BudgetKind,
	year int,
	name, department, description string,
	plannedAmount int64,
) (*models.BudgetPlan, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "plan name is required")
	}
	if kind != models.BudgetKindOpex && kind != models.BudgetKindCapex {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "kind must be opex or capex")
	}

	var lastErr error
	for attempt := 0; attempt < allocationAttempts; attempt++ {
		plan := &models.BudgetPlan{
			Kind:            kind,
			Year:            year,
			Name:            name,
			Department:      department,
			Description:     description,
			PlannedAmount:   plannedAmount,
			RealizedAmount:  0,
			RemainingAmount: plannedAmount,
		}

		err := s.db.Transaction(func(tx *gorm.DB) error {
			// Plans are numbered within their fiscal year.
			displayID, err := s.allocator.NextID(tx, sequence.PlanEntity(kind), year)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			plan.DisplayID = displayID

			return tx.Create(plan).Error
		})
		if err == nil {
			return plan, nil
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

// GetPlanByID retrieves a budget plan by its opaque identifier.
func (s *budgetService) GetPlanByID(planID string) (*models.BudgetPlan, error) {
	var plan models.BudgetPlan
	if err := s.db.Where("id = ?", planID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetPlanNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// remaining == planned - realized holds after every committed
	// mutation. Observing a mismatch means the ledger broke atomicity
	// somewhere; alert rather than hand out inconsistent numbers.
	if plan.RemainingAmount != plan.PlannedAmount-plan.RealizedAmount {
		logger.Get().Errorw("budget ledger invariant violated",
			"plan_id", plan.ID,
			"display_id", plan.DisplayID,
			"planned", plan.PlannedAmount,
			"realized", plan.RealizedAmount,
			"remaining", plan.RemainingAmount,
		)
		return nil, apperrors.ErrInvariantViolation
	}

	return &plan, nil
}

// GetPlans returns a paginated list of budget plans with optional filters.
func (s *budgetService) GetPlans(page pagination.PageRequest, filter PlanFilter) (*pagination.PageResponse[models.BudgetPlan], error) {
	page.Defaults()

	base := s.db.Model(&models.BudgetPlan{})
	if filter.Kind != nil {
		base = base.Where("kind = ?", *filter.Kind)
	}
	if filter.Year != nil {
		base = base.Where("year = ?", *filter.Year)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var plans []models.BudgetPlan
	if err := base.Scopes(pagination.Paginate(page)).
		Order("display_id").
		Find(&plans).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(plans, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdatePlan updates a plan's descriptive fields and planned amount.
// Changing the planned amount recomputes remaining from the realized
// amount current at commit time, not the value read earlier in the
// request.
func (s *budgetService) UpdatePlan(planID string, fields PlanUpdateFields) (*models.BudgetPlan, error) {
	plan, err := s.GetPlanByID(planID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Name != nil {
		if *fields.Name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "plan name cannot be empty")
		}
		updates["name"] = *fields.Name
	}
	if fields.Department != nil {
		updates["department"] = *fields.Department
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.PlannedAmount != nil {
		updates["planned_amount"] = *fields.PlannedAmount
		updates["remaining_amount"] = gorm.Expr("? - realized_amount", *fields.PlannedAmount)
	}

	if len(updates) > 0 {
		if err := s.db.Model(plan).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		// Reload to get fresh data
		if err := s.db.Where("id = ?", plan.ID).First(plan).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return plan, nil
}

// ApplyRealizedDelta applies a signed delta to a plan's realized and
// remaining amounts as one conditional UPDATE against the currently
// persisted values, never against values read earlier in the request.
// For CAPEX plans a positive delta is refused when it would drive
// remaining below zero; OPEX plans may go negative (over budget).
//
// Must run inside the same database transaction as the row mutation that
// produced the delta. Not idempotent: callers apply it exactly once per
// transaction event.
func (s *budgetService) ApplyRealizedDelta(tx *gorm.DB, plan *models.BudgetPlan, delta int64) error {
	if delta == 0 {
		return nil
	}

	q := tx.Model(&models.BudgetPlan{}).Where("id = ?", plan.ID)
	if plan.Kind == models.BudgetKindCapex && delta > 0 {
		q = q.Where("remaining_amount >= ?", delta)
	}

	res := q.Updates(map[string]interface{}{
		"realized_amount":  gorm.Expr("realized_amount + ?", delta),
		"remaining_amount": gorm.Expr("remaining_amount - ?", delta),
	})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}

	if res.RowsAffected == 0 {
		// Either the plan vanished or the CAPEX guard refused the delta.
		var count int64
		if err := tx.Model(&models.BudgetPlan{}).Where("id = ?", plan.ID).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return apperrors.ErrBudgetPlanNotFound
		}
		return apperrors.ErrInsufficientBudget
	}

	return nil
}
