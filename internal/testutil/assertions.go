package testutil

import (
	"errors"
	"testing"

	apperrors "budgetdesk/internal/errors"
	"budgetdesk/internal/models"

	"gorm.io/gorm"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertPlanBalances reloads the plan and checks its realized and
// remaining amounts, plus the remaining == planned - realized invariant.
func AssertPlanBalances(t *testing.T, db *gorm.DB, planID string, realized, remaining int64) {
	t.Helper()

	var plan models.BudgetPlan
	if err := db.Where("id = ?", planID).First(&plan).Error; err != nil {
		t.Fatalf("failed to reload plan %s: %v", planID, err)
	}

	if plan.RealizedAmount != realized {
		t.Errorf("expected realized %d, got %d", realized, plan.RealizedAmount)
	}
	if plan.RemainingAmount != remaining {
		t.Errorf("expected remaining %d, got %d", remaining, plan.RemainingAmount)
	}
	if plan.RemainingAmount != plan.PlannedAmount-plan.RealizedAmount {
		t.Errorf("invariant violated: planned=%d realized=%d remaining=%d",
			plan.PlannedAmount, plan.RealizedAmount, plan.RemainingAmount)
	}
}
