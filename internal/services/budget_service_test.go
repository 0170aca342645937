package services

import (
	"fmt"
	"testing"
	"time"

	"budgetdesk/internal/models"
	"budgetdesk/internal/pagination"
	"budgetdesk/internal/sequence"
	"budgetdesk/internal/testutil"
)

func TestCreatePlan(t *testing.T) {
	t.Run("opex_plan", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())

		plan, err := svc.CreatePlan(models.BudgetKindOpex, 2025, "Software licenses", "IT Operations", "", 1_000_000)
		testutil.AssertNoError(t, err)

		if plan.DisplayID != "OP-25-0001" {
			t.Errorf("expected display ID OP-25-0001, got %s", plan.DisplayID)
		}
		if plan.RealizedAmount != 0 {
			t.Errorf("expected zero realized, got %d", plan.RealizedAmount)
		}
		if plan.RemainingAmount != 1_000_000 {
			t.Errorf("expected remaining 1000000, got %d", plan.RemainingAmount)
		}
	})

	t.Run("capex_plan", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())

		plan, err := svc.CreatePlan(models.BudgetKindCapex, 2025, "Server refresh", "Data Center", "", 5_000_000)
		testutil.AssertNoError(t, err)

		if plan.DisplayID != "CA-25-0001" {
			t.Errorf("expected display ID CA-25-0001, got %s", plan.DisplayID)
		}
	})

	t.Run("sequential_display_ids", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())

		for i := 1; i <= 3; i++ {
			plan, err := svc.CreatePlan(models.BudgetKindOpex, 2025, fmt.Sprintf("Plan %d", i), "", "", 1000)
			testutil.AssertNoError(t, err)
			if want := fmt.Sprintf("OP-25-%04d", i); plan.DisplayID != want {
				t.Errorf("plan %d: expected %s, got %s", i, want, plan.DisplayID)
			}
		}
	})

	t.Run("plans_numbered_by_fiscal_year", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())

		p25, err := svc.CreatePlan(models.BudgetKindOpex, 2025, "This year", "", "", 1000)
		testutil.AssertNoError(t, err)
		p26, err := svc.CreatePlan(models.BudgetKindOpex, 2026, "Next year", "", "", 1000)
		testutil.AssertNoError(t, err)

		if p25.DisplayID != "OP-25-0001" {
			t.Errorf("expected OP-25-0001, got %s", p25.DisplayID)
		}
		if p26.DisplayID != "OP-26-0001" {
			t.Errorf("expected OP-26-0001, got %s", p26.DisplayID)
		}
	})

	t.Run("missing_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())

		_, err := svc.CreatePlan(models.BudgetKindOpex, 2025, "", "", "", 1000)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("invalid_kind", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())

		_, err := svc.CreatePlan(models.BudgetKind("totex"), 2025, "Plan", "", "", 1000)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetPlanByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())
		created := testutil.CreateTestBudgetPlan(t, db, models.BudgetKindOpex, 2025, 1000)

		plan, err := svc.GetPlanByID(created.ID)
		testutil.AssertNoError(t, err)
		if plan.DisplayID != created.DisplayID {
			t.Errorf("expected display ID %s, got %s", created.DisplayID, plan.DisplayID)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())

		_, err := svc.GetPlanByID("00000000-0000-0000-0000-000000000000")
		testutil.AssertAppError(t, err, "BUDGET_PLAN_NOT_FOUND")
	})

	t.Run("detects_invariant_violation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())
		created := testutil.CreateTestBudgetPlan(t, db, models.BudgetKindOpex, 2025, 1000)

		// Corrupt the ledger columns behind the service's back.
		if err := db.Model(&models.BudgetPlan{}).Where("id = ?", created.ID).
			Update("remaining_amount", 999).Error; err != nil {
			t.Fatal(err)
		}

		_, err := svc.GetPlanByID(created.ID)
		testutil.AssertAppError(t, err, "INVARIANT_VIOLATION")
	})
}

func TestGetPlans(t *testing.T) {
	t.Run("filter_by_kind", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())

		testutil.CreateTestBudgetPlan(t, db, models.BudgetKindOpex, 2025, 1000)
		testutil.CreateTestBudgetPlan(t, db, models.BudgetKindOpex, 2025, 2000)
		testutil.CreateTestBudgetPlan(t, db, models.BudgetKindCapex, 2025, 3000)

		capex := models.BudgetKindCapex
		page := pagination.PageRequest{Page: 1, PageSize: 20}
		result, err := svc.GetPlans(page, PlanFilter{Kind: &capex})
		testutil.AssertNoError(t, err)

		if result.TotalItems != 1 {
			t.Errorf("expected 1 capex plan, got %d", result.TotalItems)
		}
	})

	t.Run("filter_by_year", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())

		testutil.CreateTestBudgetPlan(t, db, models.BudgetKindOpex, 2024, 1000)
		testutil.CreateTestBudgetPlan(t, db, models.BudgetKindOpex, 2025, 1000)

		year := 2024
		page := pagination.PageRequest{Page: 1, PageSize: 20}
		result, err := svc.GetPlans(page, PlanFilter{Year: &year})
		testutil.AssertNoError(t, err)

		if result.TotalItems != 1 {
			t.Errorf("expected 1 plan for 2024, got %d", result.TotalItems)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())

		for i := 0; i < 5; i++ {
			testutil.CreateTestBudgetPlan(t, db, models.BudgetKindOpex, 2025, int64((i+1)*1000))
		}

		page := pagination.PageRequest{Page: 1, PageSize: 2}
		result, err := svc.GetPlans(page, PlanFilter{})
		testutil.AssertNoError(t, err)

		if result.TotalItems != 5 {
			t.Errorf("expected total 5, got %d", result.TotalItems)
		}
		if len(result.Data) != 2 {
			t.Errorf("expected 2 items on page, got %d", len(result.Data))
		}
		if result.TotalPages != 3 {
			t.Errorf("expected 3 total pages, got %d", result.TotalPages)
		}
	})
}

func TestUpdatePlan(t *testing.T) {
	t.Run("rename", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())
		created := testutil.CreateTestBudgetPlan(t, db, models.BudgetKindOpex, 2025, 1000)

		name := "Renamed"
		plan, err := svc.UpdatePlan(created.ID, PlanUpdateFields{Name: &name})
		testutil.AssertNoError(t, err)
		if plan.Name != "Renamed" {
			t.Errorf("expected Renamed, got %s", plan.Name)
		}
	})

	t.Run("rejects_empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())
		created := testutil.CreateTestBudgetPlan(t, db, models.BudgetKindOpex, 2025, 1000)

		name := ""
		_, err := svc.UpdatePlan(created.ID, PlanUpdateFields{Name: &name})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("planned_amount_recomputes_remaining", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		budgetSvc := NewBudgetService(db, sequence.NewAllocator())
		txSvc := NewTransactionService(db, budgetSvc, sequence.NewAllocator())
		created := testutil.CreateTestBudgetPlan(t, db, models.BudgetKindOpex, 2025, 1_000_000)

		_, err := txSvc.CreateTransaction(created.ID, 300_000, "", "", "", time.Now())
		testutil.AssertNoError(t, err)

		newPlanned := int64(800_000)
		plan, err := budgetSvc.UpdatePlan(created.ID, PlanUpdateFields{PlannedAmount: &newPlanned})
		testutil.AssertNoError(t, err)

		if plan.PlannedAmount != 800_000 {
			t.Errorf("expected planned 800000, got %d", plan.PlannedAmount)
		}
		if plan.RealizedAmount != 300_000 {
			t.Errorf("expected realized 300000, got %d", plan.RealizedAmount)
		}
		if plan.RemainingAmount != 500_000 {
			t.Errorf("expected remaining 500000, got %d", plan.RemainingAmount)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())

		name := "x"
		_, err := svc.UpdatePlan("00000000-0000-0000-0000-000000000000", PlanUpdateFields{Name: &name})
		testutil.AssertAppError(t, err, "BUDGET_PLAN_NOT_FOUND")
	})
}

func TestApplyRealizedDelta(t *testing.T) {
	t.Run("positive_delta", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())
		plan := testutil.CreateTestBudgetPlan(t, db, models.BudgetKindOpex, 2025, 1000)

		testutil.AssertNoError(t, svc.ApplyRealizedDelta(db, plan, 400))
		testutil.AssertPlanBalances(t, db, plan.ID, 400, 600)
	})

	t.Run("negative_delta", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())
		plan := testutil.CreateTestBudgetPlan(t, db, models.BudgetKindOpex, 2025, 1000)

		testutil.AssertNoError(t, svc.ApplyRealizedDelta(db, plan, 400))
		testutil.AssertNoError(t, svc.ApplyRealizedDelta(db, plan, -150))
		testutil.AssertPlanBalances(t, db, plan.ID, 250, 750)
	})

	t.Run("zero_delta_is_noop", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())
		plan := testutil.CreateTestBudgetPlan(t, db, models.BudgetKindOpex, 2025, 1000)

		testutil.AssertNoError(t, svc.ApplyRealizedDelta(db, plan, 0))
		testutil.AssertPlanBalances(t, db, plan.ID, 0, 1000)
	})

	t.Run("opex_allows_negative_remaining", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())
		plan := testutil.CreateTestBudgetPlan(t, db, models.BudgetKindOpex, 2025, 1000)

		testutil.AssertNoError(t, svc.ApplyRealizedDelta(db, plan, 1500))
		testutil.AssertPlanBalances(t, db, plan.ID, 1500, -500)
	})

	t.Run("capex_guard_rejects", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())
		plan := testutil.CreateTestBudgetPlan(t, db, models.BudgetKindCapex, 2025, 1000)

		err := svc.ApplyRealizedDelta(db, plan, 1001)
		testutil.AssertAppError(t, err, "INSUFFICIENT_BUDGET")
		testutil.AssertPlanBalances(t, db, plan.ID, 0, 1000)
	})

	t.Run("capex_allows_exact_remaining", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())
		plan := testutil.CreateTestBudgetPlan(t, db, models.BudgetKindCapex, 2025, 1000)

		testutil.AssertNoError(t, svc.ApplyRealizedDelta(db, plan, 1000))
		testutil.AssertPlanBalances(t, db, plan.ID, 1000, 0)
	})

	t.Run("capex_negative_delta_never_guarded", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())
		plan := testutil.CreateTestBudgetPlan(t, db, models.BudgetKindCapex, 2025, 1000)

		testutil.AssertNoError(t, svc.ApplyRealizedDelta(db, plan, 1000))
		testutil.AssertNoError(t, svc.ApplyRealizedDelta(db, plan, -300))
		testutil.AssertPlanBalances(t, db, plan.ID, 700, 300)
	})

	t.Run("plan_not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, sequence.NewAllocator())

		ghost := &models.BudgetPlan{Kind: models.BudgetKindOpex}
		ghost.ID = "00000000-0000-0000-0000-000000000000"
		err := svc.ApplyRealizedDelta(db, ghost, 100)
		testutil.AssertAppError(t, err, "BUDGET_PLAN_NOT_FOUND")
	})
}
