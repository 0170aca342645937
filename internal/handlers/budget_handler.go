package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "budgetdesk/internal/errors"
	"budgetdesk/internal/models"
	"budgetdesk/internal/pagination"
	"budgetdesk/internal/services"
)

// BudgetHandler handles budget-plan requests.
type BudgetHandler struct {
	budgetService   services.BudgetServicer
	activityService services.ActivityServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer, activityService services.ActivityServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, activityService: activityService}
}

// CreateBudgetPlanRequest represents the request payload for creating a budget plan
type CreateBudgetPlanRequest struct {
	Kind          models.BudgetKind `json:"kind" binding:"required,budget_kind"`
	Year          int               `json:"year" binding:"required,fiscal_year"`
	Name          string            `json:"name" binding:"required,max=200"`
	Department    string            `json:"department" binding:"max=200"`
	Description   string            `json:"description" binding:"max=500"`
	PlannedAmount int64             `json:"planned_amount" binding:"required"`
}

// UpdateBudgetPlanRequest represents the request payload for updating a budget plan
type UpdateBudgetPlanRequest struct {
	Name          *string `json:"name" binding:"omitempty,max=200"`
	Department    *string `json:"department" binding:"omitempty,max=200"`
	Description   *string `json:"description" binding:"omitempty,max=500"`
	PlannedAmount *int64  `json:"planned_amount"`
}

// planPayload attaches the derived over-budget status to a plan.
func planPayload(plan *models.BudgetPlan) gin.H {
	return gin.H{
		"budget_plan": plan,
		"over_budget": plan.OverBudget(),
	}
}

// CreateBudgetPlan handles the creation of a new budget plan
// @Summary     Create a budget plan
// @Description Create a new OPEX or CAPEX budget plan for a fiscal year
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Param       request body CreateBudgetPlanRequest true "Budget plan details"
// @Success     201 {object} models.BudgetPlan "Budget plan created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Display ID allocation conflict"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [post]
func (h *BudgetHandler) CreateBudgetPlan(c *gin.Context) {
	var req CreateBudgetPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	plan, err := h.budgetService.CreatePlan(req.Kind, req.Year, req.Name, req.Department, req.Description, req.PlannedAmount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.activityService.Log(actor(c), "CREATE_BUDGET_PLAN", "budget_plan", plan.ID, c.ClientIP(),
		map[string]any{"kind": req.Kind, "year": req.Year, "planned_amount": req.PlannedAmount})

	c.JSON(http.StatusCreated, planPayload(plan))
}

// GetBudgetPlans handles the retrieval of budget plans
// @Summary     List budget plans
// @Description Get a paginated list of budget plans with optional kind/year filters
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       kind      query string false "Filter by kind (opex, capex)"
// @Param       year      query int    false "Filter by fiscal year"
// @Success     200 {object} pagination.PageResponse[models.BudgetPlan] "Paginated budget plans"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [get]
func (h *BudgetHandler) GetBudgetPlans(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var filter services.PlanFilter
	if v := c.Query("kind"); v != "" {
		kind := models.BudgetKind(v)
		if kind != models.BudgetKindOpex && kind != models.BudgetKindCapex {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid kind"))
			return
		}
		filter.Kind = &kind
	}
	if v := c.Query("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid year"))
			return
		}
		filter.Year = &year
	}

	result, err := h.budgetService.GetPlans(page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBudgetPlan handles the retrieval of a single budget plan
// @Summary     Get a budget plan
// @Description Get a budget plan by ID, with its derived over-budget status
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Param       id path string true "Budget plan ID"
// @Success     200 {object} models.BudgetPlan "Budget plan"
// @Failure     404 {object} ErrorResponse "Budget plan not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [get]
func (h *BudgetHandler) GetBudgetPlan(c *gin.Context) {
	plan, err := h.budgetService.GetPlanByID(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, planPayload(plan))
}

// UpdateBudgetPlan handles updates to a budget plan
// @Summary     Update a budget plan
// @Description Update a plan's descriptive fields and planned amount; remaining is recomputed from the current realized amount
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Param       id      path string                  true "Budget plan ID"
// @Param       request body UpdateBudgetPlanRequest true "Fields to update"
// @Success     200 {object} models.BudgetPlan "Updated budget plan"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Budget plan not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [put]
func (h *BudgetHandler) UpdateBudgetPlan(c *gin.Context) {
	var req UpdateBudgetPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	plan, err := h.budgetService.UpdatePlan(c.Param("id"), services.PlanUpdateFields{
		Name:          req.Name,
		Department:    req.Department,
		Description:   req.Description,
		PlannedAmount: req.PlannedAmount,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	changes := map[string]any{}
	if req.PlannedAmount != nil {
		changes["planned_amount"] = *req.PlannedAmount
	}
	h.activityService.Log(actor(c), "UPDATE_BUDGET_PLAN", "budget_plan", plan.ID, c.ClientIP(), changes)

	c.JSON(http.StatusOK, planPayload(plan))
}
