package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "budgetdesk/internal/errors"
	"budgetdesk/internal/models"
	"budgetdesk/internal/pagination"
	"budgetdesk/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	activityService    services.ActivityServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, activityService services.ActivityServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, activityService: activityService}
}

// CreateTransactionRequest represents the request payload for creating a transaction.
// Amount deliberately carries no lower bound; see the ledger's delta semantics.
type CreateTransactionRequest struct {
	BudgetPlanID string  `json:"budget_plan_id" binding:"required,uuid"`
	Amount       int64   `json:"amount"`
	Vendor       string  `json:"vendor" binding:"max=200"`
	Requester    string  `json:"requester" binding:"max=200"`
	Description  string  `json:"description" binding:"max=500"`
	Date         *string `json:"date"`
}

// UpdateTransactionRequest represents the request payload for updating a transaction.
// The owning budget plan is immutable and therefore absent.
type UpdateTransactionRequest struct {
	Amount      *int64                    `json:"amount"`
	Vendor      *string                   `json:"vendor" binding:"omitempty,max=200"`
	Requester   *string                   `json:"requester" binding:"omitempty,max=200"`
	Status      *models.TransactionStatus `json:"status" binding:"omitempty,transaction_status"`
	Description *string                   `json:"description" binding:"omitempty,max=500"`
	Date        *string                   `json:"date"`
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record a purchase against a budget plan; allocates a display ID and applies the amount to the plan's ledger atomically
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient budget"
// @Failure     404 {object} ErrorResponse "Budget plan not found"
// @Failure     409 {object} ErrorResponse "Display ID allocation conflict"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transactionDate := time.Now()
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		transactionDate = parsed
	}

	transaction, err := h.transactionService.CreateTransaction(
		req.BudgetPlanID,
		req.Amount,
		req.Vendor,
		req.Requester,
		req.Description,
		transactionDate,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.activityService.Log(actor(c), "CREATE_TRANSACTION", "transaction", transaction.ID, c.ClientIP(),
		map[string]any{"display_id": transaction.DisplayID, "amount": req.Amount, "budget_plan_id": req.BudgetPlanID})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetTransactions handles the retrieval of transactions
// @Summary     List transactions
// @Description Get a paginated list of transactions with optional filters
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       page           query int    false "Page number (default 1)"
// @Param       page_size      query int    false "Items per page (default 20, max 100)"
// @Param       kind           query string false "Filter by kind (opex, capex)"
// @Param       budget_plan_id query string false "Filter by budget plan ID"
// @Param       status         query string false "Filter by status (pending, ordered, paid)"
// @Param       from_date      query string false "Filter by start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date        query string false "Filter by end date (RFC3339 or YYYY-MM-DD)"
// @Param       min_amount     query int    false "Filter by minimum amount (minor units)"
// @Param       max_amount     query int    false "Filter by maximum amount (minor units)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetTransactions(page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransaction handles the retrieval of a single transaction
// @Summary     Get a transaction
// @Description Get a transaction by ID
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transaction, err := h.transactionService.GetTransactionByID(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction handles updates to a transaction
// @Summary     Update a transaction
// @Description Update a transaction's mutable fields; an amount change adjusts the owning plan's ledger by the difference
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient budget"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	fields := services.TransactionUpdateFields{
		Amount:      req.Amount,
		Vendor:      req.Vendor,
		Requester:   req.Requester,
		Status:      req.Status,
		Description: req.Description,
	}
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		fields.Date = &parsed
	}

	transaction, err := h.transactionService.UpdateTransaction(c.Param("id"), fields)
	if err != nil {
		respondWithError(c, err)
		return
	}

	changes := map[string]any{}
	if req.Amount != nil {
		changes["amount"] = *req.Amount
	}
	h.activityService.Log(actor(c), "UPDATE_TRANSACTION", "transaction", transaction.ID, c.ClientIP(), changes)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles the deletion of a transaction
// @Summary     Delete a transaction
// @Description Delete a transaction and reverse its amount on the owning plan's ledger
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       id path string true "Transaction ID"
// @Success     200 {object} map[string]string "Deleted"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	id := c.Param("id")
	if err := h.transactionService.DeleteTransaction(id); err != nil {
		respondWithError(c, err)
		return
	}

	h.activityService.Log(actor(c), "DELETE_TRANSACTION", "transaction", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if v := c.Query("kind"); v != "" {
		kind := models.BudgetKind(v)
		if kind != models.BudgetKindOpex && kind != models.BudgetKindCapex {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid kind")
		}
		filter.Kind = &kind
	}
	if v := c.Query("budget_plan_id"); v != "" {
		filter.BudgetPlanID = &v
	}
	if v := c.Query("status"); v != "" {
		status := models.TransactionStatus(v)
		switch status {
		case models.TransactionStatusPending, models.TransactionStatusOrdered, models.TransactionStatusPaid:
			filter.Status = &status
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid status")
		}
	}
	if v := c.Query("from_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid from_date")
		}
		filter.FromDate = &t
	}
	if v := c.Query("to_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid to_date")
		}
		filter.ToDate = &t
	}
	if v := c.Query("min_amount"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid min_amount")
		}
		filter.MinAmount = &n
	}
	if v := c.Query("max_amount"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid max_amount")
		}
		filter.MaxAmount = &n
	}

	return filter, nil
}
