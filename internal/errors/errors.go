// Package errors provides custom error types for the Budgetdesk API.
// All service-layer errors should use AppError to ensure consistent
// error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Budget plan errors.
var (
	ErrBudgetPlanNotFound = &AppError{Code: "BUDGET_PLAN_NOT_FOUND", Message: "Budget plan not found", StatusCode: http.StatusNotFound}
	ErrInsufficientBudget = &AppError{Code: "INSUFFICIENT_BUDGET", Message: "Insufficient remaining budget", StatusCode: http.StatusBadRequest}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrAllocationConflict  = &AppError{Code: "ALLOCATION_CONFLICT", Message: "Could not allocate a display ID, please retry", StatusCode: http.StatusConflict}
)

// ErrInvariantViolation signals that a plan's remaining amount no longer
// equals planned minus realized. This is a ledger bug, never a user-facing
// condition; callers should treat it as fatal.
var ErrInvariantViolation = &AppError{Code: "INVARIANT_VIOLATION", Message: "Budget ledger invariant violated", StatusCode: http.StatusInternalServerError}
