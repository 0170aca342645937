// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("budget_kind", validateBudgetKind)
		_ = v.RegisterValidation("transaction_status", validateTransactionStatus)
		_ = v.RegisterValidation("fiscal_year", validateFiscalYear)
	}
}

func validateBudgetKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "opex", "capex":
		return true
	}
	return false
}

func validateTransactionStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "pending", "ordered", "paid":
		return true
	}
	return false
}

// validateFiscalYear bounds plan years to the range the display-ID
// two-digit year can represent without ambiguity.
func validateFiscalYear(fl validator.FieldLevel) bool {
	year := fl.Field().Int()
	return year >= 2000 && year <= 2099
}
