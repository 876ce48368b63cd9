// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"treasury/internal/allocation"
	"treasury/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("fund_type", validateFundType)
		_ = v.RegisterValidation("line_type", validateLineType)
		_ = v.RegisterValidation("role", validateRole)
		_ = v.RegisterValidation("event_status", validateEventStatus)
		_ = v.RegisterValidation("report_status", validateReportStatus)
		_ = v.RegisterValidation("bucket", validateBucket)
	}
}

func validateFundType(fl validator.FieldLevel) bool {
	return models.FundType(fl.Field().String()).IsValid()
}

func validateLineType(fl validator.FieldLevel) bool {
	switch models.LineType(fl.Field().String()) {
	case models.LineTypeIncome, models.LineTypeExpense:
		return true
	}
	return false
}

func validateRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).IsValid()
}

func validateEventStatus(fl validator.FieldLevel) bool {
	switch models.EventStatus(fl.Field().String()) {
	case models.EventStatusDraft, models.EventStatusSubmitted, models.EventStatusApproved,
		models.EventStatusPendingRevision, models.EventStatusCancelled:
		return true
	}
	return false
}

func validateReportStatus(fl validator.FieldLevel) bool {
	switch models.ReportStatus(fl.Field().String()) {
	case models.ReportStatusDraft, models.ReportStatusSubmitted, models.ReportStatusProcessed:
		return true
	}
	return false
}

func validateBucket(fl validator.FieldLevel) bool {
	return allocation.IsKnownBucket(fl.Field().String())
}
