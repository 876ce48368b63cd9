// Package errors defines the error taxonomy of the treasury core. Services
// return *AppError values; handlers translate them into responses and pick
// the log severity from Severity.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, optional details and an optional
// internal error.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	StatusCode int            `json:"-"`
	Internal   error          `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches two AppErrors by code so that errors.Is works against sentinels.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

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
		Details:    sentinel.Details,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// WithDetails creates a new AppError carrying structured details.
func WithDetails(sentinel *AppError, message string, details map[string]any) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Details:    details,
		StatusCode: sentinel.StatusCode,
	}
}

// Severity is the log level an error should be reported at.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
	SeverityCritical
)

// SeverityOf returns the log severity for err. Permission and validation
// failures are routine; insufficient funds is recorded for financial
// oversight; integrity violations must alert.
func SeverityOf(err error) Severity {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return SeverityError
	}
	switch appErr.Code {
	case ErrPermissionDenied.Code, ErrValidation.Code, ErrUnauthorized.Code, ErrRateLimited.Code:
		return SeverityDebug
	case ErrInsufficientFunds.Code, ErrInvalidStateTransition.Code:
		return SeverityInfo
	case ErrIntegrityViolation.Code:
		return SeverityCritical
	case ErrInternalServer.Code:
		return SeverityError
	}
	if appErr.StatusCode >= http.StatusInternalServerError {
		return SeverityError
	}
	return SeverityDebug
}

// Authentication & authorization errors.
var (
	ErrUnauthorized     = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrPermissionDenied = &AppError{Code: "PERMISSION_DENIED", Message: "Permission denied", StatusCode: http.StatusForbidden}
	ErrInvalidAPIKey    = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
	ErrImporterDisabled = &AppError{Code: "IMPORTER_NOT_CONFIGURED", Message: "Report import is not configured", StatusCode: http.StatusServiceUnavailable}
	ErrRateLimited      = &AppError{Code: "RATE_LIMITED", Message: "Too many requests", StatusCode: http.StatusTooManyRequests}
)

// General errors.
var (
	ErrValidation     = &AppError{Code: "VALIDATION_ERROR", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrConflict       = &AppError{Code: "CONFLICT", Message: "Resource already exists", StatusCode: http.StatusConflict}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Ledger errors.
var (
	ErrFundNotFound       = &AppError{Code: "FUND_NOT_FOUND", Message: "Fund not found", StatusCode: http.StatusNotFound}
	ErrFundInactive       = &AppError{Code: "FUND_INACTIVE", Message: "Fund is inactive", StatusCode: http.StatusConflict}
	ErrPostingNotFound    = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrSameFundTransfer   = &AppError{Code: "SAME_FUND_TRANSFER", Message: "Cannot transfer to the same fund", StatusCode: http.StatusBadRequest}
	ErrInsufficientFunds  = &AppError{Code: "INSUFFICIENT_FUNDS", Message: "Insufficient fund balance", StatusCode: http.StatusUnprocessableEntity}
	ErrIntegrityViolation = &AppError{Code: "INTEGRITY_VIOLATION", Message: "Fund balance does not match its ledger", StatusCode: http.StatusConflict}
)

// Event errors.
var (
	ErrEventNotFound          = &AppError{Code: "EVENT_NOT_FOUND", Message: "Event not found", StatusCode: http.StatusNotFound}
	ErrBudgetItemNotFound     = &AppError{Code: "BUDGET_ITEM_NOT_FOUND", Message: "Budget item not found", StatusCode: http.StatusNotFound}
	ErrActualNotFound         = &AppError{Code: "ACTUAL_NOT_FOUND", Message: "Actual not found", StatusCode: http.StatusNotFound}
	ErrInvalidStateTransition = &AppError{Code: "INVALID_STATE_TRANSITION", Message: "Invalid state transition", StatusCode: http.StatusConflict}
)

// Reference data errors.
var (
	ErrChurchNotFound     = &AppError{Code: "CHURCH_NOT_FOUND", Message: "Church not found", StatusCode: http.StatusNotFound}
	ErrProfileNotFound    = &AppError{Code: "PROFILE_NOT_FOUND", Message: "Profile not found", StatusCode: http.StatusNotFound}
	ErrAssignmentNotFound = &AppError{Code: "ASSIGNMENT_NOT_FOUND", Message: "Assignment not found", StatusCode: http.StatusNotFound}
	ErrReportNotFound     = &AppError{Code: "REPORT_NOT_FOUND", Message: "Report not found", StatusCode: http.StatusNotFound}
)

// InsufficientFunds reports that moving attempted out of a fund holding
// balance would leave it negative.
func InsufficientFunds(fundID string, balance, attempted int64) *AppError {
	shortfall := attempted - balance
	return WithDetails(ErrInsufficientFunds,
		fmt.Sprintf("insufficient funds in fund %s: balance %d, attempted %d, shortfall %d", fundID, balance, attempted, shortfall),
		map[string]any{
			"fund_id":   fundID,
			"balance":   balance,
			"attempted": attempted,
			"shortfall": shortfall,
		})
}

// InvalidTransition reports that an operation needs the resource in one of
// expected but found it in current.
func InvalidTransition[S ~string](current S, expected ...S) *AppError {
	names := make([]string, len(expected))
	for i, e := range expected {
		names[i] = string(e)
	}
	return WithDetails(ErrInvalidStateTransition,
		fmt.Sprintf("invalid state transition: current status %q, expected %v", string(current), names),
		map[string]any{
			"current":  string(current),
			"expected": names,
		})
}

// Validation returns a ValidationError with message.
func Validation(message string) *AppError {
	return WithMessage(ErrValidation, message)
}

// PermissionDenied returns a PermissionDenied error naming the permission.
func PermissionDenied(permission string) *AppError {
	return WithDetails(ErrPermissionDenied,
		fmt.Sprintf("permission denied: %s", permission),
		map[string]any{"permission": permission})
}

// IntegrityViolation reports a fund whose stored balance disagrees with its ledger.
func IntegrityViolation(fundID string, stored, computed int64) *AppError {
	return WithDetails(ErrIntegrityViolation,
		fmt.Sprintf("fund %s is on integrity hold: stored balance %d, ledger balance %d", fundID, stored, computed),
		map[string]any{
			"fund_id":  fundID,
			"stored":   stored,
			"computed": computed,
		})
}
