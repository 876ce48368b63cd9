package testutil

import (
	"errors"
	"testing"

	apperrors "treasury/internal/errors"
	"treasury/internal/models"

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

// AssertBalanceMatchesLedger checks that a fund's stored balance equals the
// sum of every posting that references it.
func AssertBalanceMatchesLedger(t *testing.T, db *gorm.DB, fundID string) {
	t.Helper()

	var postings []models.Posting
	if err := db.Where("fund_id = ? OR destination_fund_id = ?", fundID, fundID).Find(&postings).Error; err != nil {
		t.Fatalf("failed to load postings: %v", err)
	}
	var computed int64
	for i := range postings {
		computed += postings[i].Effects()[fundID]
	}

	stored := FundBalance(t, db, fundID)
	if stored != computed {
		t.Errorf("fund %s: stored balance %d, ledger balance %d", fundID, stored, computed)
	}
	if stored < 0 {
		t.Errorf("fund %s: negative balance %d", fundID, stored)
	}
}
