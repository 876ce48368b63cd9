package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"treasury/internal/authz"
	"treasury/internal/models"

	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string { return &s }

// CreateTestChurch creates an active church with a unique name.
func CreateTestChurch(t *testing.T, db *gorm.DB) *models.Church {
	t.Helper()

	church := &models.Church{
		Name:       fmt.Sprintf("Iglesia %d", nextID()),
		City:       "Asunción",
		PastorName: "Pastor Test",
		IsActive:   true,
	}
	if err := db.Create(church).Error; err != nil {
		t.Fatalf("failed to create test church: %v", err)
	}
	return church
}

// CreateTestProfile creates an active profile with role, attached to churchID when not nil.
func CreateTestProfile(t *testing.T, db *gorm.DB, role models.Role, churchID *string) *models.Profile {
	t.Helper()

	profile := &models.Profile{
		Email:    fmt.Sprintf("user%d@test.com", nextID()),
		FullName: fmt.Sprintf("Test %s", role),
		Role:     role,
		ChurchID: churchID,
		IsActive: true,
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("failed to create test profile: %v", err)
	}
	return profile
}

// CreateTestAssignment assigns a fund director to fundID (nil means every fund).
func CreateTestAssignment(t *testing.T, db *gorm.DB, profileID string, fundID, churchID *string) *models.FundDirectorAssignment {
	t.Helper()

	a := &models.FundDirectorAssignment{
		ProfileID: profileID,
		FundID:    fundID,
		ChurchID:  churchID,
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("failed to create test assignment: %v", err)
	}
	return a
}

// ActorFor builds the caller identity of profile together with its assignments.
func ActorFor(profile *models.Profile, assignments ...models.FundDirectorAssignment) authz.Actor {
	return authz.Actor{
		ProfileID:   profile.ID,
		Role:        profile.Role,
		ChurchID:    profile.ChurchID,
		Assignments: assignments,
	}
}

// CreateTestFund creates an active fund with zero balance.
func CreateTestFund(t *testing.T, db *gorm.DB) *models.Fund {
	t.Helper()
	return CreateTestFundWithBalance(t, db, 0)
}

// CreateTestFundWithBalance creates a fund whose balance is backed by an
// opening posting, so reconciliation holds.
func CreateTestFundWithBalance(t *testing.T, db *gorm.DB, balance int64) *models.Fund {
	t.Helper()

	fund := &models.Fund{
		Name:           fmt.Sprintf("Fondo %d", nextID()),
		Type:           models.FundTypeNational,
		CurrentBalance: balance,
		IsActive:       true,
	}
	if err := db.Create(fund).Error; err != nil {
		t.Fatalf("failed to create test fund: %v", err)
	}
	if balance != 0 {
		opening := &models.Posting{
			Date:         time.Now(),
			FundID:       fund.ID,
			Concept:      "Saldo inicial",
			AmountIn:     balance,
			BalanceAfter: balance,
		}
		if err := db.Create(opening).Error; err != nil {
			t.Fatalf("failed to create opening posting: %v", err)
		}
	}
	return fund
}

// CreateTestEvent creates an event in the given status.
func CreateTestEvent(t *testing.T, db *gorm.DB, fundID, createdBy string, status models.EventStatus) *models.FundEvent {
	t.Helper()

	event := &models.FundEvent{
		FundID:    fundID,
		Name:      fmt.Sprintf("Evento %d", nextID()),
		EventDate: time.Now().AddDate(0, 0, 7),
		Status:    status,
		CreatedBy: createdBy,
	}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("failed to create test event: %v", err)
	}
	return event
}

// CreateTestActual adds a realized income or expense line to an event.
func CreateTestActual(t *testing.T, db *gorm.DB, eventID string, lineType models.LineType, amount int64) *models.EventActual {
	t.Helper()

	actual := &models.EventActual{
		EventID:     eventID,
		LineType:    lineType,
		Description: fmt.Sprintf("Actual %d", nextID()),
		Amount:      amount,
		RecordedAt:  time.Now(),
	}
	if err := db.Create(actual).Error; err != nil {
		t.Fatalf("failed to create test actual: %v", err)
	}
	return actual
}

// CreateTestReport creates a monthly report with lines for a church.
func CreateTestReport(t *testing.T, db *gorm.DB, churchID string, month, year int, status models.ReportStatus, lines ...models.ReportLine) *models.MonthlyReport {
	t.Helper()

	report := &models.MonthlyReport{
		ChurchID: churchID,
		Month:    month,
		Year:     year,
		Status:   status,
		Lines:    lines,
	}
	if err := db.Create(report).Error; err != nil {
		t.Fatalf("failed to create test report: %v", err)
	}
	return report
}

// FundBalance reloads a fund's stored balance.
func FundBalance(t *testing.T, db *gorm.DB, fundID string) int64 {
	t.Helper()

	var fund models.Fund
	if err := db.First(&fund, "id = ?", fundID).Error; err != nil {
		t.Fatalf("failed to load fund: %v", err)
	}
	return fund.CurrentBalance
}
