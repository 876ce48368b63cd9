package testutil_test

import (
	"testing"

	"treasury/internal/errors"
	"treasury/internal/models"
	"treasury/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{
		"churches", "profiles", "role_permissions", "fund_director_assignments", "funds", "postings",
		"fund_movements", "fund_events", "event_budget_items", "event_actuals", "event_audit_entries",
		"monthly_reports", "report_lines", "audit_logs",
	} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestSetupTestDB_Isolated(t *testing.T) {
	first := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, first)
	second := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, second)

	testutil.CreateTestChurch(t, first)

	var count int64
	second.Model(&models.Church{}).Count(&count)
	if count != 0 {
		t.Errorf("expected empty second database, found %d churches", count)
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	church := testutil.CreateTestChurch(t, db)
	if church.ID == "" {
		t.Fatal("church should have an ID")
	}

	pastor := testutil.CreateTestProfile(t, db, models.RolePastor, &church.ID)
	actor := testutil.ActorFor(pastor)
	if actor.ChurchID == nil || *actor.ChurchID != church.ID {
		t.Errorf("expected actor church %s", church.ID)
	}

	fund := testutil.CreateTestFundWithBalance(t, db, 5000)
	if fund.CurrentBalance != 5000 {
		t.Errorf("expected balance 5000, got %d", fund.CurrentBalance)
	}
	testutil.AssertBalanceMatchesLedger(t, db, fund.ID)

	event := testutil.CreateTestEvent(t, db, fund.ID, pastor.ID, models.EventStatusDraft)
	if event.Status != models.EventStatusDraft {
		t.Errorf("expected draft event, got %s", event.Status)
	}

	actual := testutil.CreateTestActual(t, db, event.ID, models.LineTypeExpense, 100)
	if actual.Amount != 100 {
		t.Errorf("expected amount 100, got %d", actual.Amount)
	}

	report := testutil.CreateTestReport(t, db, church.ID, 3, 2024, models.ReportStatusDraft,
		models.ReportLine{LineType: models.LineTypeIncome, Bucket: "tithe", Amount: 1000})
	if len(report.Lines) != 1 || report.Lines[0].ReportID != report.ID {
		t.Errorf("expected one line attached to report %s", report.ID)
	}
}

func TestAssertAppError(t *testing.T) {
	testutil.AssertAppError(t, errors.ErrFundNotFound, "FUND_NOT_FOUND")
	testutil.AssertAppError(t, errors.InsufficientFunds("f", 1, 2), "INSUFFICIENT_FUNDS")
}
