package services

import (
	"testing"

	"treasury/internal/allocation"
	"treasury/internal/authz"
	"treasury/internal/models"
	"treasury/internal/pagination"
	"treasury/internal/testutil"
)

func referenceLines() []ReportLineInput {
	return []ReportLineInput{
		{LineType: models.LineTypeIncome, Bucket: allocation.BucketTithe, Amount: 900000},
		{LineType: models.LineTypeIncome, Bucket: allocation.BucketOffering, Amount: 100000},
		{LineType: models.LineTypeIncome, Bucket: allocation.BucketMissions, Amount: 50000},
		{LineType: models.LineTypeExpense, Bucket: allocation.BucketElectricity, Amount: 200000},
	}
}

func TestUpsertReport(t *testing.T) {
	t.Run("pastor_creates_own_church_report", func(t *testing.T) {
		env := newTestEnv(t)
		church := testutil.CreateTestChurch(t, env.db)
		pastor := env.actor(t, models.RolePastor, &church.ID)

		report, err := env.reports.UpsertReport(ctx, pastor, UpsertReportInput{ChurchID: church.ID, Month: 3, Year: 2024, Lines: referenceLines()})
		testutil.AssertNoError(t, err)

		if report.Status != models.ReportStatusDraft {
			t.Errorf("expected draft, got %s", report.Status)
		}
		if n := countRows(t, env.db, &models.ReportLine{}, "report_id = ?", report.ID); n != 4 {
			t.Errorf("expected 4 lines, got %d", n)
		}
	})

	t.Run("second_upsert_replaces_lines", func(t *testing.T) {
		env := newTestEnv(t)
		church := testutil.CreateTestChurch(t, env.db)
		pastor := env.actor(t, models.RolePastor, &church.ID)

		first, err := env.reports.UpsertReport(ctx, pastor, UpsertReportInput{ChurchID: church.ID, Month: 3, Year: 2024, Lines: referenceLines()})
		testutil.AssertNoError(t, err)
		second, err := env.reports.UpsertReport(ctx, pastor, UpsertReportInput{ChurchID: church.ID, Month: 3, Year: 2024, Lines: referenceLines()[:1]})
		testutil.AssertNoError(t, err)

		if first.ID != second.ID {
			t.Error("expected the same report to be updated")
		}
		if n := countRows(t, env.db, &models.ReportLine{}, "report_id = ?", first.ID); n != 1 {
			t.Errorf("expected 1 line, got %d", n)
		}
	})

	t.Run("pastor_of_other_church_denied", func(t *testing.T) {
		env := newTestEnv(t)
		church5 := testutil.CreateTestChurch(t, env.db)
		church6 := testutil.CreateTestChurch(t, env.db)
		pastor := env.actor(t, models.RolePastor, &church5.ID)

		_, err := env.reports.UpsertReport(ctx, pastor, UpsertReportInput{ChurchID: church6.ID, Month: 3, Year: 2024, Lines: referenceLines()})
		testutil.AssertAppError(t, err, "PERMISSION_DENIED")
	})

	t.Run("secretary_cannot_edit_existing", func(t *testing.T) {
		env := newTestEnv(t)
		church := testutil.CreateTestChurch(t, env.db)
		secretary := env.actor(t, models.RoleSecretary, &church.ID)

		_, err := env.reports.UpsertReport(ctx, secretary, UpsertReportInput{ChurchID: church.ID, Month: 3, Year: 2024})
		testutil.AssertNoError(t, err)

		_, err = env.reports.UpsertReport(ctx, secretary, UpsertReportInput{ChurchID: church.ID, Month: 3, Year: 2024, Lines: referenceLines()})
		testutil.AssertAppError(t, err, "PERMISSION_DENIED")
	})

	t.Run("processed_closed_to_pastor_and_treasurer", func(t *testing.T) {
		env := newTestEnv(t)
		church := testutil.CreateTestChurch(t, env.db)
		pastor := env.actor(t, models.RolePastor, &church.ID)
		treasurer := env.actor(t, models.RoleTreasurer, nil)
		testutil.CreateTestReport(t, env.db, church.ID, 3, 2024, models.ReportStatusProcessed)

		for _, a := range []authz.Actor{pastor, treasurer} {
			_, err := env.reports.UpsertReport(ctx, a, UpsertReportInput{ChurchID: church.ID, Month: 3, Year: 2024, Lines: referenceLines()})
			testutil.AssertAppError(t, err, "PERMISSION_DENIED")
		}
	})

	t.Run("admin_corrects_processed_report", func(t *testing.T) {
		env := newTestEnv(t)
		church := testutil.CreateTestChurch(t, env.db)
		admin := env.actor(t, models.RoleAdmin, nil)
		report := testutil.CreateTestReport(t, env.db, church.ID, 3, 2024, models.ReportStatusProcessed)

		corrected, err := env.reports.UpsertReport(ctx, admin, UpsertReportInput{ChurchID: church.ID, Month: 3, Year: 2024, Lines: referenceLines()})
		testutil.AssertNoError(t, err)

		if corrected.Status != models.ReportStatusProcessed {
			t.Errorf("expected report to stay processed, got %s", corrected.Status)
		}
		if corrected.NationalTotal != 150000 || corrected.PastoralSalary != 700000 {
			t.Errorf("expected recomputed allocation, got national %d pastoral %d", corrected.NationalTotal, corrected.PastoralSalary)
		}
		if n := countRows(t, env.db, &models.AuditLog{}, "action = ? AND resource_id = ?", ActionReportCorrect, report.ID); n != 1 {
			t.Errorf("expected a correction audit entry, got %d", n)
		}
	})

	t.Run("rejects_bad_lines", func(t *testing.T) {
		env := newTestEnv(t)
		church := testutil.CreateTestChurch(t, env.db)
		pastor := env.actor(t, models.RolePastor, &church.ID)

		tests := []struct {
			name string
			line ReportLineInput
		}{
			{"unknown_bucket", ReportLineInput{LineType: models.LineTypeIncome, Bucket: "lottery", Amount: 1}},
			{"wrong_line_type", ReportLineInput{LineType: models.LineTypeExpense, Bucket: allocation.BucketTithe, Amount: 1}},
			{"negative_amount", ReportLineInput{LineType: models.LineTypeIncome, Bucket: allocation.BucketTithe, Amount: -1}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := env.reports.UpsertReport(ctx, pastor, UpsertReportInput{ChurchID: church.ID, Month: 3, Year: 2024, Lines: []ReportLineInput{tt.line}})
				testutil.AssertAppError(t, err, "VALIDATION_ERROR")
			})
		}
	})

	t.Run("invalid_month", func(t *testing.T) {
		env := newTestEnv(t)
		church := testutil.CreateTestChurch(t, env.db)
		pastor := env.actor(t, models.RolePastor, &church.ID)

		_, err := env.reports.UpsertReport(ctx, pastor, UpsertReportInput{ChurchID: church.ID, Month: 13, Year: 2024})
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})
}

func TestSubmitAndProcessReport(t *testing.T) {
	t.Run("stores_allocation", func(t *testing.T) {
		env := newTestEnv(t)
		church := testutil.CreateTestChurch(t, env.db)
		pastor := env.actor(t, models.RolePastor, &church.ID)
		treasurer := env.actor(t, models.RoleTreasurer, nil)

		report, err := env.reports.UpsertReport(ctx, pastor, UpsertReportInput{ChurchID: church.ID, Month: 3, Year: 2024, Lines: referenceLines()})
		testutil.AssertNoError(t, err)
		_, err = env.reports.SubmitReport(ctx, pastor, report.ID)
		testutil.AssertNoError(t, err)

		processed, err := env.reports.ProcessReport(ctx, treasurer, report.ID)
		testutil.AssertNoError(t, err)

		if processed.Status != models.ReportStatusProcessed {
			t.Errorf("expected processed, got %s", processed.Status)
		}
		if processed.ProcessedBy == nil || *processed.ProcessedBy != treasurer.ProfileID {
			t.Error("expected processed_by to be the treasurer")
		}

		stored, err := env.reports.GetReport(ctx, treasurer, report.ID)
		testutil.AssertNoError(t, err)
		if stored.NationalFund10 != 100000 || stored.NationalFund100 != 50000 || stored.NationalTotal != 150000 {
			t.Errorf("unexpected national totals: %d / %d / %d", stored.NationalFund10, stored.NationalFund100, stored.NationalTotal)
		}
		if stored.LocalAvailable != 900000 || stored.TotalExpenses != 200000 || stored.PastoralSalary != 700000 {
			t.Errorf("unexpected local totals: %d / %d / %d", stored.LocalAvailable, stored.TotalExpenses, stored.PastoralSalary)
		}
	})

	t.Run("process_requires_submitted", func(t *testing.T) {
		env := newTestEnv(t)
		church := testutil.CreateTestChurch(t, env.db)
		treasurer := env.actor(t, models.RoleTreasurer, nil)
		report := testutil.CreateTestReport(t, env.db, church.ID, 3, 2024, models.ReportStatusDraft)

		_, err := env.reports.ProcessReport(ctx, treasurer, report.ID)
		testutil.AssertAppError(t, err, "INVALID_STATE_TRANSITION")
	})

	t.Run("pastor_cannot_process", func(t *testing.T) {
		env := newTestEnv(t)
		church := testutil.CreateTestChurch(t, env.db)
		pastor := env.actor(t, models.RolePastor, &church.ID)
		report := testutil.CreateTestReport(t, env.db, church.ID, 3, 2024, models.ReportStatusSubmitted)

		_, err := env.reports.ProcessReport(ctx, pastor, report.ID)
		testutil.AssertAppError(t, err, "PERMISSION_DENIED")
	})

	t.Run("overspent_report_not_processed", func(t *testing.T) {
		env := newTestEnv(t)
		church := testutil.CreateTestChurch(t, env.db)
		treasurer := env.actor(t, models.RoleTreasurer, nil)
		report := testutil.CreateTestReport(t, env.db, church.ID, 3, 2024, models.ReportStatusSubmitted,
			models.ReportLine{LineType: models.LineTypeIncome, Bucket: allocation.BucketTithe, Amount: 1000},
			models.ReportLine{LineType: models.LineTypeExpense, Bucket: allocation.BucketRent, Amount: 5000},
		)

		_, err := env.reports.ProcessReport(ctx, treasurer, report.ID)
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")

		var stored models.MonthlyReport
		env.db.First(&stored, "id = ?", report.ID)
		if stored.Status != models.ReportStatusSubmitted {
			t.Errorf("expected report to stay submitted, got %s", stored.Status)
		}
	})

	t.Run("submit_twice", func(t *testing.T) {
		env := newTestEnv(t)
		church := testutil.CreateTestChurch(t, env.db)
		pastor := env.actor(t, models.RolePastor, &church.ID)
		report := testutil.CreateTestReport(t, env.db, church.ID, 3, 2024, models.ReportStatusSubmitted)

		_, err := env.reports.SubmitReport(ctx, pastor, report.ID)
		testutil.AssertAppError(t, err, "INVALID_STATE_TRANSITION")
	})
}

func TestComputeMonthlyTotals(t *testing.T) {
	t.Run("reference_scenario", func(t *testing.T) {
		env := newTestEnv(t)
		church := testutil.CreateTestChurch(t, env.db)
		pastor := env.actor(t, models.RolePastor, &church.ID)
		_, err := env.reports.UpsertReport(ctx, pastor, UpsertReportInput{ChurchID: church.ID, Month: 3, Year: 2024, Lines: referenceLines()})
		testutil.AssertNoError(t, err)

		result, err := env.reports.ComputeMonthlyTotals(ctx, pastor, church.ID, 3, 2024)
		testutil.AssertNoError(t, err)

		if result.National10 != 100000 || result.National100 != 50000 || result.NationalTotal != 150000 {
			t.Errorf("unexpected national totals: %+v", result)
		}
		if result.Local90 != 900000 || result.LocalTotal != 900000 || result.PastoralSalary != 700000 || result.Balance != 0 {
			t.Errorf("unexpected local totals: %+v", result)
		}
	})

	t.Run("missing_report", func(t *testing.T) {
		env := newTestEnv(t)
		church := testutil.CreateTestChurch(t, env.db)
		treasurer := env.actor(t, models.RoleTreasurer, nil)

		_, err := env.reports.ComputeMonthlyTotals(ctx, treasurer, church.ID, 3, 2024)
		testutil.AssertAppError(t, err, "REPORT_NOT_FOUND")
	})

	t.Run("other_church_denied", func(t *testing.T) {
		env := newTestEnv(t)
		church5 := testutil.CreateTestChurch(t, env.db)
		church6 := testutil.CreateTestChurch(t, env.db)
		pastor := env.actor(t, models.RolePastor, &church5.ID)

		_, err := env.reports.ComputeMonthlyTotals(ctx, pastor, church6.ID, 3, 2024)
		testutil.AssertAppError(t, err, "PERMISSION_DENIED")
	})
}

func TestListReports(t *testing.T) {
	t.Run("pastor_sees_own_church_only", func(t *testing.T) {
		env := newTestEnv(t)
		church5 := testutil.CreateTestChurch(t, env.db)
		church6 := testutil.CreateTestChurch(t, env.db)
		pastor := env.actor(t, models.RolePastor, &church5.ID)
		testutil.CreateTestReport(t, env.db, church5.ID, 1, 2024, models.ReportStatusDraft)
		testutil.CreateTestReport(t, env.db, church5.ID, 2, 2024, models.ReportStatusDraft)
		testutil.CreateTestReport(t, env.db, church6.ID, 1, 2024, models.ReportStatusDraft)

		page, err := env.reports.ListReports(ctx, pastor, pagination.PageRequest{}, ReportFilter{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 2 {
			t.Fatalf("expected 2 reports, got %d", page.TotalItems)
		}
		if page.Data[0].Month != 2 {
			t.Errorf("expected most recent month first, got %d", page.Data[0].Month)
		}

		filter := ReportFilter{ChurchID: &church6.ID}
		page, err = env.reports.ListReports(ctx, pastor, pagination.PageRequest{}, filter)
		testutil.AssertNoError(t, err)
		if page.TotalItems != 0 {
			t.Errorf("expected filter on another church to return nothing, got %d", page.TotalItems)
		}
	})

	t.Run("fund_director_sees_nothing", func(t *testing.T) {
		env := newTestEnv(t)
		church := testutil.CreateTestChurch(t, env.db)
		testutil.CreateTestReport(t, env.db, church.ID, 1, 2024, models.ReportStatusDraft)
		fund := testutil.CreateTestFund(t, env.db)
		director := env.director(t, &fund.ID)

		page, err := env.reports.ListReports(ctx, director, pagination.PageRequest{}, ReportFilter{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 0 {
			t.Errorf("expected no reports, got %d", page.TotalItems)
		}
	})
}
