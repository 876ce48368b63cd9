package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"treasury/internal/allocation"
	"treasury/internal/authz"
	"treasury/internal/database"
	apperrors "treasury/internal/errors"
	"treasury/internal/models"
	"treasury/internal/pagination"
)

const minReportYear = 2000

// reportService manages monthly church reports and their allocation.
type reportService struct {
	db     *gorm.DB
	policy *authz.Policy
	audit  AuditServicer
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB, policy *authz.Policy, audit AuditServicer) ReportServicer {
	return &reportService{db: db, policy: policy, audit: audit}
}

// UpsertReport creates the report of a church for a month or replaces the
// lines of the existing one. A processed report may only be corrected by the
// top role; a correction recomputes the stored allocation.
func (s *reportService) UpsertReport(ctx context.Context, actor authz.Actor, input UpsertReportInput) (*models.MonthlyReport, error) {
	if err := validateReportInput(input); err != nil {
		return nil, err
	}

	var report *models.MonthlyReport
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := findByID[models.Church](tx, input.ChurchID, apperrors.ErrChurchNotFound); err != nil {
			return err
		}

		existing, err := lockReportByPeriod(tx, input.ChurchID, input.Month, input.Year)
		if err != nil {
			return err
		}

		action := ActionReportUpsert
		if existing == nil {
			if err := s.policy.Require(actor, models.PermReportsCreate, authz.Church(input.ChurchID)); err != nil {
				return err
			}
			report = &models.MonthlyReport{
				ChurchID:  input.ChurchID,
				Month:     input.Month,
				Year:      input.Year,
				Status:    models.ReportStatusDraft,
				Notes:     input.Notes,
				CreatedBy: actor.ProfileID,
			}
			if err := tx.Create(report).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		} else {
			if !s.policy.CanModifyReport(actor, existing.Status, existing.ChurchID) {
				return apperrors.PermissionDenied(string(models.PermReportsEdit))
			}
			report = existing
			report.Notes = input.Notes
			if err := tx.Where("report_id = ?", report.ID).Delete(&models.ReportLine{}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if report.Status == models.ReportStatusProcessed {
				action = ActionReportCorrect
			}
		}

		report.Lines = make([]models.ReportLine, 0, len(input.Lines))
		for _, l := range input.Lines {
			report.Lines = append(report.Lines, models.ReportLine{
				ReportID:    report.ID,
				LineType:    l.LineType,
				Bucket:      l.Bucket,
				Description: strings.TrimSpace(l.Description),
				Amount:      l.Amount,
				Date:        l.Date,
			})
		}
		if len(report.Lines) > 0 {
			if err := tx.Create(&report.Lines).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		changes := map[string]any{
			"church_id": report.ChurchID,
			"period":    fmt.Sprintf("%04d-%02d", report.Year, report.Month),
			"lines":     len(report.Lines),
		}
		if report.Status == models.ReportStatusProcessed {
			result, err := allocation.Compute(reportLines(report.Lines))
			if err != nil {
				return err
			}
			changes["before"] = reportTotals(report)
			applyAllocation(report, result)
			changes["after"] = reportTotals(report)
		}
		if err := tx.Omit("Lines").Save(report).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(ctx, tx, actor, action, "report", report.ID, changes)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// GetReport returns a report with its lines.
func (s *reportService) GetReport(ctx context.Context, actor authz.Actor, reportID string) (*models.MonthlyReport, error) {
	var report models.MonthlyReport
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&report, "id = ?", reportID).Error
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrReportNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.policy.Require(actor, models.PermReportsView, authz.Church(report.ChurchID)); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListReports returns the reports actor may see, most recent period first.
func (s *reportService) ListReports(ctx context.Context, actor authz.Actor, page pagination.PageRequest, filter ReportFilter) (*pagination.PageResponse[models.MonthlyReport], error) {
	page.Defaults()

	v := s.policy.VisibilityFor(actor, models.PermReportsView)
	base := s.db.WithContext(ctx).Model(&models.MonthlyReport{}).Scopes(visibleChurchRows(v, "church_id"))
	if filter.ChurchID != nil {
		base = base.Where("church_id = ?", *filter.ChurchID)
	}
	if filter.Year != nil {
		base = base.Where("year = ?", *filter.Year)
	}
	if filter.Month != nil {
		base = base.Where("month = ?", *filter.Month)
	}
	if filter.Status != nil {
		base = base.Where("status = ?", *filter.Status)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var reports []models.MonthlyReport
	if err := base.Scopes(pagination.Paginate(page)).
		Order("year DESC").Order("month DESC").
		Find(&reports).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(reports, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// SubmitReport hands a draft report to the national treasury.
func (s *reportService) SubmitReport(ctx context.Context, actor authz.Actor, reportID string) (*models.MonthlyReport, error) {
	var report *models.MonthlyReport
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		report, err = lockReport(tx, reportID)
		if err != nil {
			return err
		}
		if !s.policy.CanModifyReport(actor, report.Status, report.ChurchID) {
			return apperrors.PermissionDenied(string(models.PermReportsEdit))
		}
		if report.Status != models.ReportStatusDraft {
			return apperrors.InvalidTransition(report.Status, models.ReportStatusDraft)
		}

		if err := tx.Model(report).Update("status", models.ReportStatusSubmitted).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		report.Status = models.ReportStatusSubmitted
		return s.audit.Record(ctx, tx, actor, ActionReportSubmit, "report", report.ID, map[string]any{
			"from": models.ReportStatusDraft,
			"to":   models.ReportStatusSubmitted,
		})
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ProcessReport computes and stores the allocation of a submitted report and
// closes it.
func (s *reportService) ProcessReport(ctx context.Context, actor authz.Actor, reportID string) (*models.MonthlyReport, error) {
	if err := s.policy.RequireNational(actor, models.PermReportsApprove); err != nil {
		return nil, err
	}

	var report *models.MonthlyReport
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		report, err = lockReport(tx, reportID)
		if err != nil {
			return err
		}
		if report.Status != models.ReportStatusSubmitted {
			return apperrors.InvalidTransition(report.Status, models.ReportStatusSubmitted)
		}

		if err := tx.Where("report_id = ?", report.ID).Order("created_at ASC").Find(&report.Lines).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		result, err := allocation.Compute(reportLines(report.Lines))
		if err != nil {
			return err
		}

		applyAllocation(report, result)
		processor := actor.ProfileID
		report.ProcessedBy = &processor
		report.Status = models.ReportStatusProcessed
		if err := tx.Omit("Lines").Save(report).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(ctx, tx, actor, ActionReportProcess, "report", report.ID, reportTotals(report))
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ComputeMonthlyTotals runs the allocation over a church's report for a
// month without storing anything.
func (s *reportService) ComputeMonthlyTotals(ctx context.Context, actor authz.Actor, churchID string, month, year int) (*allocation.Result, error) {
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}
	if err := s.policy.Require(actor, models.PermReportsView, authz.Church(churchID)); err != nil {
		return nil, err
	}

	var report models.MonthlyReport
	err := s.db.WithContext(ctx).Preload("Lines").
		Where("church_id = ? AND month = ? AND year = ?", churchID, month, year).
		First(&report).Error
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrReportNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return allocation.Compute(reportLines(report.Lines))
}

func lockReport(tx *gorm.DB, reportID string) (*models.MonthlyReport, error) {
	var report models.MonthlyReport
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&report, "id = ?", reportID).Error; err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrReportNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &report, nil
}

// lockReportByPeriod returns nil when the church has no report for the month.
func lockReportByPeriod(tx *gorm.DB, churchID string, month, year int) (*models.MonthlyReport, error) {
	var report models.MonthlyReport
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("church_id = ? AND month = ? AND year = ?", churchID, month, year).
		First(&report).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &report, nil
}

func reportLines(lines []models.ReportLine) []allocation.Line {
	out := make([]allocation.Line, len(lines))
	for i, l := range lines {
		out[i] = allocation.Line{LineType: l.LineType, Bucket: l.Bucket, Amount: l.Amount}
	}
	return out
}

func applyAllocation(report *models.MonthlyReport, r *allocation.Result) {
	report.NationalFund10 = r.National10
	report.NationalFund100 = r.National100
	report.NationalTotal = r.NationalTotal
	report.LocalAvailable = r.LocalTotal
	report.TotalExpenses = r.TotalExpenses
	report.PastoralSalary = r.PastoralSalary
}

func reportTotals(report *models.MonthlyReport) map[string]any {
	return map[string]any{
		"fondo_nacional_10_percent":  report.NationalFund10,
		"fondo_nacional_100_percent": report.NationalFund100,
		"fondo_nacional_total":       report.NationalTotal,
		"disponible_local":           report.LocalAvailable,
		"total_gastos":               report.TotalExpenses,
		"salario_pastoral":           report.PastoralSalary,
	}
}

func validatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return apperrors.Validation("month must be between 1 and 12")
	}
	if year < minReportYear {
		return apperrors.Validation(fmt.Sprintf("year must be %d or later", minReportYear))
	}
	return nil
}

func validateReportInput(input UpsertReportInput) error {
	if input.ChurchID == "" {
		return apperrors.Validation("church_id is required")
	}
	if err := validatePeriod(input.Month, input.Year); err != nil {
		return err
	}
	for i, l := range input.Lines {
		if !allocation.IsKnownBucket(l.Bucket) {
			return apperrors.Validation(fmt.Sprintf("line %d: unknown bucket %q", i+1, l.Bucket))
		}
		if want := allocation.LineTypeOf(allocation.ClassOf(l.Bucket)); l.LineType != want {
			return apperrors.Validation(fmt.Sprintf("line %d: bucket %q takes %s lines", i+1, l.Bucket, want))
		}
		if l.Amount < 0 {
			return apperrors.Validation(fmt.Sprintf("line %d: amount must not be negative", i+1))
		}
	}
	return nil
}
