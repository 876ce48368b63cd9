package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"treasury/internal/authz"
	apperrors "treasury/internal/errors"
	"treasury/internal/models"
	"treasury/internal/pagination"
	"treasury/internal/services"
)

// ReportHandler handles monthly church reports.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ReportLineRequest represents one income or expense line of a report.
type ReportLineRequest struct {
	LineType    models.LineType `json:"line_type" binding:"required,line_type"`
	Bucket      string          `json:"bucket" binding:"required,bucket"`
	Description string          `json:"description" binding:"max=500"`
	Amount      int64           `json:"amount" binding:"gte=0"`
	Date        *string         `json:"date"`
}

// UpsertReportRequest represents a church's report for a month.
type UpsertReportRequest struct {
	ChurchID string              `json:"church_id" binding:"required,uuid"`
	Month    int                 `json:"month" binding:"required,min=1,max=12"`
	Year     int                 `json:"year" binding:"required"`
	Notes    string              `json:"notes" binding:"max=2000"`
	Lines    []ReportLineRequest `json:"lines" binding:"dive"`
}

// ImportReportRequest is an upsert sent by the external importer. With
// Submit the report is also submitted for processing.
type ImportReportRequest struct {
	UpsertReportRequest
	Submit bool `json:"submit"`
}

func (r UpsertReportRequest) input() (services.UpsertReportInput, error) {
	lines := make([]services.ReportLineInput, len(r.Lines))
	for i, l := range r.Lines {
		date, err := optionalDate(l.Date)
		if err != nil {
			return services.UpsertReportInput{}, err
		}
		lines[i] = services.ReportLineInput{
			LineType:    l.LineType,
			Bucket:      l.Bucket,
			Description: l.Description,
			Amount:      l.Amount,
			Date:        date,
		}
	}
	return services.UpsertReportInput{
		ChurchID: r.ChurchID,
		Month:    r.Month,
		Year:     r.Year,
		Notes:    r.Notes,
		Lines:    lines,
	}, nil
}

// UpsertReport handles creating or replacing a monthly report
// @Summary     Create or update a monthly report
// @Description Replace the lines of the church's report for the month. Processed reports can only be corrected by an admin.
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpsertReportRequest true "Report"
// @Success     200 {object} models.MonthlyReport
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     409 {object} ErrorResponse "Report already processed"
// @Router      /reports [post]
func (h *ReportHandler) UpsertReport(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpsertReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	input, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.UpsertReport(c.Request.Context(), actor, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// ImportReport handles a report pushed by the external importer
// @Summary     Import a monthly report
// @Tags        import
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body ImportReportRequest true "Report"
// @Success     200 {object} models.MonthlyReport
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Importer not configured"
// @Router      /import/reports [post]
func (h *ReportHandler) ImportReport(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ImportReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	input, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	report, err := h.reportService.UpsertReport(ctx, actor, input)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if req.Submit && report.Status == models.ReportStatusDraft {
		if report, err = h.reportService.SubmitReport(ctx, actor, report.ID); err != nil {
			respondWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// ListReports handles report listing
// @Summary     List monthly reports
// @Description List the reports visible to the caller, most recent period first
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       church_id query string false "Filter by church"
// @Param       year      query int    false "Filter by year"
// @Param       month     query int    false "Filter by month"
// @Param       status    query string false "Filter by status"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.MonthlyReport]
// @Router      /reports [get]
func (h *ReportHandler) ListReports(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	var query struct {
		Status *models.ReportStatus `form:"status" binding:"omitempty,report_status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	filter := services.ReportFilter{Status: query.Status}
	if filter.ChurchID, err = optionalUUID(c, "church_id"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.Year, err = queryInt(c, "year"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.Month, err = queryInt(c, "month"); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.reportService.ListReports(c.Request.Context(), actor, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetReport handles retrieval of a report with its lines
// @Summary     Get a monthly report
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Report ID"
// @Success     200 {object} models.MonthlyReport
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Router      /reports/{id} [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	h.withReport(c, h.reportService.GetReport)
}

// SubmitReport handles submitting a draft report
// @Summary     Submit a monthly report
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Report ID"
// @Success     200 {object} models.MonthlyReport
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Router      /reports/{id}/submit [post]
func (h *ReportHandler) SubmitReport(c *gin.Context) {
	h.withReport(c, h.reportService.SubmitReport)
}

// ProcessReport handles computing and storing a report's allocation
// @Summary     Process a monthly report
// @Description Compute the national and local allocation of a submitted report and store it
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Report ID"
// @Success     200 {object} models.MonthlyReport
// @Failure     400 {object} ErrorResponse "Expenses exceed local funds"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Router      /reports/{id}/process [post]
func (h *ReportHandler) ProcessReport(c *gin.Context) {
	h.withReport(c, h.reportService.ProcessReport)
}

func (h *ReportHandler) withReport(c *gin.Context, fn func(ctx context.Context, actor authz.Actor, reportID string) (*models.MonthlyReport, error)) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	reportID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := fn(c.Request.Context(), actor, reportID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// MonthlyTotals handles the allocation preview for a church and month
// @Summary     Compute monthly totals
// @Description Compute the allocation of a church's report for a month without storing it
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       church_id query string true "Church ID"
// @Param       month     query int    true "Month (1-12)"
// @Param       year      query int    true "Year"
// @Success     200 {object} allocation.Result
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Router      /reports/totals [get]
func (h *ReportHandler) MonthlyTotals(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	churchID, err := optionalUUID(c, "church_id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	month, err := queryInt(c, "month")
	if err != nil {
		respondWithError(c, err)
		return
	}
	year, err := queryInt(c, "year")
	if err != nil {
		respondWithError(c, err)
		return
	}
	if churchID == nil || month == nil || year == nil {
		respondWithError(c, apperrors.Validation("church_id, month and year are required"))
		return
	}

	totals, err := h.reportService.ComputeMonthlyTotals(c.Request.Context(), actor, *churchID, *month, *year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"totals": totals})
}
