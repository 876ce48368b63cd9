package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"treasury/internal/allocation"
	"treasury/internal/authz"
	apperrors "treasury/internal/errors"
	"treasury/internal/models"
	"treasury/internal/pagination"
	"treasury/internal/services"
)

var pastorActor = authz.Actor{ProfileID: testProfileID, Role: models.RolePastor}

func setupReportRouter(handler *ReportHandler, actor authz.Actor) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectActor(actor))
	auth.POST("/reports", handler.UpsertReport)
	auth.GET("/reports", handler.ListReports)
	auth.GET("/reports/totals", handler.MonthlyTotals)
	auth.GET("/reports/:id", handler.GetReport)
	auth.POST("/reports/:id/submit", handler.SubmitReport)
	auth.POST("/reports/:id/process", handler.ProcessReport)
	auth.POST("/import/reports", handler.ImportReport)
	return r
}

const reportBody = `{
	"church_id":"` + testChurchID + `",
	"month":3,
	"year":2024,
	"lines":[
		{"line_type":"income","bucket":"tithe","amount":900000,"date":"2024-03-03"},
		{"line_type":"income","bucket":"offering","amount":100000},
		{"line_type":"expense","bucket":"electricity","amount":200000}
	]
}`

func TestReportHandler_UpsertReport(t *testing.T) {
	t.Run("returns 200 with lines", func(t *testing.T) {
		var got services.UpsertReportInput
		reportSvc := &mockReportService{
			upsertReportFn: func(_ authz.Actor, input services.UpsertReportInput) (*models.MonthlyReport, error) {
				got = input
				return &models.MonthlyReport{ChurchID: input.ChurchID, Month: input.Month, Year: input.Year}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(reportSvc), pastorActor)

		rec := doRequest(r, "POST", "/reports", reportBody)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(got.Lines) != 3 || got.Lines[0].Date == nil || got.Lines[1].Date != nil {
			t.Errorf("unexpected lines %+v", got.Lines)
		}
		if got.Lines[2].LineType != models.LineTypeExpense || got.Lines[2].Bucket != "electricity" {
			t.Errorf("unexpected expense line %+v", got.Lines[2])
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"month out of range", `{"church_id":"` + testChurchID + `","month":13,"year":2024}`},
		{"unknown bucket", `{"church_id":"` + testChurchID + `","month":1,"year":2024,"lines":[{"line_type":"income","bucket":"lottery","amount":1}]}`},
		{"negative amount", `{"church_id":"` + testChurchID + `","month":1,"year":2024,"lines":[{"line_type":"income","bucket":"tithe","amount":-1}]}`},
		{"bad line date", `{"church_id":"` + testChurchID + `","month":1,"year":2024,"lines":[{"line_type":"income","bucket":"tithe","amount":1,"date":"March"}]}`},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupReportRouter(NewReportHandler(&mockReportService{}), pastorActor)
			rec := doRequest(r, "POST", "/reports", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}

	t.Run("returns 409 on processed report", func(t *testing.T) {
		reportSvc := &mockReportService{
			upsertReportFn: func(authz.Actor, services.UpsertReportInput) (*models.MonthlyReport, error) {
				return nil, apperrors.InvalidTransition(models.ReportStatusProcessed, models.ReportStatusDraft, models.ReportStatusSubmitted)
			},
		}
		r := setupReportRouter(NewReportHandler(reportSvc), pastorActor)

		rec := doRequest(r, "POST", "/reports", reportBody)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}

func TestReportHandler_ImportReport(t *testing.T) {
	t.Run("upserts and submits", func(t *testing.T) {
		var submitted string
		reportSvc := &mockReportService{
			upsertReportFn: func(authz.Actor, services.UpsertReportInput) (*models.MonthlyReport, error) {
				return &models.MonthlyReport{Base: models.Base{ID: testReportID}, Status: models.ReportStatusDraft}, nil
			},
			submitReportFn: func(_ authz.Actor, reportID string) (*models.MonthlyReport, error) {
				submitted = reportID
				return &models.MonthlyReport{Base: models.Base{ID: reportID}, Status: models.ReportStatusSubmitted}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(reportSvc), authz.System(models.RoleTreasurer))

		body := `{"church_id":"` + testChurchID + `","month":3,"year":2024,"submit":true,"lines":[]}`
		rec := doRequest(r, "POST", "/import/reports", body)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if submitted != testReportID {
			t.Errorf("expected report to be submitted, got %q", submitted)
		}
		report := parseJSON(t, rec)["report"].(map[string]any)
		if report["status"] != "submitted" {
			t.Errorf("expected submitted, got %v", report["status"])
		}
	})

	t.Run("leaves submitted report alone", func(t *testing.T) {
		reportSvc := &mockReportService{
			upsertReportFn: func(authz.Actor, services.UpsertReportInput) (*models.MonthlyReport, error) {
				return &models.MonthlyReport{Status: models.ReportStatusSubmitted}, nil
			},
			submitReportFn: func(authz.Actor, string) (*models.MonthlyReport, error) {
				t.Error("submit should not be called")
				return nil, nil
			},
		}
		r := setupReportRouter(NewReportHandler(reportSvc), authz.System(models.RoleTreasurer))

		body := `{"church_id":"` + testChurchID + `","month":3,"year":2024,"submit":true}`
		rec := doRequest(r, "POST", "/import/reports", body)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestReportHandler_ListReports(t *testing.T) {
	t.Run("parses filters", func(t *testing.T) {
		var got services.ReportFilter
		reportSvc := &mockReportService{
			listReportsFn: func(_ authz.Actor, _ pagination.PageRequest, filter services.ReportFilter) (*pagination.PageResponse[models.MonthlyReport], error) {
				got = filter
				resp := pagination.NewPageResponse([]models.MonthlyReport{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupReportRouter(NewReportHandler(reportSvc), pastorActor)

		rec := doRequest(r, "GET", "/reports?year=2024&month=2&status=processed", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Year == nil || *got.Year != 2024 || got.Month == nil || *got.Month != 2 {
			t.Errorf("unexpected period filter %+v", got)
		}
		if got.Status == nil || *got.Status != models.ReportStatusProcessed || got.ChurchID != nil {
			t.Errorf("unexpected filter %+v", got)
		}
	})

	t.Run("returns 400 on non-numeric year", func(t *testing.T) {
		r := setupReportRouter(NewReportHandler(&mockReportService{}), pastorActor)
		rec := doRequest(r, "GET", "/reports?year=last", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestReportHandler_Lifecycle(t *testing.T) {
	t.Run("get report", func(t *testing.T) {
		reportSvc := &mockReportService{
			getReportFn: func(_ authz.Actor, reportID string) (*models.MonthlyReport, error) {
				return &models.MonthlyReport{Base: models.Base{ID: reportID}}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(reportSvc), pastorActor)

		rec := doRequest(r, "GET", "/reports/"+testReportID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["report"].(map[string]any)["id"] != testReportID {
			t.Error("expected report id")
		}
	})

	t.Run("process stores allocation", func(t *testing.T) {
		reportSvc := &mockReportService{
			processReportFn: func(_ authz.Actor, reportID string) (*models.MonthlyReport, error) {
				return &models.MonthlyReport{
					Base:           models.Base{ID: reportID},
					Status:         models.ReportStatusProcessed,
					NationalTotal:  100000,
					PastoralSalary: 700000,
				}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(reportSvc), treasurerActor)

		rec := doRequest(r, "POST", "/reports/"+testReportID+"/process", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		report := parseJSON(t, rec)["report"].(map[string]any)
		if report["fondo_nacional_total"].(float64) != 100000 || report["salario_pastoral"].(float64) != 700000 {
			t.Errorf("unexpected allocation %v", report)
		}
	})

	t.Run("process overspent report", func(t *testing.T) {
		reportSvc := &mockReportService{
			processReportFn: func(authz.Actor, string) (*models.MonthlyReport, error) {
				return nil, apperrors.Validation("expenses exceed local funds")
			},
		}
		r := setupReportRouter(NewReportHandler(reportSvc), treasurerActor)

		rec := doRequest(r, "POST", "/reports/"+testReportID+"/process", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "VALIDATION_ERROR")
	})

	t.Run("submit rejects malformed id", func(t *testing.T) {
		r := setupReportRouter(NewReportHandler(&mockReportService{}), pastorActor)
		rec := doRequest(r, "POST", "/reports/abc/submit", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestReportHandler_MonthlyTotals(t *testing.T) {
	t.Run("returns totals", func(t *testing.T) {
		var gotMonth, gotYear int
		reportSvc := &mockReportService{
			computeTotalsFn: func(_ authz.Actor, _ string, month, year int) (*allocation.Result, error) {
				gotMonth, gotYear = month, year
				return &allocation.Result{Tithe: 900000, NationalTotal: 150000}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(reportSvc), pastorActor)

		rec := doRequest(r, "GET", "/reports/totals?church_id="+testChurchID+"&month=3&year=2024", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotMonth != 3 || gotYear != 2024 {
			t.Errorf("unexpected period %d/%d", gotMonth, gotYear)
		}
		totals := parseJSON(t, rec)["totals"].(map[string]any)
		if totals["fondo_nacional_total"].(float64) != 150000 {
			t.Errorf("unexpected totals %v", totals)
		}
	})

	t.Run("requires all parameters", func(t *testing.T) {
		r := setupReportRouter(NewReportHandler(&mockReportService{}), pastorActor)
		rec := doRequest(r, "GET", "/reports/totals?church_id="+testChurchID+"&month=3", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
