package handlers

import (
	"context"

	"gorm.io/gorm"

	"treasury/internal/allocation"
	"treasury/internal/authz"
	"treasury/internal/models"
	"treasury/internal/pagination"
	"treasury/internal/services"
)

// --- fund ---

type mockFundService struct {
	createFundFn     func(actor authz.Actor, input services.CreateFundInput) (*models.Fund, error)
	getFundFn        func(actor authz.Actor, fundID string) (*models.Fund, error)
	listFundsFn      func(actor authz.Actor, includeInactive bool, page pagination.PageRequest) (*pagination.PageResponse[models.Fund], error)
	updateFundFn     func(actor authz.Actor, fundID string, input services.UpdateFundInput) (*models.Fund, error)
	deactivateFundFn func(actor authz.Actor, fundID string) (*models.Fund, error)
}

func (m *mockFundService) CreateFund(_ context.Context, actor authz.Actor, input services.CreateFundInput) (*models.Fund, error) {
	if m.createFundFn != nil {
		return m.createFundFn(actor, input)
	}
	return &models.Fund{}, nil
}

func (m *mockFundService) GetFund(_ context.Context, actor authz.Actor, fundID string) (*models.Fund, error) {
	if m.getFundFn != nil {
		return m.getFundFn(actor, fundID)
	}
	return &models.Fund{}, nil
}

func (m *mockFundService) ListFunds(_ context.Context, actor authz.Actor, includeInactive bool, page pagination.PageRequest) (*pagination.PageResponse[models.Fund], error) {
	if m.listFundsFn != nil {
		return m.listFundsFn(actor, includeInactive, page)
	}
	resp := pagination.NewPageResponse([]models.Fund{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockFundService) UpdateFund(_ context.Context, actor authz.Actor, fundID string, input services.UpdateFundInput) (*models.Fund, error) {
	if m.updateFundFn != nil {
		return m.updateFundFn(actor, fundID, input)
	}
	return &models.Fund{}, nil
}

func (m *mockFundService) DeactivateFund(_ context.Context, actor authz.Actor, fundID string) (*models.Fund, error) {
	if m.deactivateFundFn != nil {
		return m.deactivateFundFn(actor, fundID)
	}
	return &models.Fund{}, nil
}

var _ services.FundServicer = (*mockFundService)(nil)

// --- ledger ---

type mockLedgerService struct {
	postFn          func(actor authz.Actor, input services.PostingInput) (*models.Posting, error)
	transferFn      func(actor authz.Actor, input services.TransferInput) (*models.Posting, error)
	correctFn       func(actor authz.Actor, postingID string, input services.CorrectionInput) (*models.Posting, error)
	deletePostingFn func(actor authz.Actor, postingID, reason string) error
	getPostingFn    func(actor authz.Actor, postingID string) (*models.Posting, error)
	listPostingsFn  func(actor authz.Actor, fundID string, page pagination.PageRequest, filter services.PostingFilter) (*pagination.PageResponse[models.Posting], error)
	listMovementsFn func(actor authz.Actor, fundID string, page pagination.PageRequest) (*pagination.PageResponse[models.FundMovement], error)
	reconcileFn     func(actor authz.Actor, fundID string) (*services.ReconcileResult, error)
	releaseHoldFn   func(actor authz.Actor, fundID string, input services.ReleaseHoldInput) (*models.Fund, error)
}

func (m *mockLedgerService) Post(_ context.Context, actor authz.Actor, input services.PostingInput) (*models.Posting, error) {
	if m.postFn != nil {
		return m.postFn(actor, input)
	}
	return &models.Posting{}, nil
}

func (m *mockLedgerService) Transfer(_ context.Context, actor authz.Actor, input services.TransferInput) (*models.Posting, error) {
	if m.transferFn != nil {
		return m.transferFn(actor, input)
	}
	return &models.Posting{}, nil
}

func (m *mockLedgerService) Correct(_ context.Context, actor authz.Actor, postingID string, input services.CorrectionInput) (*models.Posting, error) {
	if m.correctFn != nil {
		return m.correctFn(actor, postingID, input)
	}
	return &models.Posting{}, nil
}

func (m *mockLedgerService) DeletePosting(_ context.Context, actor authz.Actor, postingID, reason string) error {
	if m.deletePostingFn != nil {
		return m.deletePostingFn(actor, postingID, reason)
	}
	return nil
}

func (m *mockLedgerService) GetPosting(_ context.Context, actor authz.Actor, postingID string) (*models.Posting, error) {
	if m.getPostingFn != nil {
		return m.getPostingFn(actor, postingID)
	}
	return &models.Posting{}, nil
}

func (m *mockLedgerService) ListPostings(_ context.Context, actor authz.Actor, fundID string, page pagination.PageRequest, filter services.PostingFilter) (*pagination.PageResponse[models.Posting], error) {
	if m.listPostingsFn != nil {
		return m.listPostingsFn(actor, fundID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Posting{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockLedgerService) ListMovements(_ context.Context, actor authz.Actor, fundID string, page pagination.PageRequest) (*pagination.PageResponse[models.FundMovement], error) {
	if m.listMovementsFn != nil {
		return m.listMovementsFn(actor, fundID, page)
	}
	resp := pagination.NewPageResponse([]models.FundMovement{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockLedgerService) Reconcile(_ context.Context, actor authz.Actor, fundID string) (*services.ReconcileResult, error) {
	if m.reconcileFn != nil {
		return m.reconcileFn(actor, fundID)
	}
	return &services.ReconcileResult{FundID: fundID, Matches: true}, nil
}

func (m *mockLedgerService) ReconcileAll(context.Context, authz.Actor) ([]services.ReconcileResult, error) {
	return nil, nil
}

func (m *mockLedgerService) ReleaseHold(_ context.Context, actor authz.Actor, fundID string, input services.ReleaseHoldInput) (*models.Fund, error) {
	if m.releaseHoldFn != nil {
		return m.releaseHoldFn(actor, fundID, input)
	}
	return &models.Fund{}, nil
}

func (m *mockLedgerService) PostInTx(*gorm.DB, authz.Actor, *models.Posting, string) error {
	return nil
}

func (m *mockLedgerService) LockFund(*gorm.DB, string) (*models.Fund, error) {
	return &models.Fund{}, nil
}

var _ services.LedgerServicer = (*mockLedgerService)(nil)

// --- event ---

type mockEventService struct {
	createEventFn func(actor authz.Actor, input services.CreateEventInput) (*models.FundEvent, error)
	updateEventFn func(actor authz.Actor, eventID string, input services.UpdateEventInput) (*models.FundEvent, error)
	getEventFn    func(actor authz.Actor, eventID string) (*services.EventDetail, error)
	listEventsFn  func(actor authz.Actor, page pagination.PageRequest, filter services.EventFilter) (*pagination.PageResponse[models.FundEvent], error)
	deleteDraftFn func(actor authz.Actor, eventID string) error

	addBudgetItemFn    func(actor authz.Actor, eventID string, input services.BudgetItemInput) (*models.EventBudgetItem, error)
	updateBudgetItemFn func(actor authz.Actor, eventID, itemID string, input services.BudgetItemInput) (*models.EventBudgetItem, error)
	deleteBudgetItemFn func(actor authz.Actor, eventID, itemID string) error
	addActualFn        func(actor authz.Actor, eventID string, input services.ActualInput) (*models.EventActual, error)
	updateActualFn     func(actor authz.Actor, eventID, actualID string, input services.ActualInput) (*models.EventActual, error)
	deleteActualFn     func(actor authz.Actor, eventID, actualID string) error

	submitFn  func(actor authz.Actor, eventID, comment string) (*models.FundEvent, error)
	approveFn func(actor authz.Actor, eventID, comment string) (*services.ApprovalSummary, error)
	rejectFn  func(actor authz.Actor, eventID, reason string) (*models.FundEvent, error)
	cancelFn  func(actor authz.Actor, eventID, reason string) (*models.FundEvent, error)
}

func (m *mockEventService) CreateEvent(_ context.Context, actor authz.Actor, input services.CreateEventInput) (*models.FundEvent, error) {
	if m.createEventFn != nil {
		return m.createEventFn(actor, input)
	}
	return &models.FundEvent{}, nil
}

func (m *mockEventService) UpdateEvent(_ context.Context, actor authz.Actor, eventID string, input services.UpdateEventInput) (*models.FundEvent, error) {
	if m.updateEventFn != nil {
		return m.updateEventFn(actor, eventID, input)
	}
	return &models.FundEvent{}, nil
}

func (m *mockEventService) GetEvent(_ context.Context, actor authz.Actor, eventID string) (*services.EventDetail, error) {
	if m.getEventFn != nil {
		return m.getEventFn(actor, eventID)
	}
	return &services.EventDetail{}, nil
}

func (m *mockEventService) ListEvents(_ context.Context, actor authz.Actor, page pagination.PageRequest, filter services.EventFilter) (*pagination.PageResponse[models.FundEvent], error) {
	if m.listEventsFn != nil {
		return m.listEventsFn(actor, page, filter)
	}
	resp := pagination.NewPageResponse([]models.FundEvent{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockEventService) DeleteDraft(_ context.Context, actor authz.Actor, eventID string) error {
	if m.deleteDraftFn != nil {
		return m.deleteDraftFn(actor, eventID)
	}
	return nil
}

func (m *mockEventService) AddBudgetItem(_ context.Context, actor authz.Actor, eventID string, input services.BudgetItemInput) (*models.EventBudgetItem, error) {
	if m.addBudgetItemFn != nil {
		return m.addBudgetItemFn(actor, eventID, input)
	}
	return &models.EventBudgetItem{}, nil
}

func (m *mockEventService) UpdateBudgetItem(_ context.Context, actor authz.Actor, eventID, itemID string, input services.BudgetItemInput) (*models.EventBudgetItem, error) {
	if m.updateBudgetItemFn != nil {
		return m.updateBudgetItemFn(actor, eventID, itemID, input)
	}
	return &models.EventBudgetItem{}, nil
}

func (m *mockEventService) DeleteBudgetItem(_ context.Context, actor authz.Actor, eventID, itemID string) error {
	if m.deleteBudgetItemFn != nil {
		return m.deleteBudgetItemFn(actor, eventID, itemID)
	}
	return nil
}

func (m *mockEventService) AddActual(_ context.Context, actor authz.Actor, eventID string, input services.ActualInput) (*models.EventActual, error) {
	if m.addActualFn != nil {
		return m.addActualFn(actor, eventID, input)
	}
	return &models.EventActual{}, nil
}

func (m *mockEventService) UpdateActual(_ context.Context, actor authz.Actor, eventID, actualID string, input services.ActualInput) (*models.EventActual, error) {
	if m.updateActualFn != nil {
		return m.updateActualFn(actor, eventID, actualID, input)
	}
	return &models.EventActual{}, nil
}

func (m *mockEventService) DeleteActual(_ context.Context, actor authz.Actor, eventID, actualID string) error {
	if m.deleteActualFn != nil {
		return m.deleteActualFn(actor, eventID, actualID)
	}
	return nil
}

func (m *mockEventService) Submit(_ context.Context, actor authz.Actor, eventID, comment string) (*models.FundEvent, error) {
	if m.submitFn != nil {
		return m.submitFn(actor, eventID, comment)
	}
	return &models.FundEvent{Status: models.EventStatusSubmitted}, nil
}

func (m *mockEventService) Approve(_ context.Context, actor authz.Actor, eventID, comment string) (*services.ApprovalSummary, error) {
	if m.approveFn != nil {
		return m.approveFn(actor, eventID, comment)
	}
	return &services.ApprovalSummary{EventID: eventID}, nil
}

func (m *mockEventService) Reject(_ context.Context, actor authz.Actor, eventID, reason string) (*models.FundEvent, error) {
	if m.rejectFn != nil {
		return m.rejectFn(actor, eventID, reason)
	}
	return &models.FundEvent{Status: models.EventStatusPendingRevision}, nil
}

func (m *mockEventService) Cancel(_ context.Context, actor authz.Actor, eventID, reason string) (*models.FundEvent, error) {
	if m.cancelFn != nil {
		return m.cancelFn(actor, eventID, reason)
	}
	return &models.FundEvent{Status: models.EventStatusCancelled}, nil
}

var _ services.EventServicer = (*mockEventService)(nil)

// --- report ---

type mockReportService struct {
	upsertReportFn  func(actor authz.Actor, input services.UpsertReportInput) (*models.MonthlyReport, error)
	getReportFn     func(actor authz.Actor, reportID string) (*models.MonthlyReport, error)
	listReportsFn   func(actor authz.Actor, page pagination.PageRequest, filter services.ReportFilter) (*pagination.PageResponse[models.MonthlyReport], error)
	submitReportFn  func(actor authz.Actor, reportID string) (*models.MonthlyReport, error)
	processReportFn func(actor authz.Actor, reportID string) (*models.MonthlyReport, error)
	computeTotalsFn func(actor authz.Actor, churchID string, month, year int) (*allocation.Result, error)
}

func (m *mockReportService) UpsertReport(_ context.Context, actor authz.Actor, input services.UpsertReportInput) (*models.MonthlyReport, error) {
	if m.upsertReportFn != nil {
		return m.upsertReportFn(actor, input)
	}
	return &models.MonthlyReport{Status: models.ReportStatusDraft}, nil
}

func (m *mockReportService) GetReport(_ context.Context, actor authz.Actor, reportID string) (*models.MonthlyReport, error) {
	if m.getReportFn != nil {
		return m.getReportFn(actor, reportID)
	}
	return &models.MonthlyReport{}, nil
}

func (m *mockReportService) ListReports(_ context.Context, actor authz.Actor, page pagination.PageRequest, filter services.ReportFilter) (*pagination.PageResponse[models.MonthlyReport], error) {
	if m.listReportsFn != nil {
		return m.listReportsFn(actor, page, filter)
	}
	resp := pagination.NewPageResponse([]models.MonthlyReport{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockReportService) SubmitReport(_ context.Context, actor authz.Actor, reportID string) (*models.MonthlyReport, error) {
	if m.submitReportFn != nil {
		return m.submitReportFn(actor, reportID)
	}
	return &models.MonthlyReport{Status: models.ReportStatusSubmitted}, nil
}

func (m *mockReportService) ProcessReport(_ context.Context, actor authz.Actor, reportID string) (*models.MonthlyReport, error) {
	if m.processReportFn != nil {
		return m.processReportFn(actor, reportID)
	}
	return &models.MonthlyReport{Status: models.ReportStatusProcessed}, nil
}

func (m *mockReportService) ComputeMonthlyTotals(_ context.Context, actor authz.Actor, churchID string, month, year int) (*allocation.Result, error) {
	if m.computeTotalsFn != nil {
		return m.computeTotalsFn(actor, churchID, month, year)
	}
	return &allocation.Result{}, nil
}

var _ services.ReportServicer = (*mockReportService)(nil)

// --- church ---

type mockChurchService struct {
	createChurchFn func(actor authz.Actor, input services.ChurchInput) (*models.Church, error)
	getChurchFn    func(actor authz.Actor, churchID string) (*models.Church, error)
	listChurchesFn func(actor authz.Actor, page pagination.PageRequest) (*pagination.PageResponse[models.Church], error)
}

func (m *mockChurchService) CreateChurch(_ context.Context, actor authz.Actor, input services.ChurchInput) (*models.Church, error) {
	if m.createChurchFn != nil {
		return m.createChurchFn(actor, input)
	}
	return &models.Church{}, nil
}

func (m *mockChurchService) GetChurch(_ context.Context, actor authz.Actor, churchID string) (*models.Church, error) {
	if m.getChurchFn != nil {
		return m.getChurchFn(actor, churchID)
	}
	return &models.Church{}, nil
}

func (m *mockChurchService) ListChurches(_ context.Context, actor authz.Actor, page pagination.PageRequest) (*pagination.PageResponse[models.Church], error) {
	if m.listChurchesFn != nil {
		return m.listChurchesFn(actor, page)
	}
	resp := pagination.NewPageResponse([]models.Church{}, 1, 20, 0)
	return &resp, nil
}

var _ services.ChurchServicer = (*mockChurchService)(nil)

// --- profile ---

type mockProfileService struct {
	getProfileFn       func(actor authz.Actor, profileID string) (*models.Profile, error)
	updateRoleFn       func(actor authz.Actor, profileID string, role models.Role, churchID *string) (*models.Profile, error)
	createAssignmentFn func(actor authz.Actor, input services.AssignmentInput) (*models.FundDirectorAssignment, error)
	deleteAssignmentFn func(actor authz.Actor, assignmentID string) error
	listAssignmentsFn  func(actor authz.Actor, profileID *string) ([]models.FundDirectorAssignment, error)
}

func (m *mockProfileService) ResolveActor(_ context.Context, profileID string) (authz.Actor, error) {
	return authz.Actor{ProfileID: profileID, Role: models.RoleAdmin}, nil
}

func (m *mockProfileService) GetProfile(_ context.Context, actor authz.Actor, profileID string) (*models.Profile, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(actor, profileID)
	}
	return &models.Profile{}, nil
}

func (m *mockProfileService) UpdateRole(_ context.Context, actor authz.Actor, profileID string, role models.Role, churchID *string) (*models.Profile, error) {
	if m.updateRoleFn != nil {
		return m.updateRoleFn(actor, profileID, role, churchID)
	}
	return &models.Profile{Role: role}, nil
}

func (m *mockProfileService) CreateAssignment(_ context.Context, actor authz.Actor, input services.AssignmentInput) (*models.FundDirectorAssignment, error) {
	if m.createAssignmentFn != nil {
		return m.createAssignmentFn(actor, input)
	}
	return &models.FundDirectorAssignment{}, nil
}

func (m *mockProfileService) DeleteAssignment(_ context.Context, actor authz.Actor, assignmentID string) error {
	if m.deleteAssignmentFn != nil {
		return m.deleteAssignmentFn(actor, assignmentID)
	}
	return nil
}

func (m *mockProfileService) ListAssignments(_ context.Context, actor authz.Actor, profileID *string) ([]models.FundDirectorAssignment, error) {
	if m.listAssignmentsFn != nil {
		return m.listAssignmentsFn(actor, profileID)
	}
	return []models.FundDirectorAssignment{}, nil
}

var _ services.ProfileServicer = (*mockProfileService)(nil)

// --- permissions and audit ---

type mockPermissionService struct {
	listFn func() ([]models.RolePermission, error)
}

func (m *mockPermissionService) Seed(context.Context, map[models.Role]models.Scope) error {
	return nil
}

func (m *mockPermissionService) List(context.Context) ([]models.RolePermission, error) {
	if m.listFn != nil {
		return m.listFn()
	}
	return []models.RolePermission{}, nil
}

func (m *mockPermissionService) LoadPolicy(context.Context) (*authz.Policy, error) {
	return nil, nil
}

var _ services.PermissionServicer = (*mockPermissionService)(nil)

type mockAuditService struct {
	listAuditLogsFn func(actor authz.Actor, page pagination.PageRequest, filter services.AuditFilter) (*pagination.PageResponse[models.AuditLog], error)
}

func (m *mockAuditService) Record(context.Context, *gorm.DB, authz.Actor, string, string, string, map[string]any) error {
	return nil
}

func (m *mockAuditService) ListAuditLogs(_ context.Context, actor authz.Actor, page pagination.PageRequest, filter services.AuditFilter) (*pagination.PageResponse[models.AuditLog], error) {
	if m.listAuditLogsFn != nil {
		return m.listAuditLogsFn(actor, page, filter)
	}
	resp := pagination.NewPageResponse([]models.AuditLog{}, 1, 20, 0)
	return &resp, nil
}

var _ services.AuditServicer = (*mockAuditService)(nil)
