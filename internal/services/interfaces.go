package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"treasury/internal/allocation"
	"treasury/internal/authz"
	"treasury/internal/models"
	"treasury/internal/pagination"
)

// PermissionServicer defines the contract for the role permission table.
type PermissionServicer interface {
	Seed(ctx context.Context, overrides map[models.Role]models.Scope) error
	List(ctx context.Context) ([]models.RolePermission, error)
	LoadPolicy(ctx context.Context) (*authz.Policy, error)
}

// AssignmentInput holds the fields of a new fund director assignment.
type AssignmentInput struct {
	ProfileID string
	FundID    *string
	ChurchID  *string
	Notes     string
}

// ProfileServicer defines the contract for profiles, roles and fund director assignments.
type ProfileServicer interface {
	ResolveActor(ctx context.Context, profileID string) (authz.Actor, error)
	GetProfile(ctx context.Context, actor authz.Actor, profileID string) (*models.Profile, error)
	UpdateRole(ctx context.Context, actor authz.Actor, profileID string, role models.Role, churchID *string) (*models.Profile, error)
	CreateAssignment(ctx context.Context, actor authz.Actor, input AssignmentInput) (*models.FundDirectorAssignment, error)
	DeleteAssignment(ctx context.Context, actor authz.Actor, assignmentID string) error
	ListAssignments(ctx context.Context, actor authz.Actor, profileID *string) ([]models.FundDirectorAssignment, error)
}

// ChurchInput holds the fields of a new church.
type ChurchInput struct {
	Name       string
	City       string
	PastorName string
	Phone      string
}

// ChurchServicer defines the contract for church reference data.
type ChurchServicer interface {
	CreateChurch(ctx context.Context, actor authz.Actor, input ChurchInput) (*models.Church, error)
	GetChurch(ctx context.Context, actor authz.Actor, churchID string) (*models.Church, error)
	ListChurches(ctx context.Context, actor authz.Actor, page pagination.PageRequest) (*pagination.PageResponse[models.Church], error)
}

// CreateFundInput holds the fields of a new fund.
type CreateFundInput struct {
	Name           string
	Type           models.FundType
	Description    string
	InitialBalance int64
}

// UpdateFundInput holds optional fund metadata changes.
type UpdateFundInput struct {
	Name        *string
	Type        *models.FundType
	Description *string
}

// FundServicer defines the contract for fund metadata. Balances belong to the ledger.
type FundServicer interface {
	CreateFund(ctx context.Context, actor authz.Actor, input CreateFundInput) (*models.Fund, error)
	GetFund(ctx context.Context, actor authz.Actor, fundID string) (*models.Fund, error)
	ListFunds(ctx context.Context, actor authz.Actor, includeInactive bool, page pagination.PageRequest) (*pagination.PageResponse[models.Fund], error)
	UpdateFund(ctx context.Context, actor authz.Actor, fundID string, input UpdateFundInput) (*models.Fund, error)
	DeactivateFund(ctx context.Context, actor authz.Actor, fundID string) (*models.Fund, error)
}

// PostingInput holds the fields of a manual posting.
type PostingInput struct {
	FundID         string
	ChurchID       *string
	Date           time.Time
	Concept        string
	Provider       string
	DocumentNumber string
	AmountIn       int64
	AmountOut      int64
}

// TransferInput holds the fields of a transfer between two funds.
type TransferInput struct {
	FromFundID string
	ToFundID   string
	Amount     int64
	Date       time.Time
	Concept    string
}

// CorrectionInput holds an administrative correction of a posting. Nil
// fields keep their current value.
type CorrectionInput struct {
	FundID    *string
	Date      *time.Time
	Concept   *string
	AmountIn  *int64
	AmountOut *int64
	Reason    string
}

// PostingFilter holds optional filter parameters for listing postings.
type PostingFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	ChurchID *string
	EventID  *string
}

// ReconcileResult compares a fund's stored balance with its posting history.
type ReconcileResult struct {
	FundID          string    `json:"fund_id"`
	FundName        string    `json:"fund_name"`
	StoredBalance   int64     `json:"stored_balance"`
	ComputedBalance int64     `json:"computed_balance"`
	Difference      int64     `json:"difference"`
	Matches         bool      `json:"matches"`
	PostingCount    int64     `json:"posting_count"`
	OnHold          bool      `json:"on_hold"`
	CheckedAt       time.Time `json:"checked_at"`
}

// ReleaseHoldInput holds an administrator's resolution of an integrity hold.
// With Resync the stored balance is set to the ledger balance.
type ReleaseHoldInput struct {
	Note   string
	Resync bool
}

// LedgerServicer defines the contract for the fund ledger.
type LedgerServicer interface {
	Post(ctx context.Context, actor authz.Actor, input PostingInput) (*models.Posting, error)
	Transfer(ctx context.Context, actor authz.Actor, input TransferInput) (*models.Posting, error)
	Correct(ctx context.Context, actor authz.Actor, postingID string, input CorrectionInput) (*models.Posting, error)
	DeletePosting(ctx context.Context, actor authz.Actor, postingID string, reason string) error
	GetPosting(ctx context.Context, actor authz.Actor, postingID string) (*models.Posting, error)
	ListPostings(ctx context.Context, actor authz.Actor, fundID string, page pagination.PageRequest, filter PostingFilter) (*pagination.PageResponse[models.Posting], error)
	ListMovements(ctx context.Context, actor authz.Actor, fundID string, page pagination.PageRequest) (*pagination.PageResponse[models.FundMovement], error)
	Reconcile(ctx context.Context, actor authz.Actor, fundID string) (*ReconcileResult, error)
	ReconcileAll(ctx context.Context, actor authz.Actor) ([]ReconcileResult, error)
	ReleaseHold(ctx context.Context, actor authz.Actor, fundID string, input ReleaseHoldInput) (*models.Fund, error)

	// PostInTx applies posting inside an open transaction. The caller is
	// responsible for authorization.
	PostInTx(tx *gorm.DB, actor authz.Actor, posting *models.Posting, reason string) error
	// LockFund loads a fund with a row lock held until tx ends.
	LockFund(tx *gorm.DB, fundID string) (*models.Fund, error)
}

// BudgetItemInput holds the fields of an event budget item.
type BudgetItemInput struct {
	Category        string
	Description     string
	ProjectedAmount int64
	Notes           string
}

// ActualInput holds the fields of an event actual.
type ActualInput struct {
	LineType    models.LineType
	Description string
	Amount      int64
	ReceiptURL  *string
	Notes       string
}

// CreateEventInput holds the fields of a new fund event.
type CreateEventInput struct {
	FundID      string
	ChurchID    *string
	Name        string
	Description string
	EventDate   time.Time
	BudgetItems []BudgetItemInput
}

// UpdateEventInput holds optional event changes.
type UpdateEventInput struct {
	Name        *string
	Description *string
	EventDate   *time.Time
}

// EventFilter holds optional filter parameters for listing events.
type EventFilter struct {
	Status   *models.EventStatus
	FundID   *string
	ChurchID *string
}

// EventTotals summarizes an event's budget against its actuals.
type EventTotals struct {
	Projected     int64 `json:"projected"`
	ActualIncome  int64 `json:"actual_income"`
	ActualExpense int64 `json:"actual_expense"`
	Net           int64 `json:"net"`
	Variance      int64 `json:"variance"`
}

// EventDetail is an event with its children and totals.
type EventDetail struct {
	models.FundEvent
	Totals EventTotals `json:"totals"`
}

// ApprovalSummary describes the ledger effect of an approval.
type ApprovalSummary struct {
	EventID      string    `json:"event_id"`
	FundID       string    `json:"fund_id"`
	TotalIncome  int64     `json:"total_income"`
	TotalExpense int64     `json:"total_expense"`
	Net          int64     `json:"net"`
	FinalBalance int64     `json:"final_balance"`
	PostingIDs   []string  `json:"posting_ids"`
	ApprovedAt   time.Time `json:"approved_at"`
}

// EventServicer defines the contract for the fund event lifecycle.
type EventServicer interface {
	CreateEvent(ctx context.Context, actor authz.Actor, input CreateEventInput) (*models.FundEvent, error)
	UpdateEvent(ctx context.Context, actor authz.Actor, eventID string, input UpdateEventInput) (*models.FundEvent, error)
	GetEvent(ctx context.Context, actor authz.Actor, eventID string) (*EventDetail, error)
	ListEvents(ctx context.Context, actor authz.Actor, page pagination.PageRequest, filter EventFilter) (*pagination.PageResponse[models.FundEvent], error)
	DeleteDraft(ctx context.Context, actor authz.Actor, eventID string) error

	AddBudgetItem(ctx context.Context, actor authz.Actor, eventID string, input BudgetItemInput) (*models.EventBudgetItem, error)
	UpdateBudgetItem(ctx context.Context, actor authz.Actor, eventID, itemID string, input BudgetItemInput) (*models.EventBudgetItem, error)
	DeleteBudgetItem(ctx context.Context, actor authz.Actor, eventID, itemID string) error
	AddActual(ctx context.Context, actor authz.Actor, eventID string, input ActualInput) (*models.EventActual, error)
	UpdateActual(ctx context.Context, actor authz.Actor, eventID, actualID string, input ActualInput) (*models.EventActual, error)
	DeleteActual(ctx context.Context, actor authz.Actor, eventID, actualID string) error

	Submit(ctx context.Context, actor authz.Actor, eventID, comment string) (*models.FundEvent, error)
	Approve(ctx context.Context, actor authz.Actor, eventID, comment string) (*ApprovalSummary, error)
	Reject(ctx context.Context, actor authz.Actor, eventID, reason string) (*models.FundEvent, error)
	Cancel(ctx context.Context, actor authz.Actor, eventID, reason string) (*models.FundEvent, error)
}

// ReportLineInput holds one income or expense line of a monthly report.
type ReportLineInput struct {
	LineType    models.LineType
	Bucket      string
	Description string
	Amount      int64
	Date        *time.Time
}

// UpsertReportInput holds a church's report for a month.
type UpsertReportInput struct {
	ChurchID string
	Month    int
	Year     int
	Notes    string
	Lines    []ReportLineInput
}

// ReportFilter holds optional filter parameters for listing reports.
type ReportFilter struct {
	ChurchID *string
	Year     *int
	Month    *int
	Status   *models.ReportStatus
}

// ReportServicer defines the contract for monthly reports.
type ReportServicer interface {
	UpsertReport(ctx context.Context, actor authz.Actor, input UpsertReportInput) (*models.MonthlyReport, error)
	GetReport(ctx context.Context, actor authz.Actor, reportID string) (*models.MonthlyReport, error)
	ListReports(ctx context.Context, actor authz.Actor, page pagination.PageRequest, filter ReportFilter) (*pagination.PageResponse[models.MonthlyReport], error)
	SubmitReport(ctx context.Context, actor authz.Actor, reportID string) (*models.MonthlyReport, error)
	ProcessReport(ctx context.Context, actor authz.Actor, reportID string) (*models.MonthlyReport, error)
	ComputeMonthlyTotals(ctx context.Context, actor authz.Actor, churchID string, month, year int) (*allocation.Result, error)
}

// AuditFilter holds optional filter parameters for listing audit logs.
type AuditFilter struct {
	ActorID      *string
	Action       *string
	ResourceType *string
	ResourceID   *string
}

// AuditServicer defines the contract for the audit log.
type AuditServicer interface {
	Record(ctx context.Context, tx *gorm.DB, actor authz.Actor, action, resourceType, resourceID string, changes map[string]any) error
	ListAuditLogs(ctx context.Context, actor authz.Actor, page pagination.PageRequest, filter AuditFilter) (*pagination.PageResponse[models.AuditLog], error)
}
