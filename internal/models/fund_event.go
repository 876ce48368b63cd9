package models

import "time"

// EventStatus is the lifecycle state of a FundEvent.
type EventStatus string

const (
	EventStatusDraft           EventStatus = "draft"
	EventStatusSubmitted       EventStatus = "submitted"
	EventStatusApproved        EventStatus = "approved"
	EventStatusPendingRevision EventStatus = "pending_revision"
	EventStatusCancelled       EventStatus = "cancelled"
)

var eventTransitions = map[EventStatus][]EventStatus{
	EventStatusDraft:           {EventStatusSubmitted, EventStatusCancelled},
	EventStatusSubmitted:       {EventStatusApproved, EventStatusPendingRevision},
	EventStatusPendingRevision: {EventStatusSubmitted, EventStatusCancelled},
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	for _, allowed := range eventTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PredecessorsOf returns the states that may move to next, in lifecycle order.
func PredecessorsOf(next EventStatus) []EventStatus {
	var out []EventStatus
	for _, s := range []EventStatus{
		EventStatusDraft,
		EventStatusSubmitted,
		EventStatusPendingRevision,
		EventStatusApproved,
		EventStatusCancelled,
	} {
		if s.CanTransitionTo(next) {
			out = append(out, s)
		}
	}
	return out
}

// IsEditable reports whether budget items and actuals may change in state s.
func (s EventStatus) IsEditable() bool {
	return s == EventStatusDraft || s == EventStatusPendingRevision
}

// IsTerminal reports whether no transition leaves s.
func (s EventStatus) IsTerminal() bool {
	return len(eventTransitions[s]) == 0
}

// FundEvent is a budgeted activity against one fund, optionally for one church.
type FundEvent struct {
	Base
	FundID          string      `gorm:"type:uuid;not null;index" json:"fund_id"`
	ChurchID        *string     `gorm:"type:uuid;index" json:"church_id,omitempty"`
	Name            string      `gorm:"not null" json:"name"`
	Description     string      `json:"description"`
	EventDate       time.Time   `gorm:"not null" json:"event_date"`
	Status          EventStatus `gorm:"not null;index;default:'draft'" json:"status"`
	CreatedBy       string      `gorm:"type:uuid;not null" json:"created_by"`
	SubmittedAt     *time.Time  `json:"submitted_at,omitempty"`
	ApprovedBy      *string     `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time  `json:"approved_at,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`

	BudgetItems  []EventBudgetItem `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"budget_items,omitempty"`
	Actuals      []EventActual     `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"actuals,omitempty"`
	AuditEntries []EventAuditEntry `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"audit_entries,omitempty"`
}

// EventBudgetItem is a projected cost line of an event.
type EventBudgetItem struct {
	Base
	EventID         string `gorm:"type:uuid;not null;index" json:"event_id"`
	Category        string `gorm:"not null" json:"category"`
	Description     string `json:"description"`
	ProjectedAmount int64  `gorm:"type:bigint;not null" json:"projected_amount"`
	Notes           string `json:"notes,omitempty"`
}

// LineType distinguishes realized income from realized expense.
type LineType string

const (
	LineTypeIncome  LineType = "income"
	LineTypeExpense LineType = "expense"
)

// EventActual is a realized income or expense of an event.
type EventActual struct {
	Base
	EventID     string    `gorm:"type:uuid;not null;index" json:"event_id"`
	LineType    LineType  `gorm:"not null" json:"line_type"`
	Description string    `gorm:"not null" json:"description"`
	Amount      int64     `gorm:"type:bigint;not null" json:"amount"`
	ReceiptURL  *string   `json:"receipt_url,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
	RecordedBy  string    `gorm:"type:uuid" json:"recorded_by"`
}

// EventAuditEntry is an append-only status transition record.
type EventAuditEntry struct {
	Base
	EventID        string       `gorm:"type:uuid;not null;index" json:"event_id"`
	PreviousStatus *EventStatus `json:"previous_status,omitempty"`
	NewStatus      EventStatus  `gorm:"not null" json:"new_status"`
	ChangedBy      string       `gorm:"type:uuid;not null" json:"changed_by"`
	Comment        string       `json:"comment,omitempty"`
	ChangedAt      time.Time    `gorm:"not null" json:"changed_at"`
}
