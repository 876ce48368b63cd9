package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"treasury/internal/authz"
	"treasury/internal/database"
	apperrors "treasury/internal/errors"
	"treasury/internal/logger"
	"treasury/internal/models"
	"treasury/internal/pagination"
)

// eventService owns the fund event lifecycle. Approval posts the event's
// actuals to the ledger in the same transaction as the status change.
type eventService struct {
	db     *gorm.DB
	policy *authz.Policy
	ledger LedgerServicer
	audit  AuditServicer
}

// NewEventService creates a new EventServicer.
func NewEventService(db *gorm.DB, policy *authz.Policy, ledger LedgerServicer, audit AuditServicer) EventServicer {
	return &eventService{db: db, policy: policy, ledger: ledger, audit: audit}
}

func eventTarget(e *models.FundEvent) authz.Target {
	return authz.Fund(e.FundID, e.ChurchID)
}

// CreateEvent creates an event in draft with its initial budget.
func (s *eventService) CreateEvent(ctx context.Context, actor authz.Actor, input CreateEventInput) (*models.FundEvent, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.FundID == "" {
		return nil, apperrors.Validation("fund_id is required")
	}
	if input.Name == "" {
		return nil, apperrors.Validation("name is required")
	}
	if input.EventDate.IsZero() {
		return nil, apperrors.Validation("event_date is required")
	}
	for _, item := range input.BudgetItems {
		if err := validateBudgetItem(item); err != nil {
			return nil, err
		}
	}
	if err := s.policy.Require(actor, models.PermEventsCreate, authz.Fund(input.FundID, input.ChurchID)); err != nil {
		return nil, err
	}

	event := &models.FundEvent{
		FundID:      input.FundID,
		ChurchID:    input.ChurchID,
		Name:        input.Name,
		Description: input.Description,
		EventDate:   input.EventDate,
		Status:      models.EventStatusDraft,
		CreatedBy:   actor.ProfileID,
	}
	for _, item := range input.BudgetItems {
		event.BudgetItems = append(event.BudgetItems, models.EventBudgetItem{
			Category:        strings.TrimSpace(item.Category),
			Description:     item.Description,
			ProjectedAmount: item.ProjectedAmount,
			Notes:           item.Notes,
		})
	}

	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		fund, err := findByID[models.Fund](tx, input.FundID, apperrors.ErrFundNotFound)
		if err != nil {
			return err
		}
		if !fund.IsActive {
			return apperrors.ErrFundInactive
		}
		if input.ChurchID != nil {
			if _, err := findByID[models.Church](tx, *input.ChurchID, apperrors.ErrChurchNotFound); err != nil {
				return err
			}
		}

		if err := tx.Create(event).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		entry := &models.EventAuditEntry{
			EventID:   event.ID,
			NewStatus: models.EventStatusDraft,
			ChangedBy: actor.ProfileID,
			Comment:   "created",
			ChangedAt: time.Now(),
		}
		if err := tx.Create(entry).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(ctx, tx, actor, ActionEventCreate, "event", event.ID, map[string]any{
			"fund_id":   event.FundID,
			"church_id": event.ChurchID,
			"name":      event.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// UpdateEvent changes an editable event's name, description or date.
func (s *eventService) UpdateEvent(ctx context.Context, actor authz.Actor, eventID string, input UpdateEventInput) (*models.FundEvent, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.Validation("name must not be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.EventDate != nil {
		if input.EventDate.IsZero() {
			return nil, apperrors.Validation("event_date must not be empty")
		}
		updates["event_date"] = *input.EventDate
	}

	var event *models.FundEvent
	err := s.editEvent(ctx, actor, eventID, func(tx *gorm.DB, locked *models.FundEvent) error {
		event = locked
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(locked).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(ctx, tx, actor, ActionEventUpdate, "event", locked.ID, updates)
	})
	if err != nil {
		return nil, err
	}
	return loadEvent(s.db.WithContext(ctx), event.ID)
}

// AddBudgetItem adds a projected cost line.
func (s *eventService) AddBudgetItem(ctx context.Context, actor authz.Actor, eventID string, input BudgetItemInput) (*models.EventBudgetItem, error) {
	if err := validateBudgetItem(input); err != nil {
		return nil, err
	}

	item := &models.EventBudgetItem{
		EventID:         eventID,
		Category:        strings.TrimSpace(input.Category),
		Description:     input.Description,
		ProjectedAmount: input.ProjectedAmount,
		Notes:           input.Notes,
	}
	err := s.editEvent(ctx, actor, eventID, func(tx *gorm.DB, _ *models.FundEvent) error {
		if err := tx.Create(item).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateBudgetItem replaces a budget item's fields.
func (s *eventService) UpdateBudgetItem(ctx context.Context, actor authz.Actor, eventID, itemID string, input BudgetItemInput) (*models.EventBudgetItem, error) {
	if err := validateBudgetItem(input); err != nil {
		return nil, err
	}

	var item models.EventBudgetItem
	err := s.editEvent(ctx, actor, eventID, func(tx *gorm.DB, _ *models.FundEvent) error {
		if err := findChild(tx, &item, itemID, eventID, apperrors.ErrBudgetItemNotFound); err != nil {
			return err
		}
		item.Category = strings.TrimSpace(input.Category)
		item.Description = input.Description
		item.ProjectedAmount = input.ProjectedAmount
		item.Notes = input.Notes
		if err := tx.Save(&item).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteBudgetItem removes a budget item.
func (s *eventService) DeleteBudgetItem(ctx context.Context, actor authz.Actor, eventID, itemID string) error {
	return s.editEvent(ctx, actor, eventID, func(tx *gorm.DB, _ *models.FundEvent) error {
		var item models.EventBudgetItem
		if err := findChild(tx, &item, itemID, eventID, apperrors.ErrBudgetItemNotFound); err != nil {
			return err
		}
		if err := tx.Delete(&item).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// AddActual records a realized income or expense.
func (s *eventService) AddActual(ctx context.Context, actor authz.Actor, eventID string, input ActualInput) (*models.EventActual, error) {
	if err := validateActual(input); err != nil {
		return nil, err
	}

	actual := &models.EventActual{
		EventID:     eventID,
		LineType:    input.LineType,
		Description: strings.TrimSpace(input.Description),
		Amount:      input.Amount,
		ReceiptURL:  input.ReceiptURL,
		Notes:       input.Notes,
		RecordedAt:  time.Now(),
		RecordedBy:  actor.ProfileID,
	}
	err := s.editEvent(ctx, actor, eventID, func(tx *gorm.DB, _ *models.FundEvent) error {
		if err := tx.Create(actual).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return actual, nil
}

// UpdateActual replaces an actual's fields.
func (s *eventService) UpdateActual(ctx context.Context, actor authz.Actor, eventID, actualID string, input ActualInput) (*models.EventActual, error) {
	if err := validateActual(input); err != nil {
		return nil, err
	}

	var actual models.EventActual
	err := s.editEvent(ctx, actor, eventID, func(tx *gorm.DB, _ *models.FundEvent) error {
		if err := findChild(tx, &actual, actualID, eventID, apperrors.ErrActualNotFound); err != nil {
			return err
		}
		actual.LineType = input.LineType
		actual.Description = strings.TrimSpace(input.Description)
		actual.Amount = input.Amount
		actual.ReceiptURL = input.ReceiptURL
		actual.Notes = input.Notes
		actual.RecordedBy = actor.ProfileID
		if err := tx.Save(&actual).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &actual, nil
}

// DeleteActual removes an actual.
func (s *eventService) DeleteActual(ctx context.Context, actor authz.Actor, eventID, actualID string) error {
	return s.editEvent(ctx, actor, eventID, func(tx *gorm.DB, _ *models.FundEvent) error {
		var actual models.EventActual
		if err := findChild(tx, &actual, actualID, eventID, apperrors.ErrActualNotFound); err != nil {
			return err
		}
		if err := tx.Delete(&actual).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// editEvent runs fn against the locked event once the caller may edit it and
// the event is still in an editable state.
func (s *eventService) editEvent(ctx context.Context, actor authz.Actor, eventID string, fn func(tx *gorm.DB, event *models.FundEvent) error) error {
	event, err := loadEvent(s.db.WithContext(ctx), eventID)
	if err != nil {
		return err
	}
	if err := s.policy.RequireCreatorOrNational(actor, models.PermEventsEdit, eventTarget(event), event.CreatedBy); err != nil {
		return err
	}

	return database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		locked, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		if !locked.Status.IsEditable() {
			return apperrors.InvalidTransition(locked.Status, models.EventStatusDraft, models.EventStatusPendingRevision)
		}
		return fn(tx, locked)
	})
}

// Submit sends an editable event for approval.
func (s *eventService) Submit(ctx context.Context, actor authz.Actor, eventID, comment string) (*models.FundEvent, error) {
	event, err := loadEvent(s.db.WithContext(ctx), eventID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.RequireCreatorOrNational(actor, models.PermEventsSubmit, eventTarget(event), event.CreatedBy); err != nil {
		return nil, err
	}

	err = database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		locked, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		event = locked
		return s.transition(ctx, tx, actor, locked, models.EventStatusSubmitted,
			map[string]any{"submitted_at": time.Now()}, comment, ActionEventSubmit, nil)
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// Approve posts the event's summed actuals to its fund and marks it
// approved. The fund row stays locked until commit so approvals against the
// same fund run one at a time; any failure leaves no postings, no balance
// change and no status change.
func (s *eventService) Approve(ctx context.Context, actor authz.Actor, eventID, comment string) (*ApprovalSummary, error) {
	event, err := loadEvent(s.db.WithContext(ctx), eventID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.RequireNational(actor, models.PermEventsApprove); err != nil {
		return nil, err
	}

	var summary *ApprovalSummary
	err = database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		fund, err := s.ledger.LockFund(tx, event.FundID)
		if err != nil {
			return err
		}
		locked, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		if locked.Status != models.EventStatusSubmitted {
			return apperrors.InvalidTransition(locked.Status, models.EventStatusSubmitted)
		}

		var actuals []models.EventActual
		if err := tx.Where("event_id = ?", eventID).Find(&actuals).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		income, expense := sumActuals(actuals)

		now := time.Now()
		summary = &ApprovalSummary{
			EventID:      locked.ID,
			FundID:       fund.ID,
			TotalIncome:  income,
			TotalExpense: expense,
			Net:          income - expense,
			FinalBalance: fund.CurrentBalance,
			PostingIDs:   []string{},
			ApprovedAt:   now,
		}

		if income > 0 {
			posting := &models.Posting{
				Date:     now,
				FundID:   fund.ID,
				ChurchID: locked.ChurchID,
				EventID:  &locked.ID,
				Concept:  "Ingresos del evento: " + locked.Name,
				AmountIn: income,
			}
			if err := s.ledger.PostInTx(tx, actor, posting, "event income"); err != nil {
				return err
			}
			summary.PostingIDs = append(summary.PostingIDs, posting.ID)
			summary.FinalBalance = posting.BalanceAfter
		}
		if expense > 0 {
			posting := &models.Posting{
				Date:      now,
				FundID:    fund.ID,
				ChurchID:  locked.ChurchID,
				EventID:   &locked.ID,
				Concept:   "Gastos del evento: " + locked.Name,
				AmountOut: expense,
			}
			if err := s.ledger.PostInTx(tx, actor, posting, "event expense"); err != nil {
				return err
			}
			summary.PostingIDs = append(summary.PostingIDs, posting.ID)
			summary.FinalBalance = posting.BalanceAfter
		}

		approver := actor.ProfileID
		return s.transition(ctx, tx, actor, locked, models.EventStatusApproved,
			map[string]any{"approved_by": approver, "approved_at": now}, comment, ActionEventApprove,
			map[string]any{
				"total_income":  income,
				"total_expense": expense,
				"final_balance": summary.FinalBalance,
				"posting_ids":   summary.PostingIDs,
			})
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientFunds) {
			logger.LogError(err, "event approval rejected", "event_id", eventID, "fund_id", event.FundID, "actor_id", actor.ProfileID)
		}
		return nil, err
	}
	return summary, nil
}

// Reject returns a submitted event to its creator for revision.
func (s *eventService) Reject(ctx context.Context, actor authz.Actor, eventID, reason string) (*models.FundEvent, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Validation("a rejection reason is required")
	}
	if _, err := loadEvent(s.db.WithContext(ctx), eventID); err != nil {
		return nil, err
	}
	if err := s.policy.RequireNational(actor, models.PermEventsApprove); err != nil {
		return nil, err
	}

	var event *models.FundEvent
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		locked, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		event = locked
		return s.transition(ctx, tx, actor, locked, models.EventStatusPendingRevision,
			map[string]any{"rejection_reason": reason}, reason, ActionEventReject, nil)
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// Cancel abandons an event that has not been approved.
func (s *eventService) Cancel(ctx context.Context, actor authz.Actor, eventID, reason string) (*models.FundEvent, error) {
	event, err := loadEvent(s.db.WithContext(ctx), eventID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.RequireCreatorOrNational(actor, models.PermEventsEdit, eventTarget(event), event.CreatedBy); err != nil {
		return nil, err
	}

	err = database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		locked, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		event = locked
		return s.transition(ctx, tx, actor, locked, models.EventStatusCancelled, map[string]any{},
			strings.TrimSpace(reason), ActionEventCancel, nil)
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// DeleteDraft hard-deletes a draft event and everything it owns.
func (s *eventService) DeleteDraft(ctx context.Context, actor authz.Actor, eventID string) error {
	event, err := loadEvent(s.db.WithContext(ctx), eventID)
	if err != nil {
		return err
	}
	if err := s.policy.RequireCreatorOrNational(actor, models.PermEventsEdit, eventTarget(event), event.CreatedBy); err != nil {
		return err
	}

	return database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		locked, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		if locked.Status != models.EventStatusDraft {
			return apperrors.InvalidTransition(locked.Status, models.EventStatusDraft)
		}

		for _, child := range []any{&models.EventBudgetItem{}, &models.EventActual{}, &models.EventAuditEntry{}} {
			if err := tx.Where("event_id = ?", eventID).Delete(child).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if err := tx.Delete(locked).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(ctx, tx, actor, ActionEventDelete, "event", eventID, map[string]any{
			"fund_id": locked.FundID,
			"name":    locked.Name,
		})
	})
}

// GetEvent returns an event with its children and totals.
func (s *eventService) GetEvent(ctx context.Context, actor authz.Actor, eventID string) (*EventDetail, error) {
	var event models.FundEvent
	err := s.db.WithContext(ctx).
		Preload("BudgetItems", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Actuals", func(db *gorm.DB) *gorm.DB { return db.Order("recorded_at ASC") }).
		Preload("AuditEntries", func(db *gorm.DB) *gorm.DB { return db.Order("changed_at ASC") }).
		First(&event, "id = ?", eventID).Error
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.policy.Require(actor, models.PermEventsView, eventTarget(&event)); err != nil {
		return nil, err
	}

	detail := &EventDetail{FundEvent: event}
	for _, item := range event.BudgetItems {
		detail.Totals.Projected += item.ProjectedAmount
	}
	detail.Totals.ActualIncome, detail.Totals.ActualExpense = sumActuals(event.Actuals)
	detail.Totals.Net = detail.Totals.ActualIncome - detail.Totals.ActualExpense
	detail.Totals.Variance = detail.Totals.Projected - detail.Totals.ActualExpense
	return detail, nil
}

// ListEvents returns the events actor may see, latest first.
func (s *eventService) ListEvents(ctx context.Context, actor authz.Actor, page pagination.PageRequest, filter EventFilter) (*pagination.PageResponse[models.FundEvent], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.FundEvent{}).
		Scopes(visibleRows(s.policy.VisibilityFor(actor, models.PermEventsView), "fund_id", "church_id"))
	if filter.Status != nil {
		base = base.Where("status = ?", *filter.Status)
	}
	if filter.FundID != nil {
		base = base.Where("fund_id = ?", *filter.FundID)
	}
	if filter.ChurchID != nil {
		base = base.Where("church_id = ?", *filter.ChurchID)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var events []models.FundEvent
	if err := base.Scopes(pagination.Paginate(page)).Order("event_date DESC").Find(&events).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(events, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// transition moves event to next, applying updates and appending both the
// event's own history entry and the audit log entry.
func (s *eventService) transition(
	ctx context.Context,
	tx *gorm.DB,
	actor authz.Actor,
	event *models.FundEvent,
	next models.EventStatus,
	updates map[string]any,
	comment string,
	action string,
	extra map[string]any,
) error {
	previous := event.Status
	if !previous.CanTransitionTo(next) {
		return apperrors.InvalidTransition(previous, models.PredecessorsOf(next)...)
	}

	updates["status"] = next
	if err := tx.Model(event).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	event.Status = next

	entry := &models.EventAuditEntry{
		EventID:        event.ID,
		PreviousStatus: &previous,
		NewStatus:      next,
		ChangedBy:      actor.ProfileID,
		Comment:        comment,
		ChangedAt:      time.Now(),
	}
	if err := tx.Create(entry).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	changes := map[string]any{"from": previous, "to": next}
	if comment != "" {
		changes["comment"] = comment
	}
	for k, v := range extra {
		changes[k] = v
	}
	return s.audit.Record(ctx, tx, actor, action, "event", event.ID, changes)
}

func loadEvent(db *gorm.DB, eventID string) (*models.FundEvent, error) {
	return findByID[models.FundEvent](db, eventID, apperrors.ErrEventNotFound)
}

func lockEvent(tx *gorm.DB, eventID string) (*models.FundEvent, error) {
	var event models.FundEvent
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&event, "id = ?", eventID).Error; err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &event, nil
}

// findChild loads a budget item or actual that belongs to eventID.
func findChild(tx *gorm.DB, dest any, id, eventID string, notFound *apperrors.AppError) error {
	if err := tx.Where("id = ? AND event_id = ?", id, eventID).First(dest).Error; err != nil {
		if isNotFound(err) {
			return notFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func sumActuals(actuals []models.EventActual) (income, expense int64) {
	for _, a := range actuals {
		switch a.LineType {
		case models.LineTypeIncome:
			income += a.Amount
		case models.LineTypeExpense:
			expense += a.Amount
		}
	}
	return income, expense
}

func validateBudgetItem(item BudgetItemInput) error {
	if strings.TrimSpace(item.Category) == "" {
		return apperrors.Validation("budget item category is required")
	}
	if item.ProjectedAmount < 0 {
		return apperrors.Validation("projected_amount must not be negative")
	}
	return nil
}

func validateActual(input ActualInput) error {
	if input.LineType != models.LineTypeIncome && input.LineType != models.LineTypeExpense {
		return apperrors.Validation("line_type must be income or expense")
	}
	if strings.TrimSpace(input.Description) == "" {
		return apperrors.Validation("description is required")
	}
	if input.Amount < 0 {
		return apperrors.Validation("amount must not be negative")
	}
	return nil
}
