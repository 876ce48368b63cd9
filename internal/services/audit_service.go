package services

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"treasury/internal/authz"
	apperrors "treasury/internal/errors"
	"treasury/internal/logger"
	"treasury/internal/models"
	"treasury/internal/pagination"
)

// Audit actions.
const (
	ActionFundCreate      = "fund.create"
	ActionFundUpdate      = "fund.update"
	ActionFundDeactivate  = "fund.deactivate"
	ActionFundHold        = "fund.integrity_hold"
	ActionFundRelease     = "fund.release_hold"
	ActionPostingCreate   = "posting.create"
	ActionPostingTransfer = "posting.transfer"
	ActionPostingCorrect  = "posting.correct"
	ActionPostingDelete   = "posting.delete"
	ActionEventCreate     = "event.create"
	ActionEventUpdate     = "event.update"
	ActionEventSubmit     = "event.submit"
	ActionEventApprove    = "event.approve"
	ActionEventReject     = "event.reject"
	ActionEventCancel     = "event.cancel"
	ActionEventDelete     = "event.delete"
	ActionReportUpsert    = "report.upsert"
	ActionReportCorrect   = "report.correct"
	ActionReportSubmit    = "report.submit"
	ActionReportProcess   = "report.process"
	ActionRoleUpdate      = "profile.role_update"
	ActionAssignCreate    = "assignment.create"
	ActionAssignDelete    = "assignment.delete"
	ActionChurchCreate    = "church.create"
)

type clientIPKey struct{}

// WithClientIP returns a context carrying the caller's address for the audit log.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// auditService handles audit log recording.
type auditService struct {
	db     *gorm.DB
	policy *authz.Policy
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB, policy *authz.Policy) AuditServicer {
	return &auditService{db: db, policy: policy}
}

// Record appends an audit entry using tx, so the entry commits or rolls back
// with the mutation it describes.
func (s *auditService) Record(ctx context.Context, tx *gorm.DB, actor authz.Actor, action, resourceType, resourceID string, changes map[string]any) error {
	var changesJSON datatypes.JSON
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
			data = []byte("{}")
		}
		changesJSON = datatypes.JSON(data)
	}

	entry := &models.AuditLog{
		ActorID:      actor.ProfileID,
		ActorRole:    actor.Role,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    clientIPFrom(ctx),
		Changes:      changesJSON,
	}

	if err := tx.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"actor_id", actor.ProfileID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ListAuditLogs returns audit entries newest first.
func (s *auditService) ListAuditLogs(ctx context.Context, actor authz.Actor, page pagination.PageRequest, filter AuditFilter) (*pagination.PageResponse[models.AuditLog], error) {
	if err := s.policy.RequireNational(actor, models.PermAuditView); err != nil {
		return nil, err
	}
	page.Defaults()

	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if filter.ActorID != nil {
		q = q.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.Action != nil {
		q = q.Where("action = ?", *filter.Action)
	}
	if filter.ResourceType != nil {
		q = q.Where("resource_type = ?", *filter.ResourceType)
	}
	if filter.ResourceID != nil {
		q = q.Where("resource_id = ?", *filter.ResourceID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var logs []models.AuditLog
	if err := q.Scopes(pagination.Paginate(page)).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(logs, page.Page, page.PageSize, total)
	return &result, nil
}
