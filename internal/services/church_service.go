package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"treasury/internal/authz"
	"treasury/internal/database"
	apperrors "treasury/internal/errors"
	"treasury/internal/models"
	"treasury/internal/pagination"
)

// churchService handles church reference data.
type churchService struct {
	db     *gorm.DB
	policy *authz.Policy
	audit  AuditServicer
}

// NewChurchService creates a new ChurchServicer.
func NewChurchService(db *gorm.DB, policy *authz.Policy, audit AuditServicer) ChurchServicer {
	return &churchService{db: db, policy: policy, audit: audit}
}

// CreateChurch registers a church.
func (s *churchService) CreateChurch(ctx context.Context, actor authz.Actor, input ChurchInput) (*models.Church, error) {
	if err := s.policy.RequireNational(actor, models.PermChurchesManage); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	input.City = strings.TrimSpace(input.City)
	if input.Name == "" || input.City == "" {
		return nil, apperrors.Validation("name and city are required")
	}

	church := &models.Church{
		Name:       input.Name,
		City:       input.City,
		PastorName: input.PastorName,
		Phone:      input.Phone,
		IsActive:   true,
	}
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Church{}).Where("name = ?", church.Name).Count(&existing).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if existing > 0 {
			return apperrors.WithMessage(apperrors.ErrConflict, "a church with this name already exists")
		}
		if err := tx.Create(church).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(ctx, tx, actor, ActionChurchCreate, "church", church.ID, map[string]any{"name": church.Name})
	})
	if err != nil {
		return nil, err
	}
	return church, nil
}

// GetChurch returns a church visible to actor.
func (s *churchService) GetChurch(ctx context.Context, actor authz.Actor, churchID string) (*models.Church, error) {
	if err := s.policy.Require(actor, models.PermChurchesView, authz.Church(churchID)); err != nil {
		return nil, err
	}
	return findByID[models.Church](s.db.WithContext(ctx), churchID, apperrors.ErrChurchNotFound)
}

// ListChurches returns the churches actor may see, by name.
func (s *churchService) ListChurches(ctx context.Context, actor authz.Actor, page pagination.PageRequest) (*pagination.PageResponse[models.Church], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Church{}).
		Scopes(visibleChurchRows(s.policy.VisibilityFor(actor, models.PermChurchesView), "id"))

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var churches []models.Church
	if err := base.Scopes(pagination.Paginate(page)).Order("name ASC").Find(&churches).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(churches, page.Page, page.PageSize, totalItems)
	return &result, nil
}
