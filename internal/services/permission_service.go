package services

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"treasury/internal/authz"
	apperrors "treasury/internal/errors"
	"treasury/internal/logger"
	"treasury/internal/models"
)

// permissionService stores the role permission table.
type permissionService struct {
	db *gorm.DB
}

// NewPermissionService creates a new PermissionServicer.
func NewPermissionService(db *gorm.DB) PermissionServicer {
	return &permissionService{db: db}
}

// Seed inserts the default grants. Existing rows keep their scope unless an
// override names their role, so edits made by the admin tool survive restarts.
func (s *permissionService) Seed(ctx context.Context, overrides map[models.Role]models.Scope) error {
	rows := authz.DefaultPermissions(overrides)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "role"}, {Name: "permission"}},
			DoNothing: true,
		}).Create(&rows).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		for role, scope := range overrides {
			if err := tx.Model(&models.RolePermission{}).
				Where("role = ?", role).
				Update("scope", scope).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			logger.Get().Infow("applied role scope override", "role", role, "scope", scope)
		}
		return nil
	})
}

// List returns the permission table ordered by role and permission.
func (s *permissionService) List(ctx context.Context) ([]models.RolePermission, error) {
	var rows []models.RolePermission
	if err := s.db.WithContext(ctx).Order("role ASC, permission ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rows, nil
}

// LoadPolicy builds the authorization policy from the stored table.
func (s *permissionService) LoadPolicy(ctx context.Context) (*authz.Policy, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return authz.NewPolicy(rows), nil
}
