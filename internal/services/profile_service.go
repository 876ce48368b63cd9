package services

import (
	"context"

	"gorm.io/gorm"

	"treasury/internal/authz"
	"treasury/internal/database"
	apperrors "treasury/internal/errors"
	"treasury/internal/models"
)

// churchScopedRoles must belong to a church.
var churchScopedRoles = map[models.Role]bool{
	models.RolePastor:        true,
	models.RoleChurchManager: true,
	models.RoleSecretary:     true,
}

// profileService handles profiles, roles and fund director assignments.
type profileService struct {
	db     *gorm.DB
	policy *authz.Policy
	audit  AuditServicer
}

// NewProfileService creates a new ProfileServicer.
func NewProfileService(db *gorm.DB, policy *authz.Policy, audit AuditServicer) ProfileServicer {
	return &profileService{db: db, policy: policy, audit: audit}
}

// ResolveActor loads the caller identity for an authenticated profile.
func (s *profileService) ResolveActor(ctx context.Context, profileID string) (authz.Actor, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", profileID).Error; err != nil {
		if isNotFound(err) {
			return authz.Actor{}, apperrors.WithMessage(apperrors.ErrUnauthorized, "unknown profile")
		}
		return authz.Actor{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !profile.IsActive {
		return authz.Actor{}, apperrors.WithMessage(apperrors.ErrUnauthorized, "profile is inactive")
	}

	var assignments []models.FundDirectorAssignment
	if profile.Role == models.RoleFundDirector {
		if err := s.db.WithContext(ctx).Where("profile_id = ?", profile.ID).Find(&assignments).Error; err != nil {
			return authz.Actor{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return authz.Actor{
		ProfileID:   profile.ID,
		Role:        profile.Role,
		ChurchID:    profile.ChurchID,
		Assignments: assignments,
	}, nil
}

// GetProfile returns a profile. Anyone may read their own; others need roles.manage.
func (s *profileService) GetProfile(ctx context.Context, actor authz.Actor, profileID string) (*models.Profile, error) {
	if profileID != actor.ProfileID {
		if err := s.policy.RequireNational(actor, models.PermRolesManage); err != nil {
			return nil, err
		}
	}
	return findByID[models.Profile](s.db.WithContext(ctx), profileID, apperrors.ErrProfileNotFound)
}

// UpdateRole moves a profile to role. The hierarchy decides who may assign
// what; church-scoped roles need a church.
func (s *profileService) UpdateRole(ctx context.Context, actor authz.Actor, profileID string, role models.Role, churchID *string) (*models.Profile, error) {
	if err := s.policy.RequireNational(actor, models.PermRolesManage); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, apperrors.Validation("invalid role")
	}
	if profileID == actor.ProfileID {
		return nil, apperrors.WithMessage(apperrors.ErrPermissionDenied, "cannot change your own role")
	}

	var profile *models.Profile
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		profile, err = findByID[models.Profile](tx, profileID, apperrors.ErrProfileNotFound)
		if err != nil {
			return err
		}
		if !authz.CanAssignRole(actor.Role, profile.Role, role) {
			return apperrors.PermissionDenied(string(models.PermRolesManage))
		}

		newChurch := profile.ChurchID
		if churchID != nil {
			if _, err := findByID[models.Church](tx, *churchID, apperrors.ErrChurchNotFound); err != nil {
				return err
			}
			newChurch = churchID
		}
		if churchScopedRoles[role] && newChurch == nil {
			return apperrors.Validation("role " + string(role) + " requires a church")
		}

		previous := profile.Role
		if err := tx.Model(profile).Updates(map[string]any{"role": role, "church_id": newChurch}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		profile.Role = role
		profile.ChurchID = newChurch

		return s.audit.Record(ctx, tx, actor, ActionRoleUpdate, "profile", profile.ID, map[string]any{
			"previous_role": previous,
			"new_role":      role,
			"church_id":     newChurch,
		})
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// CreateAssignment binds a fund director to a fund, or to every fund when
// FundID is nil.
func (s *profileService) CreateAssignment(ctx context.Context, actor authz.Actor, input AssignmentInput) (*models.FundDirectorAssignment, error) {
	if err := s.policy.RequireNational(actor, models.PermAssignmentsManage); err != nil {
		return nil, err
	}

	assignment := &models.FundDirectorAssignment{
		ProfileID: input.ProfileID,
		FundID:    input.FundID,
		ChurchID:  input.ChurchID,
		CreatedBy: actor.ProfileID,
		Notes:     input.Notes,
	}

	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		profile, err := findByID[models.Profile](tx, input.ProfileID, apperrors.ErrProfileNotFound)
		if err != nil {
			return err
		}
		if profile.Role != models.RoleFundDirector {
			return apperrors.Validation("only fund directors can be assigned to funds")
		}
		if input.FundID != nil {
			if _, err := findByID[models.Fund](tx, *input.FundID, apperrors.ErrFundNotFound); err != nil {
				return err
			}
		}
		if input.ChurchID != nil {
			if _, err := findByID[models.Church](tx, *input.ChurchID, apperrors.ErrChurchNotFound); err != nil {
				return err
			}
		}

		dup := tx.Model(&models.FundDirectorAssignment{}).Where("profile_id = ?", input.ProfileID)
		if input.FundID == nil {
			dup = dup.Where("fund_id IS NULL")
		} else {
			dup = dup.Where("fund_id = ?", *input.FundID)
		}
		if input.ChurchID == nil {
			dup = dup.Where("church_id IS NULL")
		} else {
			dup = dup.Where("church_id = ?", *input.ChurchID)
		}
		var existing int64
		if err := dup.Count(&existing).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if existing > 0 {
			return apperrors.WithMessage(apperrors.ErrConflict, "assignment already exists")
		}

		if err := tx.Create(assignment).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(ctx, tx, actor, ActionAssignCreate, "assignment", assignment.ID, map[string]any{
			"profile_id": assignment.ProfileID,
			"fund_id":    assignment.FundID,
			"church_id":  assignment.ChurchID,
		})
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// DeleteAssignment removes a fund director assignment.
func (s *profileService) DeleteAssignment(ctx context.Context, actor authz.Actor, assignmentID string) error {
	if err := s.policy.RequireNational(actor, models.PermAssignmentsManage); err != nil {
		return err
	}

	return database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		assignment, err := findByID[models.FundDirectorAssignment](tx, assignmentID, apperrors.ErrAssignmentNotFound)
		if err != nil {
			return err
		}
		if err := tx.Delete(assignment).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(ctx, tx, actor, ActionAssignDelete, "assignment", assignment.ID, map[string]any{
			"profile_id": assignment.ProfileID,
			"fund_id":    assignment.FundID,
		})
	})
}

// ListAssignments lists assignments, optionally for one profile. Fund
// directors may list their own.
func (s *profileService) ListAssignments(ctx context.Context, actor authz.Actor, profileID *string) ([]models.FundDirectorAssignment, error) {
	own := profileID != nil && *profileID == actor.ProfileID
	if !own {
		if err := s.policy.RequireNational(actor, models.PermAssignmentsManage); err != nil {
			return nil, err
		}
	}

	q := s.db.WithContext(ctx).Model(&models.FundDirectorAssignment{})
	if profileID != nil {
		q = q.Where("profile_id = ?", *profileID)
	}
	var assignments []models.FundDirectorAssignment
	if err := q.Order("created_at ASC").Find(&assignments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return assignments, nil
}
