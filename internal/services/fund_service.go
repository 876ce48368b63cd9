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

const openingConcept = "Saldo inicial"

// fundService handles fund metadata.
type fundService struct {
	db     *gorm.DB
	policy *authz.Policy
	ledger LedgerServicer
	audit  AuditServicer
}

// NewFundService creates a new FundServicer.
func NewFundService(db *gorm.DB, policy *authz.Policy, ledger LedgerServicer, audit AuditServicer) FundServicer {
	return &fundService{db: db, policy: policy, ledger: ledger, audit: audit}
}

// CreateFund creates a fund. A non-zero initial balance is recorded as an
// opening posting so the ledger accounts for it.
func (s *fundService) CreateFund(ctx context.Context, actor authz.Actor, input CreateFundInput) (*models.Fund, error) {
	if err := s.policy.RequireNational(actor, models.PermFundsManage); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, apperrors.Validation("name is required")
	}
	if !input.Type.IsValid() {
		return nil, apperrors.Validation("invalid fund type")
	}
	if input.InitialBalance < 0 {
		return nil, apperrors.Validation("initial balance must not be negative")
	}

	fund := &models.Fund{
		Name:        input.Name,
		Type:        input.Type,
		Description: input.Description,
		IsActive:    true,
		CreatedBy:   actor.ProfileID,
	}

	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Fund{}).Where("name = ?", fund.Name).Count(&existing).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if existing > 0 {
			return apperrors.WithMessage(apperrors.ErrConflict, "a fund with this name already exists")
		}
		if err := tx.Create(fund).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if input.InitialBalance > 0 {
			opening := &models.Posting{FundID: fund.ID, Concept: openingConcept, AmountIn: input.InitialBalance}
			if err := s.ledger.PostInTx(tx, actor, opening, "opening balance"); err != nil {
				return err
			}
			fund.CurrentBalance = opening.BalanceAfter
		}

		return s.audit.Record(ctx, tx, actor, ActionFundCreate, "fund", fund.ID, map[string]any{
			"name":            fund.Name,
			"type":            fund.Type,
			"initial_balance": input.InitialBalance,
		})
	})
	if err != nil {
		return nil, err
	}
	return fund, nil
}

// GetFund returns a fund visible to actor.
func (s *fundService) GetFund(ctx context.Context, actor authz.Actor, fundID string) (*models.Fund, error) {
	if err := s.policy.Require(actor, models.PermFundsView, authz.Fund(fundID, nil)); err != nil {
		return nil, err
	}
	return findByID[models.Fund](s.db.WithContext(ctx), fundID, apperrors.ErrFundNotFound)
}

// ListFunds returns the funds actor may see, by name.
func (s *fundService) ListFunds(ctx context.Context, actor authz.Actor, includeInactive bool, page pagination.PageRequest) (*pagination.PageResponse[models.Fund], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Fund{}).
		Scopes(visibleFunds(s.policy.VisibilityFor(actor, models.PermFundsView)))
	if !includeInactive {
		base = base.Where("is_active = ?", true)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var funds []models.Fund
	if err := base.Scopes(pagination.Paginate(page)).Order("name ASC").Find(&funds).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(funds, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateFund changes fund metadata. The balance is never touched here.
func (s *fundService) UpdateFund(ctx context.Context, actor authz.Actor, fundID string, input UpdateFundInput) (*models.Fund, error) {
	if err := s.policy.RequireNational(actor, models.PermFundsManage); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.Validation("name must not be empty")
		}
		updates["name"] = name
	}
	if input.Type != nil {
		if !input.Type.IsValid() {
			return nil, apperrors.Validation("invalid fund type")
		}
		updates["type"] = *input.Type
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}

	var fund *models.Fund
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		fund, err = findByID[models.Fund](tx, fundID, apperrors.ErrFundNotFound)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if name, ok := updates["name"]; ok {
			var clash int64
			if err := tx.Model(&models.Fund{}).Where("name = ? AND id <> ?", name, fundID).Count(&clash).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if clash > 0 {
				return apperrors.WithMessage(apperrors.ErrConflict, "a fund with this name already exists")
			}
		}
		if err := tx.Model(fund).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(ctx, tx, actor, ActionFundUpdate, "fund", fund.ID, updates)
	})
	if err != nil {
		return nil, err
	}
	return findByID[models.Fund](s.db.WithContext(ctx), fundID, apperrors.ErrFundNotFound)
}

// DeactivateFund stops a fund from accepting postings. Funds are never deleted.
func (s *fundService) DeactivateFund(ctx context.Context, actor authz.Actor, fundID string) (*models.Fund, error) {
	if err := s.policy.RequireNational(actor, models.PermFundsManage); err != nil {
		return nil, err
	}

	var fund *models.Fund
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		fund, err = s.ledger.LockFund(tx, fundID)
		if err != nil {
			return err
		}
		if !fund.IsActive {
			return nil
		}
		if err := tx.Model(fund).Update("is_active", false).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		fund.IsActive = false
		return s.audit.Record(ctx, tx, actor, ActionFundDeactivate, "fund", fund.ID, map[string]any{
			"balance": fund.CurrentBalance,
		})
	})
	if err != nil {
		return nil, err
	}
	return fund, nil
}
