package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
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
	"treasury/internal/uuid"
)

// ledgerService maintains fund balances from postings.
type ledgerService struct {
	db     *gorm.DB
	policy *authz.Policy
	audit  AuditServicer
}

// NewLedgerService creates a new LedgerServicer.
func NewLedgerService(db *gorm.DB, policy *authz.Policy, audit AuditServicer) LedgerServicer {
	return &ledgerService{db: db, policy: policy, audit: audit}
}

// Post records a manual inflow or outflow on a fund.
func (s *ledgerService) Post(ctx context.Context, actor authz.Actor, input PostingInput) (*models.Posting, error) {
	input.Concept = strings.TrimSpace(input.Concept)
	if input.FundID == "" {
		return nil, apperrors.Validation("fund_id is required")
	}
	if input.Concept == "" {
		return nil, apperrors.Validation("concept is required")
	}
	if err := validateAmounts(input.AmountIn, input.AmountOut); err != nil {
		return nil, err
	}
	if err := s.policy.Require(actor, models.PermTransactionsCreate, authz.Fund(input.FundID, input.ChurchID)); err != nil {
		return nil, err
	}

	posting := &models.Posting{
		Date:           input.Date,
		FundID:         input.FundID,
		ChurchID:       input.ChurchID,
		Concept:        input.Concept,
		Provider:       input.Provider,
		DocumentNumber: input.DocumentNumber,
		AmountIn:       input.AmountIn,
		AmountOut:      input.AmountOut,
	}

	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.PostInTx(tx, actor, posting, "posting"); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionPostingCreate, "posting", posting.ID, map[string]any{
			"fund_id":       posting.FundID,
			"amount_in":     posting.AmountIn,
			"amount_out":    posting.AmountOut,
			"balance_after": posting.BalanceAfter,
		})
	})
	if err != nil {
		return nil, err
	}
	return posting, nil
}

// Transfer moves amount from one fund to another as a single posting with
// two balance effects.
func (s *ledgerService) Transfer(ctx context.Context, actor authz.Actor, input TransferInput) (*models.Posting, error) {
	input.Concept = strings.TrimSpace(input.Concept)
	if input.FromFundID == "" || input.ToFundID == "" {
		return nil, apperrors.Validation("from_fund_id and to_fund_id are required")
	}
	if input.FromFundID == input.ToFundID {
		return nil, apperrors.ErrSameFundTransfer
	}
	if input.Amount <= 0 {
		return nil, apperrors.Validation("amount must be greater than zero")
	}
	if input.Concept == "" {
		input.Concept = "Transferencia entre fondos"
	}
	for _, fundID := range []string{input.FromFundID, input.ToFundID} {
		if err := s.policy.Require(actor, models.PermTransactionsCreate, authz.Fund(fundID, nil)); err != nil {
			return nil, err
		}
	}

	destination := input.ToFundID
	posting := &models.Posting{
		Date:              input.Date,
		FundID:            input.FromFundID,
		DestinationFundID: &destination,
		Concept:           input.Concept,
		AmountOut:         input.Amount,
	}

	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.PostInTx(tx, actor, posting, "transfer"); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionPostingTransfer, "posting", posting.ID, map[string]any{
			"from_fund_id": input.FromFundID,
			"to_fund_id":   input.ToFundID,
			"amount":       input.Amount,
		})
	})
	if err != nil {
		return nil, err
	}
	return posting, nil
}

// PostInTx applies the posting's balance effects and inserts it.
func (s *ledgerService) PostInTx(tx *gorm.DB, actor authz.Actor, posting *models.Posting, reason string) error {
	if posting.ID == "" {
		posting.ID = uuid.New()
	}
	if posting.Date.IsZero() {
		posting.Date = time.Now()
	}
	posting.CreatedBy = actor.ProfileID

	balances, err := s.applyEffects(tx, actor, posting.Effects(), &posting.ID, posting.EventID, reason)
	if err != nil {
		return err
	}
	posting.BalanceAfter = balances[posting.FundID]

	if err := tx.Create(posting).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Correct rewrites a posting and moves every affected fund by the difference
// between the new and the old effects.
func (s *ledgerService) Correct(ctx context.Context, actor authz.Actor, postingID string, input CorrectionInput) (*models.Posting, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, apperrors.Validation("a correction reason is required")
	}

	current, err := findByID[models.Posting](s.db.WithContext(ctx), postingID, apperrors.ErrPostingNotFound)
	if err != nil {
		return nil, err
	}
	if err := s.requireManage(actor, current); err != nil {
		return nil, err
	}
	if input.FundID != nil {
		if err := s.policy.Require(actor, models.PermTransactionsManage, authz.Fund(*input.FundID, current.ChurchID)); err != nil {
			return nil, err
		}
	}

	var updated models.Posting
	err = database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		old, err := lockPosting(tx, postingID)
		if err != nil {
			return err
		}

		updated = *old
		if input.FundID != nil {
			updated.FundID = *input.FundID
		}
		if input.Date != nil {
			updated.Date = *input.Date
		}
		if input.Concept != nil {
			updated.Concept = strings.TrimSpace(*input.Concept)
		}
		if input.AmountIn != nil {
			updated.AmountIn = *input.AmountIn
		}
		if input.AmountOut != nil {
			updated.AmountOut = *input.AmountOut
		}
		if err := validateCorrection(&updated); err != nil {
			return err
		}

		diff := make(map[string]int64)
		for fundID, effect := range updated.Effects() {
			diff[fundID] += effect
		}
		for fundID, effect := range old.Effects() {
			diff[fundID] -= effect
		}

		balances, err := s.applyEffects(tx, actor, diff, &old.ID, old.EventID, "correction: "+reason)
		if err != nil {
			return err
		}
		updated.BalanceAfter = balances[updated.FundID]

		if err := tx.Save(&updated).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(ctx, tx, actor, ActionPostingCorrect, "posting", old.ID, map[string]any{
			"reason": reason,
			"before": postingSnapshot(old),
			"after":  postingSnapshot(&updated),
		})
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeletePosting removes a posting and reverses its effects.
func (s *ledgerService) DeletePosting(ctx context.Context, actor authz.Actor, postingID string, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperrors.Validation("a deletion reason is required")
	}

	current, err := findByID[models.Posting](s.db.WithContext(ctx), postingID, apperrors.ErrPostingNotFound)
	if err != nil {
		return err
	}
	if err := s.requireManage(actor, current); err != nil {
		return err
	}

	return database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		old, err := lockPosting(tx, postingID)
		if err != nil {
			return err
		}

		reversal := make(map[string]int64)
		for fundID, effect := range old.Effects() {
			reversal[fundID] = -effect
		}
		if _, err := s.applyEffects(tx, actor, reversal, &old.ID, old.EventID, "deletion: "+reason); err != nil {
			return err
		}

		if err := tx.Delete(old).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(ctx, tx, actor, ActionPostingDelete, "posting", old.ID, map[string]any{
			"reason": reason,
			"before": postingSnapshot(old),
		})
	})
}

// GetPosting returns one posting visible to actor.
func (s *ledgerService) GetPosting(ctx context.Context, actor authz.Actor, postingID string) (*models.Posting, error) {
	posting, err := findByID[models.Posting](s.db.WithContext(ctx), postingID, apperrors.ErrPostingNotFound)
	if err != nil {
		return nil, err
	}

	if s.policy.CanAccess(actor, models.PermTransactionsView, authz.Fund(posting.FundID, posting.ChurchID)) {
		return posting, nil
	}
	if posting.IsTransfer() && s.policy.CanAccess(actor, models.PermTransactionsView, authz.Fund(*posting.DestinationFundID, posting.ChurchID)) {
		return posting, nil
	}
	return nil, apperrors.PermissionDenied(string(models.PermTransactionsView))
}

// ListPostings returns postings that move a fund, newest first.
func (s *ledgerService) ListPostings(ctx context.Context, actor authz.Actor, fundID string, page pagination.PageRequest, filter PostingFilter) (*pagination.PageResponse[models.Posting], error) {
	if err := s.policy.Require(actor, models.PermTransactionsView, authz.Fund(fundID, nil)); err != nil {
		return nil, err
	}
	if _, err := findByID[models.Fund](s.db.WithContext(ctx), fundID, apperrors.ErrFundNotFound); err != nil {
		return nil, err
	}

	page.Defaults()

	churchIDs, all := fundLedgerChurches(s.policy.VisibilityFor(actor, models.PermTransactionsView), fundID)
	base := s.db.WithContext(ctx).Model(&models.Posting{}).
		Where("(fund_id = ? OR destination_fund_id = ?)", fundID, fundID).
		Scopes(churchNarrowed("church_id", churchIDs, all))
	base = applyPostingFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var postings []models.Posting
	if err := base.Scopes(pagination.Paginate(page), pagination.Sorted(page, "date", "created_at")).
		Find(&postings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(postings, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyPostingFilters(q *gorm.DB, f PostingFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.ChurchID != nil {
		q = q.Where("church_id = ?", *f.ChurchID)
	}
	if f.EventID != nil {
		q = q.Where("event_id = ?", *f.EventID)
	}
	return q
}

// ListMovements returns the balance history of a fund, newest first.
func (s *ledgerService) ListMovements(ctx context.Context, actor authz.Actor, fundID string, page pagination.PageRequest) (*pagination.PageResponse[models.FundMovement], error) {
	if err := s.policy.Require(actor, models.PermTransactionsView, authz.Fund(fundID, nil)); err != nil {
		return nil, err
	}
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.FundMovement{}).Where("fund_id = ?", fundID)
	// A church-narrowed reader sees movements of its churches' postings and
	// the fund-level ones, such as resyncs, that have no posting.
	if churchIDs, all := fundLedgerChurches(s.policy.VisibilityFor(actor, models.PermTransactionsView), fundID); !all {
		postings := s.db.WithContext(ctx).Model(&models.Posting{}).Select("id").
			Scopes(churchNarrowed("church_id", churchIDs, false))
		base = base.Where("(posting_id IS NULL OR posting_id IN (?))", postings)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var movements []models.FundMovement
	if err := base.Scopes(pagination.Paginate(page), pagination.Sorted(page, "created_at")).Find(&movements).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(movements, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// Reconcile recomputes a fund's balance from its full posting history. It
// never changes the balance; a mismatch places the fund on integrity hold.
func (s *ledgerService) Reconcile(ctx context.Context, actor authz.Actor, fundID string) (*ReconcileResult, error) {
	if err := s.policy.Require(actor, models.PermReconcile, authz.Fund(fundID, nil)); err != nil {
		return nil, err
	}
	return s.reconcileFund(ctx, actor, fundID)
}

// ReconcileAll reconciles every fund.
func (s *ledgerService) ReconcileAll(ctx context.Context, actor authz.Actor) ([]ReconcileResult, error) {
	if err := s.policy.RequireNational(actor, models.PermReconcile); err != nil {
		return nil, err
	}

	var fundIDs []string
	if err := s.db.WithContext(ctx).Model(&models.Fund{}).Order("name").Pluck("id", &fundIDs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	results := make([]ReconcileResult, 0, len(fundIDs))
	for _, fundID := range fundIDs {
		result, err := s.reconcileFund(ctx, actor, fundID)
		if err != nil {
			return results, err
		}
		results = append(results, *result)
	}
	return results, nil
}

func (s *ledgerService) reconcileFund(ctx context.Context, actor authz.Actor, fundID string) (*ReconcileResult, error) {
	var result *ReconcileResult
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		// The lock waits out in-flight postings so both reads see the same history.
		fund, err := s.LockFund(tx, fundID)
		if err != nil {
			return err
		}
		computed, count, err := ledgerBalance(tx, fundID)
		if err != nil {
			return err
		}

		result = &ReconcileResult{
			FundID:          fund.ID,
			FundName:        fund.Name,
			StoredBalance:   fund.CurrentBalance,
			ComputedBalance: computed,
			Difference:      fund.CurrentBalance - computed,
			Matches:         fund.CurrentBalance == computed,
			PostingCount:    count,
			OnHold:          fund.IntegrityHold,
			CheckedAt:       time.Now(),
		}
		if result.Matches || fund.IntegrityHold {
			return nil
		}

		now := time.Now()
		reason := fmt.Sprintf("reconciliation mismatch: stored %d, ledger %d", fund.CurrentBalance, computed)
		if err := tx.Model(fund).Updates(map[string]any{
			"integrity_hold": true,
			"hold_reason":    reason,
			"held_at":        now,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		result.OnHold = true
		return s.audit.Record(ctx, tx, actor, ActionFundHold, "fund", fund.ID, map[string]any{
			"stored_balance":   fund.CurrentBalance,
			"computed_balance": computed,
		})
	})
	if err != nil {
		return nil, err
	}

	if !result.Matches {
		logger.LogError(apperrors.IntegrityViolation(result.FundID, result.StoredBalance, result.ComputedBalance),
			"fund balance does not match ledger",
			"fund_id", result.FundID,
			"fund_name", result.FundName,
			"difference", result.Difference,
		)
	}
	return result, nil
}

// ReleaseHold lifts an integrity hold. Only the top role may release, and
// only once the balance matches the ledger or the administrator asks for
// the stored balance to be resynchronized.
func (s *ledgerService) ReleaseHold(ctx context.Context, actor authz.Actor, fundID string, input ReleaseHoldInput) (*models.Fund, error) {
	if actor.Role != authz.TopRole {
		return nil, apperrors.PermissionDenied(string(models.PermReconcile))
	}
	if err := s.policy.Require(actor, models.PermReconcile, authz.Fund(fundID, nil)); err != nil {
		return nil, err
	}
	note := strings.TrimSpace(input.Note)
	if note == "" {
		return nil, apperrors.Validation("a note explaining the resolution is required")
	}

	var fund *models.Fund
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		fund, err = s.LockFund(tx, fundID)
		if err != nil {
			return err
		}
		if !fund.IntegrityHold {
			return apperrors.WithMessage(apperrors.ErrConflict, "fund is not on integrity hold")
		}

		computed, _, err := ledgerBalance(tx, fundID)
		if err != nil {
			return err
		}
		stored := fund.CurrentBalance
		if stored != computed {
			if !input.Resync || computed < 0 {
				return apperrors.IntegrityViolation(fund.ID, stored, computed)
			}
			movement := &models.FundMovement{
				FundID:          fund.ID,
				PreviousBalance: stored,
				Delta:           computed - stored,
				NewBalance:      computed,
				Reason:          "resync: " + note,
				RecordedBy:      actor.ProfileID,
			}
			if err := tx.Create(movement).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			fund.CurrentBalance = computed
		}

		if err := tx.Model(fund).Updates(map[string]any{
			"current_balance": fund.CurrentBalance,
			"integrity_hold":  false,
			"hold_reason":     "",
			"held_at":         nil,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		fund.IntegrityHold = false
		fund.HoldReason = ""
		fund.HeldAt = nil

		return s.audit.Record(ctx, tx, actor, ActionFundRelease, "fund", fund.ID, map[string]any{
			"note":             note,
			"stored_balance":   stored,
			"computed_balance": computed,
			"resynced":         stored != computed,
		})
	})
	if err != nil {
		return nil, err
	}
	return fund, nil
}

// LockFund loads a fund with FOR UPDATE.
func (s *ledgerService) LockFund(tx *gorm.DB, fundID string) (*models.Fund, error) {
	var fund models.Fund
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&fund, "id = ?", fundID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFundNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &fund, nil
}

// applyEffects moves each fund in effects by its delta. Funds are locked in
// id order so concurrent writers touching the same pair cannot deadlock. It
// returns the resulting balance of every fund named in effects.
func (s *ledgerService) applyEffects(tx *gorm.DB, actor authz.Actor, effects map[string]int64, postingID, eventID *string, reason string) (map[string]int64, error) {
	fundIDs := make([]string, 0, len(effects))
	for fundID := range effects {
		fundIDs = append(fundIDs, fundID)
	}
	sort.Strings(fundIDs)

	balances := make(map[string]int64, len(fundIDs))
	for _, fundID := range fundIDs {
		fund, err := s.LockFund(tx, fundID)
		if err != nil {
			return nil, err
		}
		if fund.IntegrityHold {
			return nil, apperrors.WithDetails(apperrors.ErrIntegrityViolation,
				fmt.Sprintf("fund %s is on integrity hold: %s", fund.ID, fund.HoldReason),
				map[string]any{"fund_id": fund.ID})
		}

		delta := effects[fundID]
		if delta == 0 {
			balances[fundID] = fund.CurrentBalance
			continue
		}
		if !fund.IsActive {
			return nil, apperrors.WithMessage(apperrors.ErrFundInactive, fmt.Sprintf("fund %s is inactive", fund.Name))
		}

		newBalance := fund.CurrentBalance + delta
		if newBalance < 0 {
			return nil, apperrors.InsufficientFunds(fund.ID, fund.CurrentBalance, -delta)
		}

		if err := tx.Model(fund).Update("current_balance", newBalance).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		movement := &models.FundMovement{
			FundID:          fund.ID,
			PostingID:       postingID,
			EventID:         eventID,
			PreviousBalance: fund.CurrentBalance,
			Delta:           delta,
			NewBalance:      newBalance,
			Reason:          reason,
			RecordedBy:      actor.ProfileID,
		}
		if err := tx.Create(movement).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		balances[fundID] = newBalance
	}
	return balances, nil
}

// ledgerBalance sums every posting that references fundID.
func ledgerBalance(tx *gorm.DB, fundID string) (balance int64, count int64, err error) {
	type sums struct {
		Net   int64
		Count int64
	}
	var source, destination sums
	if err := tx.Model(&models.Posting{}).
		Select("CAST(COALESCE(SUM(amount_in - amount_out), 0) AS BIGINT) AS net, COUNT(*) AS count").
		Where("fund_id = ?", fundID).
		Scan(&source).Error; err != nil {
		return 0, 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := tx.Model(&models.Posting{}).
		Select("CAST(COALESCE(SUM(amount_out), 0) AS BIGINT) AS net, COUNT(*) AS count").
		Where("destination_fund_id = ?", fundID).
		Scan(&destination).Error; err != nil {
		return 0, 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return source.Net + destination.Net, source.Count + destination.Count, nil
}

func lockPosting(tx *gorm.DB, postingID string) (*models.Posting, error) {
	var posting models.Posting
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&posting, "id = ?", postingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPostingNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &posting, nil
}

func (s *ledgerService) requireManage(actor authz.Actor, posting *models.Posting) error {
	if err := s.policy.Require(actor, models.PermTransactionsManage, authz.Fund(posting.FundID, posting.ChurchID)); err != nil {
		return err
	}
	if posting.IsTransfer() {
		return s.policy.Require(actor, models.PermTransactionsManage, authz.Fund(*posting.DestinationFundID, posting.ChurchID))
	}
	return nil
}

// validateAmounts enforces that a posting moves money one way only.
func validateAmounts(amountIn, amountOut int64) error {
	if amountIn < 0 || amountOut < 0 {
		return apperrors.Validation("amounts must not be negative")
	}
	if amountIn == 0 && amountOut == 0 {
		return apperrors.Validation("one of amount_in or amount_out must be greater than zero")
	}
	if amountIn > 0 && amountOut > 0 {
		return apperrors.Validation("a posting is either an inflow or an outflow, not both")
	}
	return nil
}

func validateCorrection(p *models.Posting) error {
	if p.Concept == "" {
		return apperrors.Validation("concept is required")
	}
	if err := validateAmounts(p.AmountIn, p.AmountOut); err != nil {
		return err
	}
	if p.IsTransfer() {
		if p.AmountIn != 0 {
			return apperrors.Validation("a transfer only carries amount_out")
		}
		if *p.DestinationFundID == p.FundID {
			return apperrors.ErrSameFundTransfer
		}
	}
	return nil
}

func postingSnapshot(p *models.Posting) map[string]any {
	snapshot := map[string]any{
		"fund_id":    p.FundID,
		"date":       p.Date,
		"concept":    p.Concept,
		"amount_in":  p.AmountIn,
		"amount_out": p.AmountOut,
	}
	if p.IsTransfer() {
		snapshot["destination_fund_id"] = *p.DestinationFundID
	}
	return snapshot
}
