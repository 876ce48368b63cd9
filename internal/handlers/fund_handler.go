package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"treasury/internal/models"
	"treasury/internal/pagination"
	"treasury/internal/services"
)

// FundHandler handles fund metadata and fund-scoped ledger reads.
type FundHandler struct {
	fundService   services.FundServicer
	ledgerService services.LedgerServicer
}

// NewFundHandler creates a new FundHandler.
func NewFundHandler(fundService services.FundServicer, ledgerService services.LedgerServicer) *FundHandler {
	return &FundHandler{fundService: fundService, ledgerService: ledgerService}
}

// CreateFundRequest represents the request payload for creating a fund.
type CreateFundRequest struct {
	Name           string          `json:"name" binding:"required,max=200"`
	Type           models.FundType `json:"type" binding:"required,fund_type"`
	Description    string          `json:"description" binding:"max=1000"`
	InitialBalance int64           `json:"initial_balance" binding:"gte=0"`
}

// UpdateFundRequest represents the request payload for updating a fund.
type UpdateFundRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Type        *models.FundType `json:"type" binding:"omitempty,fund_type"`
	Description *string          `json:"description" binding:"omitempty,max=1000"`
}

// ReleaseHoldRequest represents an administrator's resolution of an integrity hold.
type ReleaseHoldRequest struct {
	Note   string `json:"note" binding:"required,max=1000"`
	Resync bool   `json:"resync"`
}

// CreateFund handles fund creation
// @Summary     Create a fund
// @Description Create a fund. A positive initial balance is recorded as an opening transaction.
// @Tags        funds
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateFundRequest true "Fund details"
// @Success     201 {object} models.Fund "Fund created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     409 {object} ErrorResponse "Name already in use"
// @Router      /funds [post]
func (h *FundHandler) CreateFund(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateFundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	fund, err := h.fundService.CreateFund(c.Request.Context(), actor, services.CreateFundInput{
		Name:           req.Name,
		Type:           req.Type,
		Description:    req.Description,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"fund": fund})
}

// ListFunds handles fund listing
// @Summary     List funds
// @Description List the funds visible to the caller
// @Tags        funds
// @Produce     json
// @Security    BearerAuth
// @Param       include_inactive query bool false "Include deactivated funds"
// @Param       page             query int  false "Page number (default 1)"
// @Param       page_size        query int  false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Fund] "Paginated funds"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /funds [get]
func (h *FundHandler) ListFunds(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.fundService.ListFunds(c.Request.Context(), actor, c.Query("include_inactive") == "true", page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetFund handles retrieval of a single fund
// @Summary     Get a fund
// @Tags        funds
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Fund ID"
// @Success     200 {object} models.Fund
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     404 {object} ErrorResponse "Fund not found"
// @Router      /funds/{id} [get]
func (h *FundHandler) GetFund(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	fundID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	fund, err := h.fundService.GetFund(c.Request.Context(), actor, fundID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fund": fund})
}

// UpdateFund handles fund metadata updates
// @Summary     Update a fund
// @Description Change name, type or description. The balance is never changed here.
// @Tags        funds
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Fund ID"
// @Param       request body UpdateFundRequest true "Changes"
// @Success     200 {object} models.Fund
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     404 {object} ErrorResponse "Fund not found"
// @Router      /funds/{id} [put]
func (h *FundHandler) UpdateFund(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	fundID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateFundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	fund, err := h.fundService.UpdateFund(c.Request.Context(), actor, fundID, services.UpdateFundInput{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fund": fund})
}

// DeactivateFund handles fund deactivation
// @Summary     Deactivate a fund
// @Tags        funds
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Fund ID"
// @Success     200 {object} models.Fund
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     404 {object} ErrorResponse "Fund not found"
// @Router      /funds/{id}/deactivate [post]
func (h *FundHandler) DeactivateFund(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	fundID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	fund, err := h.fundService.DeactivateFund(c.Request.Context(), actor, fundID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fund": fund})
}

// ReleaseHold handles release of an integrity hold
// @Summary     Release an integrity hold
// @Description Lift the hold placed by a failed reconciliation, optionally resetting the stored balance to the ledger balance.
// @Tags        funds
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Fund ID"
// @Param       request body ReleaseHoldRequest true "Resolution"
// @Success     200 {object} models.Fund
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     409 {object} ErrorResponse "Fund is not on hold"
// @Router      /funds/{id}/release-hold [post]
func (h *FundHandler) ReleaseHold(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	fundID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ReleaseHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	fund, err := h.ledgerService.ReleaseHold(c.Request.Context(), actor, fundID, services.ReleaseHoldInput{Note: req.Note, Resync: req.Resync})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fund": fund})
}

// ListFundTransactions handles listing of a fund's transactions
// @Summary     List fund transactions
// @Description Transactions touching the fund, including incoming transfers, newest first
// @Tags        funds,transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Fund ID"
// @Param       from_date query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date   query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Param       church_id query string false "Filter by church"
// @Param       event_id  query string false "Filter by event"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Posting]
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Router      /funds/{id}/transactions [get]
func (h *FundHandler) ListFundTransactions(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	fundID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	filter, err := parsePostingFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.ledgerService.ListPostings(c.Request.Context(), actor, fundID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListFundMovements handles listing of a fund's balance movements
// @Summary     List fund balance movements
// @Tags        funds
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Fund ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.FundMovement]
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Router      /funds/{id}/movements [get]
func (h *FundHandler) ListFundMovements(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	fundID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.ledgerService.ListMovements(c.Request.Context(), actor, fundID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ReconcileFund handles a reconciliation check
// @Summary     Reconcile a fund
// @Description Compare the stored balance with the sum of the fund's transactions. A mismatch places the fund on integrity hold.
// @Tags        funds
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Fund ID"
// @Success     200 {object} services.ReconcileResult
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     404 {object} ErrorResponse "Fund not found"
// @Router      /funds/{id}/reconcile [get]
func (h *FundHandler) ReconcileFund(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	fundID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.ledgerService.Reconcile(c.Request.Context(), actor, fundID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parsePostingFilter(c *gin.Context) (services.PostingFilter, error) {
	var filter services.PostingFilter
	var err error

	from, to := c.Query("from_date"), c.Query("to_date")
	if filter.FromDate, err = optionalDate(&from); err != nil {
		return filter, err
	}
	if filter.ToDate, err = optionalDate(&to); err != nil {
		return filter, err
	}
	if filter.ChurchID, err = optionalUUID(c, "church_id"); err != nil {
		return filter, err
	}
	if filter.EventID, err = optionalUUID(c, "event_id"); err != nil {
		return filter, err
	}
	return filter, nil
}
