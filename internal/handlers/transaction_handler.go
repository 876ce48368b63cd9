package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"treasury/internal/services"
)

// TransactionHandler handles ledger postings.
type TransactionHandler struct {
	ledgerService services.LedgerServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(ledgerService services.LedgerServicer) *TransactionHandler {
	return &TransactionHandler{ledgerService: ledgerService}
}

// CreateTransactionRequest represents the request payload for a manual posting.
// Exactly one of amount_in and amount_out must be positive.
type CreateTransactionRequest struct {
	FundID         string  `json:"fund_id" binding:"required,uuid"`
	ChurchID       *string `json:"church_id" binding:"omitempty,uuid"`
	Date           *string `json:"date"`
	Concept        string  `json:"concept" binding:"required,max=500"`
	Provider       string  `json:"provider" binding:"max=200"`
	DocumentNumber string  `json:"document_number" binding:"max=100"`
	AmountIn       int64   `json:"amount_in" binding:"gte=0"`
	AmountOut      int64   `json:"amount_out" binding:"gte=0"`
}

// CreateTransferRequest represents the request payload for a transfer between funds.
type CreateTransferRequest struct {
	FromFundID string  `json:"from_fund_id" binding:"required,uuid"`
	ToFundID   string  `json:"to_fund_id" binding:"required,uuid"`
	Amount     int64   `json:"amount" binding:"required,gt=0"`
	Date       *string `json:"date"`
	Concept    string  `json:"concept" binding:"max=500"`
}

// CorrectTransactionRequest represents an administrative correction.
type CorrectTransactionRequest struct {
	FundID    *string `json:"fund_id" binding:"omitempty,uuid"`
	Date      *string `json:"date"`
	Concept   *string `json:"concept" binding:"omitempty,min=1,max=500"`
	AmountIn  *int64  `json:"amount_in" binding:"omitempty,gte=0"`
	AmountOut *int64  `json:"amount_out" binding:"omitempty,gte=0"`
	Reason    string  `json:"reason" binding:"required,max=1000"`
}

// DeleteTransactionRequest carries the reason for an administrative delete.
type DeleteTransactionRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

func dateOrNow(s *string) (time.Time, error) {
	d, err := optionalDate(s)
	if err != nil {
		return time.Time{}, err
	}
	if d == nil {
		return time.Now(), nil
	}
	return *d, nil
}

// CreateTransaction handles a manual posting
// @Summary     Create a transaction
// @Description Record income or expense against a fund
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Posting "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     409 {object} ErrorResponse "Fund inactive or on integrity hold"
// @Failure     422 {object} ErrorResponse "Insufficient funds"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	date, err := dateOrNow(req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	posting, err := h.ledgerService.Post(c.Request.Context(), actor, services.PostingInput{
		FundID:         req.FundID,
		ChurchID:       req.ChurchID,
		Date:           date,
		Concept:        req.Concept,
		Provider:       req.Provider,
		DocumentNumber: req.DocumentNumber,
		AmountIn:       req.AmountIn,
		AmountOut:      req.AmountOut,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": posting})
}

// CreateTransfer handles a transfer between two funds
// @Summary     Create a transfer
// @Description Move an amount from one fund to another in a single transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransferRequest true "Transfer details"
// @Success     201 {object} models.Posting "Transfer created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     422 {object} ErrorResponse "Insufficient funds"
// @Router      /transactions/transfer [post]
func (h *TransactionHandler) CreateTransfer(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	date, err := dateOrNow(req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	posting, err := h.ledgerService.Transfer(c.Request.Context(), actor, services.TransferInput{
		FromFundID: req.FromFundID,
		ToFundID:   req.ToFundID,
		Amount:     req.Amount,
		Date:       date,
		Concept:    req.Concept,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": posting})
}

// GetTransaction handles retrieval of a single transaction
// @Summary     Get a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Posting
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	postingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	posting, err := h.ledgerService.GetPosting(c.Request.Context(), actor, postingID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": posting})
}

// CorrectTransaction handles an administrative correction
// @Summary     Correct a transaction
// @Description Change amounts, concept, date or fund of a transaction. Balances are adjusted by the difference.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                    true "Transaction ID"
// @Param       request body CorrectTransactionRequest true "Correction"
// @Success     200 {object} models.Posting
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     422 {object} ErrorResponse "Insufficient funds"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) CorrectTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	postingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CorrectTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	date, err := optionalDate(req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	posting, err := h.ledgerService.Correct(c.Request.Context(), actor, postingID, services.CorrectionInput{
		FundID:    req.FundID,
		Date:      date,
		Concept:   req.Concept,
		AmountIn:  req.AmountIn,
		AmountOut: req.AmountOut,
		Reason:    req.Reason,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": posting})
}

// DeleteTransaction handles an administrative delete
// @Summary     Delete a transaction
// @Description Remove a transaction and reverse its effect on every fund it touched
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body DeleteTransactionRequest true "Reason"
// @Success     200 {object} map[string]string "Transaction deleted"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     422 {object} ErrorResponse "Insufficient funds"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	postingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req DeleteTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	if err := h.ledgerService.DeletePosting(c.Request.Context(), actor, postingID, req.Reason); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}
