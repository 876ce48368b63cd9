package models

import "time"

// FundType classifies a fund.
type FundType string

const (
	FundTypeNational    FundType = "national"
	FundTypeMissionary  FundType = "missionary"
	FundTypeSpecial     FundType = "special"
	FundTypeCharitable  FundType = "charitable"
	FundTypeEducational FundType = "educational"
	FundTypeOther       FundType = "other"
)

// IsValid reports whether t is a recognized fund type.
func (t FundType) IsValid() bool {
	switch t {
	case FundTypeNational, FundTypeMissionary, FundTypeSpecial,
		FundTypeCharitable, FundTypeEducational, FundTypeOther:
		return true
	}
	return false
}

// Fund is a named bucket of money. CurrentBalance is only ever changed by the
// ledger, in the same database transaction as the posting that moves it.
type Fund struct {
	Base
	Name           string   `gorm:"not null;uniqueIndex" json:"name"`
	Type           FundType `gorm:"not null" json:"type"`
	Description    string   `json:"description"`
	CurrentBalance int64    `gorm:"type:bigint;not null;default:0" json:"current_balance"`
	IsActive       bool     `gorm:"default:true" json:"is_active"`
	CreatedBy      string   `gorm:"type:uuid" json:"created_by"`

	// IntegrityHold is set when reconciliation finds a mismatch. Writes are
	// refused until an administrator releases the hold.
	IntegrityHold bool       `gorm:"not null;default:false" json:"integrity_hold"`
	HoldReason    string     `json:"hold_reason,omitempty"`
	HeldAt        *time.Time `json:"held_at,omitempty"`
}

// Posting is one ledger entry. A posting moves money in or out of FundID; when
// DestinationFundID is set it is a transfer and AmountOut is also credited to
// the destination fund.
type Posting struct {
	Base
	Date              time.Time `gorm:"not null;index" json:"date"`
	FundID            string    `gorm:"type:uuid;not null;index" json:"fund_id"`
	DestinationFundID *string   `gorm:"type:uuid;index" json:"destination_fund_id,omitempty"`
	ChurchID          *string   `gorm:"type:uuid;index" json:"church_id,omitempty"`
	EventID           *string   `gorm:"type:uuid;index" json:"event_id,omitempty"`
	ReportID          *string   `gorm:"type:uuid;index" json:"report_id,omitempty"`
	Concept           string    `gorm:"not null" json:"concept"`
	Provider          string    `json:"provider,omitempty"`
	DocumentNumber    string    `json:"document_number,omitempty"`
	AmountIn          int64     `gorm:"type:bigint;not null;default:0" json:"amount_in"`
	AmountOut         int64     `gorm:"type:bigint;not null;default:0" json:"amount_out"`
	BalanceAfter      int64     `gorm:"type:bigint;not null;default:0" json:"balance_after"`
	CreatedBy         string    `gorm:"type:uuid" json:"created_by"`
}

// IsTransfer reports whether the posting credits a destination fund.
func (p *Posting) IsTransfer() bool {
	return p.DestinationFundID != nil && *p.DestinationFundID != ""
}

// Effects returns the balance change this posting causes on every fund it
// references.
func (p *Posting) Effects() map[string]int64 {
	effects := map[string]int64{p.FundID: p.AmountIn - p.AmountOut}
	if p.IsTransfer() {
		effects[*p.DestinationFundID] += p.AmountOut
	}
	return effects
}

// FundMovement records one change to a fund's stored balance.
type FundMovement struct {
	Base
	FundID          string  `gorm:"type:uuid;not null;index" json:"fund_id"`
	PostingID       *string `gorm:"type:uuid;index" json:"posting_id,omitempty"`
	EventID         *string `gorm:"type:uuid" json:"event_id,omitempty"`
	PreviousBalance int64   `gorm:"type:bigint;not null" json:"previous_balance"`
	Delta           int64   `gorm:"type:bigint;not null" json:"delta"`
	NewBalance      int64   `gorm:"type:bigint;not null" json:"new_balance"`
	Reason          string  `json:"reason"`
	RecordedBy      string  `gorm:"type:uuid" json:"recorded_by"`
}
