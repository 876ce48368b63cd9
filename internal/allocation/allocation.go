// Package allocation splits a church's monthly income between the national
// fund and the church, and derives the pastoral salary as the residual.
// It performs no I/O.
package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"

	apperrors "treasury/internal/errors"
	"treasury/internal/models"
)

var nationalShare = decimal.NewFromFloat(0.10)

// Line is one dated amount of a monthly report.
type Line struct {
	LineType models.LineType
	Bucket   string
	Amount   int64
}

// Result is the allocation of one report.
type Result struct {
	Tithe    int64 `json:"tithe"`
	Offering int64 `json:"offering"`

	National10    int64 `json:"fondo_nacional_10_percent"`
	National100   int64 `json:"fondo_nacional_100_percent"`
	NationalTotal int64 `json:"fondo_nacional_total"`

	Local90    int64 `json:"local_90_percent"`
	LocalOther int64 `json:"local_other"`
	LocalTotal int64 `json:"disponible_local"`

	UtilityExpenses int64 `json:"utility_expenses"`
	OtherExpenses   int64 `json:"other_expenses"`
	TotalExpenses   int64 `json:"total_gastos"`

	PastoralSalary int64 `json:"salario_pastoral"`
	Balance        int64 `json:"balance"`

	// Designated totals per 100%-to-national bucket.
	Designated map[string]int64 `json:"designated,omitempty"`
}

// Compute allocates lines. Lines with an unknown bucket, a negative amount
// or a line type that disagrees with the bucket are rejected, as are
// expenses larger than the church's local share.
//
// Only the national 10% is rounded; the local 90% is the remainder of the
// tithe and offering base. When the base splits on a half unit the local
// share is therefore one below round(base*0.90): a base of 15 gives 2 and
// 13, not 2 and 14, and the two shares always add up to the base.
func Compute(lines []Line) (*Result, error) {
	r := &Result{Designated: map[string]int64{}}

	for i, l := range lines {
		class := ClassOf(l.Bucket)
		if class == ClassUnknown {
			return nil, apperrors.Validation(fmt.Sprintf("line %d: unknown bucket %q", i+1, l.Bucket))
		}
		if l.Amount < 0 {
			return nil, apperrors.Validation(fmt.Sprintf("line %d: amount must not be negative", i+1))
		}
		if l.LineType != LineTypeOf(class) {
			return nil, apperrors.Validation(fmt.Sprintf("line %d: bucket %q takes %s lines", i+1, l.Bucket, LineTypeOf(class)))
		}

		switch class {
		case ClassTenPercent:
			if l.Bucket == BucketTithe {
				r.Tithe += l.Amount
			} else {
				r.Offering += l.Amount
			}
		case ClassNational:
			r.National100 += l.Amount
			r.Designated[l.Bucket] += l.Amount
		case ClassLocal:
			r.LocalOther += l.Amount
		case ClassUtilityExpense:
			r.UtilityExpenses += l.Amount
		case ClassOtherExpense:
			r.OtherExpenses += l.Amount
		}
	}

	base := r.Tithe + r.Offering
	r.National10 = Percent(base, nationalShare)
	r.Local90 = base - r.National10
	r.NationalTotal = r.National10 + r.National100
	r.LocalTotal = r.Local90 + r.LocalOther
	r.TotalExpenses = r.UtilityExpenses + r.OtherExpenses

	if r.TotalExpenses > r.LocalTotal {
		return nil, apperrors.WithDetails(apperrors.ErrValidation,
			fmt.Sprintf("expenses %d exceed local funds %d", r.TotalExpenses, r.LocalTotal),
			map[string]any{
				"total_expenses": r.TotalExpenses,
				"local_total":    r.LocalTotal,
				"deficit":        r.TotalExpenses - r.LocalTotal,
			})
	}

	r.PastoralSalary = max(r.LocalTotal-r.TotalExpenses, 0)
	r.Balance = r.LocalTotal - r.TotalExpenses - r.PastoralSalary
	if r.Balance != 0 {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer,
			fmt.Errorf("allocation does not balance: local %d, expenses %d, pastoral %d, balance %d",
				r.LocalTotal, r.TotalExpenses, r.PastoralSalary, r.Balance))
	}
	return r, nil
}

// Percent returns amount*share rounded half away from zero to a whole unit.
func Percent(amount int64, share decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(share).Round(0).IntPart()
}
