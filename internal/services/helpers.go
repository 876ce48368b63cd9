package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"treasury/internal/authz"
	apperrors "treasury/internal/errors"
)

// findByID loads one row by primary key, mapping a miss to notFound.
func findByID[T any](db *gorm.DB, id string, notFound *apperrors.AppError) (*T, error) {
	var row T
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, notFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &row, nil
}

// isNotFound reports whether err is a gorm miss.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// visibleRows narrows a listing of fund- and church-owned rows to what v allows.
func visibleRows(v authz.Visibility, fundCol, churchCol string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case v.All:
			return db
		case v.None:
			return db.Where("1 = 0")
		case v.ChurchID != nil:
			return db.Where(churchCol+" = ?", *v.ChurchID)
		}

		var conds []string
		var args []any
		for _, a := range v.Assignments {
			switch {
			case a.FundID == nil && a.ChurchID == nil:
				return db
			case a.FundID == nil:
				conds = append(conds, "("+churchCol+" IS NULL OR "+churchCol+" = ?)")
				args = append(args, *a.ChurchID)
			case a.ChurchID == nil:
				conds = append(conds, fundCol+" = ?")
				args = append(args, *a.FundID)
			default:
				conds = append(conds, "("+fundCol+" = ? AND ("+churchCol+" IS NULL OR "+churchCol+" = ?))")
				args = append(args, *a.FundID, *a.ChurchID)
			}
		}
		if len(conds) == 0 {
			return db.Where("1 = 0")
		}
		return db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
}

// visibleFunds narrows a listing of the funds table to what v allows. Funds
// belong to no church, so church-scoped visibility sees none.
func visibleFunds(v authz.Visibility) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if v.All {
			return db
		}
		if v.None || v.ChurchID != nil {
			return db.Where("1 = 0")
		}
		ids, all := v.FundIDs()
		if all {
			return db
		}
		return db.Where("id IN ?", ids)
	}
}

// visibleChurchRows narrows a listing of church-owned rows, where col holds
// the church id. An assignment only reaches church rows when it spans every
// fund.
func visibleChurchRows(v authz.Visibility, col string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case v.All:
			return db
		case v.ChurchID != nil:
			return db.Where(col+" = ?", *v.ChurchID)
		}

		var churchIDs []string
		for _, a := range v.Assignments {
			if a.FundID != nil {
				continue
			}
			if a.ChurchID == nil {
				return db
			}
			churchIDs = append(churchIDs, *a.ChurchID)
		}
		if len(churchIDs) == 0 {
			return db.Where("1 = 0")
		}
		return db.Where(col+" IN ?", churchIDs)
	}
}

// fundLedgerChurches returns the churches whose rows a listing of fundID's
// ledger may return. all is true when the listing is not narrowed. Rows with
// no church belong to the fund itself and stay visible to anyone who may
// read the fund.
func fundLedgerChurches(v authz.Visibility, fundID string) (churchIDs []string, all bool) {
	switch {
	case v.All:
		return nil, true
	case v.None:
		return nil, false
	case v.ChurchID != nil:
		return []string{*v.ChurchID}, false
	}

	for _, a := range v.Assignments {
		if a.FundID != nil && *a.FundID != fundID {
			continue
		}
		if a.ChurchID == nil {
			return nil, true
		}
		churchIDs = append(churchIDs, *a.ChurchID)
	}
	return churchIDs, false
}

// churchNarrowed keeps rows whose col is NULL or one of churchIDs.
func churchNarrowed(col string, churchIDs []string, all bool) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if all {
			return db
		}
		if len(churchIDs) == 0 {
			return db.Where(col + " IS NULL")
		}
		return db.Where("("+col+" IS NULL OR "+col+" IN ?)", churchIDs)
	}
}
