// Package authz decides whether an actor may perform a permission against a
// target church or fund. Every service method asks the Policy before it reads
// or writes scoped rows.
package authz

import (
	apperrors "treasury/internal/errors"
	"treasury/internal/models"
)

// Actor is the caller identity resolved upstream by the auth layer.
type Actor struct {
	ProfileID   string
	Role        models.Role
	ChurchID    *string
	Assignments []models.FundDirectorAssignment
}

// SystemProfileID identifies automated callers in audit rows.
const SystemProfileID = "00000000-0000-0000-0000-000000000000"

// System returns the identity an automated job acts as.
func System(role models.Role) Actor {
	return Actor{ProfileID: SystemProfileID, Role: role}
}

// Target names the church and fund an operation touches. Either may be nil.
type Target struct {
	ChurchID *string
	FundID   *string
}

// Church returns a Target for a church-owned row.
func Church(churchID string) Target {
	return Target{ChurchID: &churchID}
}

// Fund returns a Target for a fund-owned row, optionally within a church.
func Fund(fundID string, churchID *string) Target {
	return Target{FundID: &fundID, ChurchID: churchID}
}

// Policy is the role → (permission, scope) table.
type Policy struct {
	grants map[models.Role]map[models.Permission]models.Scope
}

// NewPolicy builds a Policy from permission table rows. Rows with an
// unrecognized role or scope are ignored.
func NewPolicy(rows []models.RolePermission) *Policy {
	p := &Policy{grants: make(map[models.Role]map[models.Permission]models.Scope)}
	for _, row := range rows {
		if !row.Role.IsValid() || !row.Scope.IsValid() {
			continue
		}
		if p.grants[row.Role] == nil {
			p.grants[row.Role] = make(map[models.Permission]models.Scope)
		}
		p.grants[row.Role][row.Permission] = row.Scope
	}
	return p
}

// ScopeFor returns the scope at which role holds perm.
func (p *Policy) ScopeFor(role models.Role, perm models.Permission) (models.Scope, bool) {
	scope, ok := p.grants[role][perm]
	return scope, ok
}

// CanAccess reports whether actor may exercise perm on target. It never
// fails; an unknown role or a missing grant is a denial.
func (p *Policy) CanAccess(actor Actor, perm models.Permission, target Target) bool {
	scope, ok := p.ScopeFor(actor.Role, perm)
	if !ok {
		return false
	}

	switch scope {
	case models.ScopeAll:
		return true
	case models.ScopeOwn:
		return actor.ChurchID != nil && target.ChurchID != nil && *actor.ChurchID == *target.ChurchID
	case models.ScopeAssigned:
		for _, a := range actor.Assignments {
			if assignmentCovers(a, target) {
				return true
			}
		}
	}
	return false
}

// assignmentCovers reports whether a covers target. A nil assignment fund
// covers every fund; a church-narrowed assignment only covers targets in
// that church when the target names one.
func assignmentCovers(a models.FundDirectorAssignment, target Target) bool {
	if a.FundID != nil {
		if target.FundID == nil || *a.FundID != *target.FundID {
			return false
		}
	}
	if a.ChurchID != nil && target.ChurchID != nil && *a.ChurchID != *target.ChurchID {
		return false
	}
	return true
}

// Require is CanAccess returning a PermissionDenied error on denial.
func (p *Policy) Require(actor Actor, perm models.Permission, target Target) error {
	if !p.CanAccess(actor, perm, target) {
		return apperrors.PermissionDenied(string(perm))
	}
	return nil
}

// IsNational reports whether actor holds perm across every church and fund.
func (p *Policy) IsNational(actor Actor, perm models.Permission) bool {
	scope, ok := p.ScopeFor(actor.Role, perm)
	return ok && scope == models.ScopeAll
}

// RequireNational is IsNational returning PermissionDenied on denial.
func (p *Policy) RequireNational(actor Actor, perm models.Permission) error {
	if !p.IsNational(actor, perm) {
		return apperrors.PermissionDenied(string(perm))
	}
	return nil
}

// RequireCreatorOrNational allows national holders of perm, and scoped
// holders only on rows they created.
func (p *Policy) RequireCreatorOrNational(actor Actor, perm models.Permission, target Target, createdBy string) error {
	if p.IsNational(actor, perm) {
		return nil
	}
	if p.CanAccess(actor, perm, target) && createdBy == actor.ProfileID {
		return nil
	}
	return apperrors.PermissionDenied(string(perm))
}

// CanModifyReport gates writes to a monthly report. A processed report is
// closed to everyone but the top role, who may still issue corrections.
func (p *Policy) CanModifyReport(actor Actor, status models.ReportStatus, churchID string) bool {
	if !p.CanAccess(actor, models.PermReportsEdit, Church(churchID)) {
		return false
	}
	if status == models.ReportStatusProcessed {
		return actor.Role == TopRole
	}
	return true
}

// Visibility describes which rows a listing may return for perm. Exactly
// one of All, ChurchID, Assignments or None applies.
type Visibility struct {
	All         bool
	ChurchID    *string
	Assignments []models.FundDirectorAssignment
	None        bool
}

// VisibilityFor narrows listings for actor under perm.
func (p *Policy) VisibilityFor(actor Actor, perm models.Permission) Visibility {
	scope, ok := p.ScopeFor(actor.Role, perm)
	if !ok {
		return Visibility{None: true}
	}

	switch scope {
	case models.ScopeAll:
		return Visibility{All: true}
	case models.ScopeOwn:
		if actor.ChurchID == nil {
			return Visibility{None: true}
		}
		return Visibility{ChurchID: actor.ChurchID}
	case models.ScopeAssigned:
		if len(actor.Assignments) == 0 {
			return Visibility{None: true}
		}
		return Visibility{Assignments: actor.Assignments}
	}
	return Visibility{None: true}
}

// FundIDs returns the fund ids an assigned Visibility covers. all is true
// when some assignment covers every fund.
func (v Visibility) FundIDs() (ids []string, all bool) {
	for _, a := range v.Assignments {
		if a.FundID == nil {
			return nil, true
		}
		ids = append(ids, *a.FundID)
	}
	return ids, false
}
