package models

// Role is a named role held by a profile.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleTreasurer     Role = "treasurer"
	RoleFundDirector  Role = "fund_director"
	RolePastor        Role = "pastor"
	RoleChurchManager Role = "church_manager"
	RoleSecretary     Role = "secretary"
)

// AllRoles lists every recognized role.
var AllRoles = []Role{
	RoleAdmin,
	RoleTreasurer,
	RoleFundDirector,
	RolePastor,
	RoleChurchManager,
	RoleSecretary,
}

// IsValid reports whether r is a recognized role.
func (r Role) IsValid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Scope narrows the rows a permission applies to.
type Scope string

const (
	ScopeOwn      Scope = "own"      // rows of the caller's church
	ScopeAssigned Scope = "assigned" // rows of the caller's assigned funds
	ScopeAll      Scope = "all"
)

// IsValid reports whether s is a recognized scope.
func (s Scope) IsValid() bool {
	switch s {
	case ScopeOwn, ScopeAssigned, ScopeAll:
		return true
	}
	return false
}

// Permission is a capability name such as "events.approve".
type Permission string

const (
	PermChurchesView   Permission = "churches.view"
	PermChurchesManage Permission = "churches.manage"

	PermFundsView   Permission = "funds.view"
	PermFundsManage Permission = "funds.manage"

	PermTransactionsView   Permission = "transactions.view"
	PermTransactionsCreate Permission = "transactions.create"
	PermTransactionsManage Permission = "transactions.manage"

	PermEventsView    Permission = "events.view"
	PermEventsCreate  Permission = "events.create"
	PermEventsEdit    Permission = "events.edit"
	PermEventsSubmit  Permission = "events.submit"
	PermEventsApprove Permission = "events.approve"

	PermReportsView    Permission = "reports.view"
	PermReportsCreate  Permission = "reports.create"
	PermReportsEdit    Permission = "reports.edit"
	PermReportsApprove Permission = "reports.approve"

	PermAssignmentsManage Permission = "assignments.manage"
	PermRolesManage       Permission = "roles.manage"
	PermReconcile         Permission = "reconciliation.run"
	PermAuditView         Permission = "audit.view"
)

// RolePermission is one row of the permission table: role → (permission, scope).
type RolePermission struct {
	Base
	Role        Role       `gorm:"not null;uniqueIndex:idx_role_permission" json:"role"`
	Permission  Permission `gorm:"not null;uniqueIndex:idx_role_permission" json:"permission"`
	Scope       Scope      `gorm:"not null" json:"scope"`
	Description string     `json:"description"`
}

// FundDirectorAssignment binds a fund_director profile to a fund. A nil FundID
// means every fund; a non-nil ChurchID narrows the assignment to one church.
type FundDirectorAssignment struct {
	Base
	ProfileID string  `gorm:"type:uuid;not null;index" json:"profile_id"`
	FundID    *string `gorm:"type:uuid;index" json:"fund_id,omitempty"`
	ChurchID  *string `gorm:"type:uuid" json:"church_id,omitempty"`
	CreatedBy string  `gorm:"type:uuid" json:"created_by"`
	Notes     string  `json:"notes,omitempty"`
}
