package authz

import "treasury/internal/models"

type grant struct {
	perm  models.Permission
	scope models.Scope
	desc  string
}

var defaultGrants = map[models.Role][]grant{
	models.RoleAdmin: {
		{models.PermChurchesView, models.ScopeAll, "View every church"},
		{models.PermChurchesManage, models.ScopeAll, "Create and edit churches"},
		{models.PermFundsView, models.ScopeAll, "View every fund"},
		{models.PermFundsManage, models.ScopeAll, "Create, edit and deactivate funds"},
		{models.PermTransactionsView, models.ScopeAll, "View every posting"},
		{models.PermTransactionsCreate, models.ScopeAll, "Record postings and transfers"},
		{models.PermTransactionsManage, models.ScopeAll, "Correct and delete postings"},
		{models.PermEventsView, models.ScopeAll, "View every event"},
		{models.PermEventsCreate, models.ScopeAll, "Create events"},
		{models.PermEventsEdit, models.ScopeAll, "Edit events"},
		{models.PermEventsSubmit, models.ScopeAll, "Submit events"},
		{models.PermEventsApprove, models.ScopeAll, "Approve and reject events"},
		{models.PermReportsView, models.ScopeAll, "View every report"},
		{models.PermReportsCreate, models.ScopeAll, "Create reports"},
		{models.PermReportsEdit, models.ScopeAll, "Edit reports, including processed ones"},
		{models.PermReportsApprove, models.ScopeAll, "Process reports"},
		{models.PermAssignmentsManage, models.ScopeAll, "Manage fund director assignments"},
		{models.PermRolesManage, models.ScopeAll, "Change profile roles"},
		{models.PermReconcile, models.ScopeAll, "Run reconciliation and release holds"},
		{models.PermAuditView, models.ScopeAll, "View the audit log"},
	},
	models.RoleTreasurer: {
		{models.PermChurchesView, models.ScopeAll, "View every church"},
		{models.PermFundsView, models.ScopeAll, "View every fund"},
		{models.PermTransactionsView, models.ScopeAll, "View every posting"},
		{models.PermTransactionsCreate, models.ScopeAll, "Record postings and transfers"},
		{models.PermEventsView, models.ScopeAll, "View every event"},
		{models.PermEventsCreate, models.ScopeAll, "Create events"},
		{models.PermEventsEdit, models.ScopeAll, "Edit events"},
		{models.PermEventsSubmit, models.ScopeAll, "Submit events"},
		{models.PermEventsApprove, models.ScopeAll, "Approve and reject events"},
		{models.PermReportsView, models.ScopeAll, "View every report"},
		{models.PermReportsCreate, models.ScopeAll, "Create reports"},
		{models.PermReportsEdit, models.ScopeAll, "Edit unprocessed reports"},
		{models.PermReportsApprove, models.ScopeAll, "Process reports"},
		{models.PermReconcile, models.ScopeAll, "Run reconciliation"},
		{models.PermAuditView, models.ScopeAll, "View the audit log"},
	},
	models.RoleFundDirector: {
		{models.PermFundsView, models.ScopeAssigned, "View assigned funds"},
		{models.PermTransactionsView, models.ScopeAssigned, "View postings of assigned funds"},
		{models.PermEventsView, models.ScopeAssigned, "View events of assigned funds"},
		{models.PermEventsCreate, models.ScopeAssigned, "Create events on assigned funds"},
		{models.PermEventsEdit, models.ScopeAssigned, "Edit own events on assigned funds"},
		{models.PermEventsSubmit, models.ScopeAssigned, "Submit own events on assigned funds"},
	},
	models.RolePastor: {
		{models.PermChurchesView, models.ScopeOwn, "View own church"},
		{models.PermEventsView, models.ScopeOwn, "View events of own church"},
		{models.PermReportsView, models.ScopeOwn, "View reports of own church"},
		{models.PermReportsCreate, models.ScopeOwn, "Create reports for own church"},
		{models.PermReportsEdit, models.ScopeOwn, "Edit reports of own church"},
	},
	models.RoleChurchManager: {
		{models.PermChurchesView, models.ScopeOwn, "View own church"},
		{models.PermReportsView, models.ScopeOwn, "View reports of own church"},
		{models.PermReportsCreate, models.ScopeOwn, "Create reports for own church"},
		{models.PermReportsEdit, models.ScopeOwn, "Edit reports of own church"},
	},
	models.RoleSecretary: {
		{models.PermChurchesView, models.ScopeOwn, "View own church"},
		{models.PermReportsView, models.ScopeOwn, "View reports of own church"},
		{models.PermReportsCreate, models.ScopeOwn, "Create reports for own church"},
	},
}

// DefaultPermissions returns the built-in permission table with scope
// overrides applied. An override replaces the scope of every grant the role
// holds.
func DefaultPermissions(overrides map[models.Role]models.Scope) []models.RolePermission {
	var rows []models.RolePermission
	for _, role := range models.AllRoles {
		for _, g := range defaultGrants[role] {
			scope := g.scope
			if o, ok := overrides[role]; ok {
				scope = o
			}
			rows = append(rows, models.RolePermission{
				Role:        role,
				Permission:  g.perm,
				Scope:       scope,
				Description: g.desc,
			})
		}
	}
	return rows
}

// DefaultPolicy is NewPolicy over DefaultPermissions.
func DefaultPolicy(overrides map[models.Role]models.Scope) *Policy {
	return NewPolicy(DefaultPermissions(overrides))
}
