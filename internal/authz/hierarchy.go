package authz

import "treasury/internal/models"

// TopRole is the highest-privileged role.
const TopRole = models.RoleAdmin

// rank orders roles for administrative decisions only. Access decisions
// come from the permission table.
var rank = map[models.Role]int{
	models.RoleAdmin:         6,
	models.RoleTreasurer:     5,
	models.RoleFundDirector:  4,
	models.RolePastor:        3,
	models.RoleChurchManager: 2,
	models.RoleSecretary:     1,
}

// Rank returns the position of role in the hierarchy, 0 if unknown.
func Rank(role models.Role) int {
	return rank[role]
}

// Outranks reports whether a sits strictly above b.
func Outranks(a, b models.Role) bool {
	return Rank(a) > Rank(b)
}

// CanAssignRole reports whether a holder of actor may move a profile from
// role from to role to. The top role may assign anything; others only
// between roles strictly below their own.
func CanAssignRole(actor, from, to models.Role) bool {
	if Rank(actor) == 0 || Rank(to) == 0 {
		return false
	}
	if actor == TopRole {
		return true
	}
	return Outranks(actor, from) && Outranks(actor, to)
}
