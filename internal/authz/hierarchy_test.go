package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"treasury/internal/authz"
	"treasury/internal/models"
)

func TestRank_StrictTotalOrder(t *testing.T) {
	seen := map[int]models.Role{}
	for _, role := range models.AllRoles {
		r := authz.Rank(role)
		assert.Positive(t, r, role)
		_, dup := seen[r]
		assert.False(t, dup, "duplicate rank %d", r)
		seen[r] = role
	}
	assert.Equal(t, 0, authz.Rank("bishop"))
}

func TestCanAssignRole(t *testing.T) {
	tests := []struct {
		name        string
		actor, from models.Role
		to          models.Role
		want        bool
	}{
		{"admin_promotes_to_admin", models.RoleAdmin, models.RoleSecretary, models.RoleAdmin, true},
		{"treasurer_below_self", models.RoleTreasurer, models.RoleSecretary, models.RolePastor, true},
		{"treasurer_to_own_rank", models.RoleTreasurer, models.RoleSecretary, models.RoleTreasurer, false},
		{"treasurer_demotes_admin", models.RoleTreasurer, models.RoleAdmin, models.RoleSecretary, false},
		{"pastor_on_director", models.RolePastor, models.RoleFundDirector, models.RoleSecretary, false},
		{"unknown_target", models.RoleAdmin, models.RoleSecretary, "bishop", false},
		{"unknown_actor", "bishop", models.RoleSecretary, models.RoleSecretary, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authz.CanAssignRole(tt.actor, tt.from, tt.to))
		})
	}
}
