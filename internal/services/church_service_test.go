package services

import (
	"testing"

	"treasury/internal/models"
	"treasury/internal/pagination"
	"treasury/internal/testutil"
)

func TestCreateChurch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.actor(t, models.RoleAdmin, nil)

		church, err := env.churches.CreateChurch(ctx, admin, ChurchInput{Name: " IPU Lambaré ", City: "Lambaré"})
		testutil.AssertNoError(t, err)
		if church.Name != "IPU Lambaré" {
			t.Errorf("expected trimmed name, got %q", church.Name)
		}
		if n := countRows(t, env.db, &models.AuditLog{}, "action = ?", ActionChurchCreate); n != 1 {
			t.Errorf("expected 1 audit entry, got %d", n)
		}
	})

	t.Run("requires_city", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.actor(t, models.RoleAdmin, nil)

		_, err := env.churches.CreateChurch(ctx, admin, ChurchInput{Name: "IPU Lambaré"})
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})

	t.Run("duplicate_name", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.actor(t, models.RoleAdmin, nil)

		_, err := env.churches.CreateChurch(ctx, admin, ChurchInput{Name: "IPU Lambaré", City: "Lambaré"})
		testutil.AssertNoError(t, err)
		_, err = env.churches.CreateChurch(ctx, admin, ChurchInput{Name: "IPU Lambaré", City: "Luque"})
		testutil.AssertAppError(t, err, "CONFLICT")
	})

	t.Run("treasurer_denied", func(t *testing.T) {
		env := newTestEnv(t)
		treasurer := env.actor(t, models.RoleTreasurer, nil)

		_, err := env.churches.CreateChurch(ctx, treasurer, ChurchInput{Name: "IPU Lambaré", City: "Lambaré"})
		testutil.AssertAppError(t, err, "PERMISSION_DENIED")
	})
}

func TestChurchVisibility(t *testing.T) {
	env := newTestEnv(t)
	own := testutil.CreateTestChurch(t, env.db)
	other := testutil.CreateTestChurch(t, env.db)
	secretary := env.actor(t, models.RoleSecretary, &own.ID)
	treasurer := env.actor(t, models.RoleTreasurer, nil)

	t.Run("get_own", func(t *testing.T) {
		_, err := env.churches.GetChurch(ctx, secretary, own.ID)
		testutil.AssertNoError(t, err)
	})

	t.Run("get_other_denied", func(t *testing.T) {
		_, err := env.churches.GetChurch(ctx, secretary, other.ID)
		testutil.AssertAppError(t, err, "PERMISSION_DENIED")
	})

	t.Run("list_own_only", func(t *testing.T) {
		page, err := env.churches.ListChurches(ctx, secretary, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 || page.Data[0].ID != own.ID {
			t.Errorf("expected only the own church, got %d", page.TotalItems)
		}
	})

	t.Run("national_lists_all", func(t *testing.T) {
		page, err := env.churches.ListChurches(ctx, treasurer, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 2 {
			t.Errorf("expected 2 churches, got %d", page.TotalItems)
		}
	})

	t.Run("unknown_church", func(t *testing.T) {
		_, err := env.churches.GetChurch(ctx, treasurer, "00000000-0000-0000-0000-000000000000")
		testutil.AssertAppError(t, err, "CHURCH_NOT_FOUND")
	})
}
