package invite_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
	"github.com/Yairkad/vaad-bayit-sub000/billing/store"
	"github.com/Yairkad/vaad-bayit-sub000/invite"
)

var committee = billing.BuildingScope{BuildingID: "b1", UserID: "u-committee", Role: billing.RoleCommittee}

func newTestService(t *testing.T) (*invite.Service, *store.Memory, *time.Time) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.SaveBuilding(ctx, billing.Building{ID: "b1", Name: "Herzl 12"}))
	require.NoError(t, mem.SaveTenant(ctx, billing.Tenant{ID: "t1", BuildingID: "b1", FullName: "Dana Levi", Apartment: "3"}))

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := invite.NewService(mem, 72*time.Hour)
	svc.Cost = bcrypt.MinCost
	svc.Now = func() time.Time { return now }
	seq := 0
	svc.NewID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return svc, mem, &now
}

func TestCreate_StoresOnlyHash(t *testing.T) {
	svc, mem, _ := newTestService(t)

	created, err := svc.Create(context.Background(), committee, invite.CreateRequest{})
	require.NoError(t, err)
	assert.Len(t, created.Code, 16)
	assert.Equal(t, billing.RoleTenant, created.Invite.Role, "tenant is the default role")

	stored, err := mem.GetInvite(context.Background(), created.Invite.ID)
	require.NoError(t, err)
	assert.NotContains(t, string(stored.SecretHash), created.Code)
	assert.NoError(t, bcrypt.CompareHashAndPassword(stored.SecretHash, []byte(created.Code)))
	assert.Equal(t, time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC), stored.ExpiresAt)
}

func TestCreate_Rejects(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tenantScope := billing.BuildingScope{BuildingID: "b1", UserID: "u2", Role: billing.RoleTenant}
	_, err := svc.Create(ctx, tenantScope, invite.CreateRequest{})
	assert.ErrorIs(t, err, billing.ErrForbidden)

	_, err = svc.Create(ctx, committee, invite.CreateRequest{Role: billing.RoleAdmin})
	assert.ErrorIs(t, err, billing.ErrValidation)

	_, err = svc.Create(ctx, committee, invite.CreateRequest{TenantID: "nobody"})
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestRedeem_NewTenant(t *testing.T) {
	// GIVEN: an unbound invite
	// WHEN:  redeeming with the right code
	// THEN:  a new tenant is created and linked to the user, once
	svc, mem, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, committee, invite.CreateRequest{})
	require.NoError(t, err)

	got, err := svc.Redeem(ctx, created.Invite.ID, invite.RedeemRequest{
		Code:     strings.ToLower(created.Code),
		UserID:   "u-new",
		FullName: " Avi Cohen ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Avi Cohen", got.Tenant.FullName)
	assert.Equal(t, billing.BuildingScope{BuildingID: "b1", UserID: "u-new", Role: billing.RoleTenant}, got.Scope)

	tenant, err := mem.GetTenant(ctx, "b1", got.Tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.UserID("u-new"), tenant.UserID)

	_, err = svc.Redeem(ctx, created.Invite.ID, invite.RedeemRequest{Code: created.Code, UserID: "u-other", FullName: "X"})
	assert.ErrorIs(t, err, billing.ErrInviteRedeemed)
}

func TestRedeem_LinksExistingTenant(t *testing.T) {
	svc, mem, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, committee, invite.CreateRequest{TenantID: "t1"})
	require.NoError(t, err)

	got, err := svc.Redeem(ctx, created.Invite.ID, invite.RedeemRequest{Code: created.Code, UserID: "u-dana"})
	require.NoError(t, err)
	assert.Equal(t, billing.TenantID("t1"), got.Tenant.ID)

	tenant, err := mem.GetTenant(ctx, "b1", "t1")
	require.NoError(t, err)
	assert.Equal(t, billing.UserID("u-dana"), tenant.UserID)
	assert.Equal(t, "3", tenant.Apartment, "existing fields are kept")
}

func TestRedeem_Rejects(t *testing.T) {
	svc, _, now := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, committee, invite.CreateRequest{})
	require.NoError(t, err)
	id := created.Invite.ID

	_, err = svc.Redeem(ctx, id, invite.RedeemRequest{Code: "WRONGWRONGWRONG1", UserID: "u", FullName: "X"})
	assert.ErrorIs(t, err, billing.ErrInviteSecret)

	_, err = svc.Redeem(ctx, id, invite.RedeemRequest{Code: created.Code, UserID: ""})
	assert.ErrorIs(t, err, billing.ErrValidation)

	_, err = svc.Redeem(ctx, id, invite.RedeemRequest{Code: created.Code, UserID: "u"})
	assert.ErrorIs(t, err, billing.ErrValidation, "new tenants need a name")

	_, err = svc.Redeem(ctx, "missing", invite.RedeemRequest{Code: created.Code, UserID: "u", FullName: "X"})
	assert.ErrorIs(t, err, billing.ErrNotFound)

	*now = now.Add(72 * time.Hour)
	_, err = svc.Redeem(ctx, id, invite.RedeemRequest{Code: created.Code, UserID: "u", FullName: "X"})
	assert.ErrorIs(t, err, billing.ErrInviteExpired)
}

func TestLink(t *testing.T) {
	assert.Equal(t, "https://vaad.example.com/join/inv-1?code=ABC%2B1",
		invite.Link("https://vaad.example.com/", "inv-1", "ABC+1"))
}
