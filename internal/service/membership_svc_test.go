package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

func newMembershipFixture(t *testing.T, users ...model.User) (*MembershipService, *testEnv) {
	t.Helper()
	env := newTestEnv(10000, users...)
	svc := NewMembershipService(env.users, env.inbox)
	svc.now = func() time.Time { return env.now }
	return svc, env
}

func TestMembership_GrantExtendsFromLaterExpiry(t *testing.T) {
	future := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	svc, env := newMembershipFixture(t,
		model.User{UID: "free", Role: model.RoleFree},
		model.User{UID: "member", Role: model.RoleMember, ExpiresAt: &future},
		model.User{UID: "admin", Role: model.RoleAdmin},
	)
	ctx := context.Background()

	u, err := svc.Grant(ctx, "free", 30)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, u.Role)
	assert.Equal(t, env.now.AddDate(0, 0, 30), *u.ExpiresAt)
	require.Len(t, env.ns.For("free"), 1)
	assert.Contains(t, env.ns.For("free")[0].Message, "2026-04-09")

	u, err = svc.Grant(ctx, "member", 10)
	require.NoError(t, err)
	assert.Equal(t, future.AddDate(0, 0, 10), *u.ExpiresAt)

	_, err = svc.Grant(ctx, "admin", 10)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.Grant(ctx, "free", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Grant(ctx, "ghost", 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMembership_RevokeAndSetRole(t *testing.T) {
	exp := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	svc, env := newMembershipFixture(t,
		model.User{UID: "member", Role: model.RoleMember, ExpiresAt: &exp},
		model.User{UID: "admin", Role: model.RoleAdmin},
	)
	ctx := context.Background()
	admin := env.users.get("admin")

	u, err := svc.Revoke(ctx, "member")
	require.NoError(t, err)
	assert.Equal(t, model.RoleFree, u.Role)
	assert.Nil(t, u.ExpiresAt)

	_, err = svc.Revoke(ctx, "admin")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.SetRole(ctx, admin, "admin", model.RoleFree)
	assert.ErrorIs(t, err, ErrForbidden)

	u, err = svc.SetRole(ctx, admin, "member", model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)

	_, err = svc.SetRole(ctx, admin, "member", "owner")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMembership_Sweep(t *testing.T) {
	lapsed := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	soon := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	later := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	svc, env := newMembershipFixture(t,
		model.User{UID: "lapsed", Role: model.RoleMember, ExpiresAt: &lapsed},
		model.User{UID: "soon", Role: model.RoleMember, ExpiresAt: &soon},
		model.User{UID: "later", Role: model.RoleMember, ExpiresAt: &later},
		model.User{UID: "forever", Role: model.RoleMember},
	)
	ctx := context.Background()

	res, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Expired: 1, Reminded: 1}, res)

	assert.Equal(t, model.RoleFree, env.users.get("lapsed").Role)
	assert.Equal(t, model.RoleMember, env.users.get("soon").Role)
	require.Len(t, env.ns.For("soon"), 1)
	assert.Contains(t, env.ns.For("soon")[0].Message, "2026-03-12")
	assert.Empty(t, env.ns.For("later"))
	assert.Empty(t, env.ns.For("forever"))

	// Reminders go out once per expiry.
	res, err = svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)
	assert.Len(t, env.ns.For("soon"), 1)
}

func TestMembership_SweepSkipsRenewedMember(t *testing.T) {
	lapsed := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	svc, env := newMembershipFixture(t,
		model.User{UID: "renewed", Role: model.RoleMember, ExpiresAt: &lapsed},
	)
	renewedUntil := env.now.AddDate(0, 0, 30)
	// A grant lands between the sweep's listing and its demotion.
	env.users.beforeExpire = func(u *model.User) {
		u.ExpiresAt = &renewedUntil
	}

	res, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Expired)

	u := env.users.get("renewed")
	assert.Equal(t, model.RoleMember, u.Role)
	require.NotNil(t, u.ExpiresAt)
	assert.Equal(t, renewedUntil, *u.ExpiresAt)
	assert.Empty(t, env.ns.For("renewed"))
}

func TestMembershipWorker_StopEndsLoop(t *testing.T) {
	svc, _ := newMembershipFixture(t)
	w := NewMembershipWorker(svc, time.Hour)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()
	w.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
