package authz

import (
	"testing"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"SUPERUSER":   RoleSuperuser,
		"admin":       RoleAdmin,
		" Reseller ":  RoleReseller,
		"DISTRIBUTOR": RoleDistributor,
		"taquilla":    RoleTaquilla,
		"CLIENT":      RoleClient,
		"user":        RoleUnknown,
		"":            RoleUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseRole(in), in)
	}
}

func TestAllows(t *testing.T) {
	privileged := []Capability{ViewAnyAccount, ManageAccounts, ReviewDeposits, ReviewWithdrawals, ViewLedgerReports}

	for _, role := range []Role{RoleSuperuser, RoleAdmin} {
		assert.True(t, Allows(role, HoldWallet))
		for _, c := range privileged {
			assert.True(t, Allows(role, c), "%s %s", role, c)
		}
	}
	for _, role := range []Role{RoleDistributor, RoleReseller, RoleTaquilla, RoleClient} {
		assert.True(t, Allows(role, HoldWallet))
		for _, c := range privileged {
			assert.False(t, Allows(role, c), "%s %s", role, c)
		}
	}
	assert.False(t, Allows(RoleUnknown, HoldWallet))
	assert.False(t, Allows(RoleAdmin, Capability(0)))
}

func TestRequireAccount(t *testing.T) {
	owner := Actor{ID: uuid.New(), Role: RoleClient}
	other := Actor{ID: uuid.New(), Role: RoleReseller}
	admin := Actor{ID: uuid.New(), Role: RoleAdmin}

	require.NoError(t, RequireAccount(owner, owner.ID, ViewAnyAccount))
	require.NoError(t, RequireAccount(admin, owner.ID, ViewAnyAccount))
	require.ErrorIs(t, RequireAccount(other, owner.ID, ViewAnyAccount), domain.ErrPermissionDenied)

	anonymous := Actor{Role: RoleAdmin}
	require.ErrorIs(t, Require(anonymous, ReviewDeposits), domain.ErrPermissionDenied)

	unknown := Actor{ID: uuid.New(), Role: RoleUnknown}
	require.ErrorIs(t, RequireAccount(unknown, unknown.ID, ViewAnyAccount), domain.ErrPermissionDenied)
}
