package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couplet-xyz/couplet/internal/asset"
)

func TestNewController_RequiresAnAdmin(t *testing.T) {
	_, err := NewController()
	assert.True(t, asset.IsValidation(err))

	_, err = NewController(asset.ZeroAddress)
	assert.True(t, asset.IsValidation(err))

	c, err := NewController("admin")
	require.NoError(t, err)
	assert.True(t, c.Has(RoleAdmin, "admin"))
}

func TestGrantAndRevoke_AdminGated(t *testing.T) {
	c, err := NewController("admin")
	require.NoError(t, err)

	err = c.Grant("mallory", RolePauser, "mallory")
	assert.True(t, asset.IsAuthorization(err))

	require.NoError(t, c.Grant("admin", RolePauser, "pauser"))
	assert.True(t, c.Has(RolePauser, "pauser"))

	require.NoError(t, c.Revoke("admin", RolePauser, "pauser"))
	assert.False(t, c.Has(RolePauser, "pauser"))
}

func TestRevoke_LastAdminIsProtected(t *testing.T) {
	c, err := NewController("admin")
	require.NoError(t, err)

	err = c.Revoke("admin", RoleAdmin, "admin")
	require.Error(t, err)
	assert.True(t, c.Has(RoleAdmin, "admin"))

	// With a second admin the first becomes revocable.
	require.NoError(t, c.Grant("admin", RoleAdmin, "admin2"))
	require.NoError(t, c.Revoke("admin2", RoleAdmin, "admin"))
	assert.False(t, c.Has(RoleAdmin, "admin"))
}

func TestRequire_ReportsAuthorizationCode(t *testing.T) {
	c, err := NewController("admin")
	require.NoError(t, err)

	assert.NoError(t, c.Require(RoleAdmin, "admin"))
	err = c.Require(RoleAdmin, "alice")
	assert.Equal(t, asset.CodeAuthorization, asset.CodeOf(err))
}

func TestHolders_ReturnsGrantees(t *testing.T) {
	c, err := NewController("admin")
	require.NoError(t, err)
	require.NoError(t, c.Grant("admin", RolePauser, "p1"))
	require.NoError(t, c.Grant("admin", RolePauser, "p2"))

	holders := c.Holders(RolePauser)
	assert.ElementsMatch(t, []asset.Address{"p1", "p2"}, holders)
	assert.Empty(t, c.Holders(RoleOperator))
}

func TestGrant_RejectsUnknownRoleAndZeroAddress(t *testing.T) {
	c, err := NewController("admin")
	require.NoError(t, err)

	err = c.Grant("admin", Role("superuser"), "alice")
	assert.True(t, asset.IsValidation(err))

	err = c.Grant("admin", RolePauser, asset.ZeroAddress)
	assert.True(t, asset.IsValidation(err))
}
