package auth

import (
	"testing"

	"sickfits-be/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission(" itemdelete ")
	require.NoError(t, err)
	assert.Equal(t, PermissionItemDelete, p)

	_, err = ParsePermission("SUPERUSER")
	assert.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	perms, err := ParsePermissions([]string{"USER", "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, []Permission{PermissionUser, PermissionAdmin}, perms)

	_, err = ParsePermissions([]string{"USER", "ROOT"})
	assert.Error(t, err)
}

// Every subset of granted permissions is checked against every subset of
// required ones: Require succeeds exactly when the two intersect.
func TestRequire_IntersectionProperty(t *testing.T) {
	n := len(AllPermissions)
	subset := func(mask int) []Permission {
		var out []Permission
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				out = append(out, AllPermissions[i])
			}
		}
		return out
	}

	for g := 0; g < 1<<n; g++ {
		for r := 0; r < 1<<n; r++ {
			granted, required := subset(g), subset(r)
			err := Require(&Identity{UserID: "u1", Permissions: granted}, required...)

			if g&r != 0 {
				assert.NoError(t, err, "granted=%v required=%v", granted, required)
			} else {
				assert.Error(t, err, "granted=%v required=%v", granted, required)
				assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
			}
		}
	}
}

func TestRequire_NilPrincipal(t *testing.T) {
	err := Require(nil, PermissionUser)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	var id *Identity
	err = Require(id, PermissionAdmin)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestRequire_MessageNamesPermissions(t *testing.T) {
	err := Require(&Identity{Permissions: []Permission{PermissionUser}}, PermissionAdmin, PermissionPermissionUpdate)
	assert.EqualError(t, err, "you do not have sufficient permissions: need one of [ADMIN, PERMISSIONUPDATE], you have [USER]")
}
