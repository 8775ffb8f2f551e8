package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]Role{
		"admin":      RoleAdmin,
		"ADMIN":      RoleAdmin,
		"org:admin":  RoleAdmin,
		"org:Owner":  RoleOwner,
		"oRG:admin":  RoleAdmin,
		"ORG:owner":  RoleOwner,
		"guest":      RoleGuest,
		"":           RoleMember,
		"contractor": RoleMember,
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestRequireAllowsAtOrAboveMinimum(t *testing.T) {
	assert.NoError(t, Require(RoleAdmin, RoleMember))
	assert.NoError(t, Require(RoleOwner, RoleOwner))
}

func TestRequireRejectsBelowMinimum(t *testing.T) {
	err := Require(RoleMember, RoleAdmin)
	if assert.Error(t, err) {
		assert.Equal(t, "requires role ADMIN or higher", err.Error())
	}
}

func TestRequireUnknownRoleNeverSatisfies(t *testing.T) {
	assert.Error(t, Require(Role("bogus"), RoleGuest))
}
