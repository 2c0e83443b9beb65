package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleOwner.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleMember.Valid())
	assert.False(t, Role("superuser").Valid())
	assert.False(t, Role("").Valid())
}

func TestRoleCanManage(t *testing.T) {
	assert.True(t, RoleOwner.CanManage(RoleOwner))
	assert.True(t, RoleOwner.CanManage(RoleAdmin))
	assert.True(t, RoleOwner.CanManage(RoleMember))

	assert.False(t, RoleAdmin.CanManage(RoleOwner))
	assert.False(t, RoleAdmin.CanManage(RoleAdmin))
	assert.True(t, RoleAdmin.CanManage(RoleMember))

	assert.False(t, RoleMember.CanManage(RoleMember))
	assert.False(t, RoleMember.CanManage(RoleAdmin))
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleOwner.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))
	assert.False(t, RoleMember.AtLeast(RoleAdmin))
	assert.False(t, Role("unknown").AtLeast(RoleMember))
}
