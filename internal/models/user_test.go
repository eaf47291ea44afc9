package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoles_Has(t *testing.T) {
	roles := Roles{RoleTutor, RoleAdmin}
	assert.True(t, roles.Has(RoleTutor))
	assert.True(t, roles.Has(RoleAdmin))
	assert.False(t, roles.Has(RoleStudent))
}
