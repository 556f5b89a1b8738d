package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilitiesOf(t *testing.T) {
	admin := CapabilitiesOf(RoleAdmin)
	assert.True(t, admin.CanInvite)
	assert.True(t, admin.CanRemove)
	assert.True(t, admin.CanEditGroup)
	assert.True(t, admin.IsAdmin)

	moderator := CapabilitiesOf(RoleModerator)
	assert.True(t, moderator.CanInvite)
	assert.False(t, moderator.CanRemove)
	assert.False(t, moderator.CanEditGroup)
	assert.False(t, moderator.IsAdmin)

	user := CapabilitiesOf(RoleUser)
	assert.Equal(t, Capabilities{}, user)

	unknown := CapabilitiesOf("owner")
	assert.Equal(t, Capabilities{}, unknown)
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleModerator))
	assert.True(t, ValidRole(RoleUser))
	assert.False(t, ValidRole("owner"))
	assert.False(t, ValidRole(""))
}
