package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleViewer, PermissionReadDashboard))
	assert.False(t, HasPermission(RoleViewer, PermissionUpdateTask))

	assert.True(t, HasPermission("", PermissionUpdateTask), "empty role is a user")
	assert.False(t, HasPermission(RoleUser, PermissionReplayJournal))
	assert.True(t, HasPermission(RoleAdmin, PermissionReplayJournal))

	assert.False(t, HasPermission("intruder", PermissionReadDashboard))
}

func TestCheckPermission(t *testing.T) {
	assert.NoError(t, CheckPermission("u1", RoleUser, PermissionUseAI))

	err := CheckPermission("u1", RoleViewer, PermissionUseAI)
	var denied *PermissionDeniedError
	assert.ErrorAs(t, err, &denied)
	assert.Equal(t, PermissionUseAI, denied.Permission)
}

func TestValidateUserIDInPayload(t *testing.T) {
	assert.NoError(t, ValidateUserIDInPayload("u1", ""))
	assert.NoError(t, ValidateUserIDInPayload("u1", "u1"))

	var mismatch *UserIDMismatchError
	assert.ErrorAs(t, ValidateUserIDInPayload("u1", "u2"), &mismatch)
}
