package rbac

import "slices"

// 权限常量
const (
	PermissionReadDashboard      = "dashboard:read"
	PermissionUpdateTask         = "task:update"
	PermissionDeleteTask         = "task:delete"
	PermissionLogHabit           = "habit:log"
	PermissionBulkCreateSchedule = "schedule:bulk_create"
	PermissionReplanTasks        = "task:replan"
	PermissionUseAI              = "ai:use"
	PermissionReplayJournal      = "journal:replay"
)

// 角色常量
const (
	RoleUser   = "user"
	RoleViewer = "viewer" // 只读，例如小组看板
	RoleAdmin  = "admin"
)

var rolePermissions = map[string][]string{
	RoleViewer: {
		PermissionReadDashboard,
	},
	RoleUser: {
		PermissionReadDashboard,
		PermissionUpdateTask,
		PermissionDeleteTask,
		PermissionLogHabit,
		PermissionBulkCreateSchedule,
		PermissionReplanTasks,
		PermissionUseAI,
	},
	RoleAdmin: {
		PermissionReadDashboard,
		PermissionUpdateTask,
		PermissionDeleteTask,
		PermissionLogHabit,
		PermissionBulkCreateSchedule,
		PermissionReplanTasks,
		PermissionUseAI,
		PermissionReplayJournal,
	},
}

// NormalizeRole 空角色按 user 处理
func NormalizeRole(role string) string {
	if role == "" {
		return RoleUser
	}
	return role
}

func HasPermission(role, permission string) bool {
	permissions, ok := rolePermissions[NormalizeRole(role)]
	if !ok {
		return false
	}
	return slices.Contains(permissions, permission)
}

// CheckPermission 返回错误而不是布尔值，便于 handler 处理
func CheckPermission(userID, role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{UserID: userID, Permission: permission}
	}
	return nil
}

// PermissionDeniedError 表示权限不足
type PermissionDeniedError struct {
	UserID     string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions: " + e.Permission
}

// ValidateUserIDInPayload payload 中的 user_id 必须与 token 一致
func ValidateUserIDInPayload(tokenUserID, payloadUserID string) error {
	if payloadUserID != "" && payloadUserID != tokenUserID {
		return &UserIDMismatchError{TokenUserID: tokenUserID, PayloadUserID: payloadUserID}
	}
	return nil
}

type UserIDMismatchError struct {
	TokenUserID   string
	PayloadUserID string
}

func (e *UserIDMismatchError) Error() string {
	return "user_id in payload does not match token"
}
