package user

type Permission string

const (
	// Punches
	PermissionPunchCreate  Permission = "punch.create"
	PermissionPunchViewOwn Permission = "punch.view_own"
	PermissionPunchViewAll Permission = "punch.view_all"

	// Justifications
	PermissionJustificationCreate  Permission = "justification.create"
	PermissionJustificationViewOwn Permission = "justification.view_own"
	PermissionJustificationViewAll Permission = "justification.view_all"
	PermissionJustificationReview  Permission = "justification.review"

	// Balances
	PermissionBalanceViewOwn Permission = "balance.view_own"
	PermissionBalanceViewAll Permission = "balance.view_all"
)

var employeePermissions = []Permission{
	PermissionPunchCreate,
	PermissionPunchViewOwn,
	PermissionJustificationCreate,
	PermissionJustificationViewOwn,
	PermissionBalanceViewOwn,
}

var managerPermissions = append(append([]Permission{}, employeePermissions...),
	PermissionPunchViewAll,
	PermissionJustificationViewAll,
	PermissionJustificationReview,
	PermissionBalanceViewAll,
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner:    managerPermissions,
	RoleManager:  managerPermissions,
	RoleEmployee: employeePermissions,
	RolePending:  {
		// Pending role has no permissions
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
