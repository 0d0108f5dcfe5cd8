// Package permissions maps organization roles to the capabilities they
// grant, and answers "may user U do X in organization O" against current
// membership state. Every mutating handler calls Authorize before touching
// the store; decisions are never cached, so a revoked role takes effect on
// the next request.
package permissions

import "github.com/tudocs/tudocs/pkg/tudocs/models"

// Permission is an atomic capability gating one class of operation.
// The set is closed: permissions are values of this type, never free-form
// strings, so an unknown permission cannot sneak into a check.
type Permission string

const (
	PermDeleteOrg      Permission = "delete_org"
	PermManageBilling  Permission = "manage_billing"
	PermManageMembers  Permission = "manage_members"
	PermManageSettings Permission = "manage_settings"
	PermEditDocs       Permission = "edit_docs"
	PermViewDocs       Permission = "view_docs"
)

// rolePermissions is the fixed role -> permission table. Each role's set is
// a superset of the next role down the chain.
var rolePermissions = map[models.Role][]Permission{
	models.RoleOwner:  {PermDeleteOrg, PermManageBilling, PermManageMembers, PermManageSettings, PermEditDocs, PermViewDocs},
	models.RoleAdmin:  {PermManageMembers, PermManageSettings, PermEditDocs, PermViewDocs},
	models.RoleEditor: {PermEditDocs, PermViewDocs},
	models.RoleViewer: {PermViewDocs},
}

// PermissionsOf returns the permissions granted by a role.
// Unknown roles get no permissions (fail closed).
func PermissionsOf(role models.Role) []Permission {
	return rolePermissions[role]
}

// HasPermission reports whether the role grants the permission.
func HasPermission(role models.Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
