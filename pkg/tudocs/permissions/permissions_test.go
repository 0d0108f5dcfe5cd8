package permissions

import (
	"testing"

	"github.com/tudocs/tudocs/pkg/tudocs/models"
)

func TestRolePermissionSets(t *testing.T) {
	cases := []struct {
		role  models.Role
		perms []Permission
	}{
		{models.RoleOwner, []Permission{PermDeleteOrg, PermManageBilling, PermManageMembers, PermManageSettings, PermEditDocs, PermViewDocs}},
		{models.RoleAdmin, []Permission{PermManageMembers, PermManageSettings, PermEditDocs, PermViewDocs}},
		{models.RoleEditor, []Permission{PermEditDocs, PermViewDocs}},
		{models.RoleViewer, []Permission{PermViewDocs}},
	}

	for _, tc := range cases {
		got := PermissionsOf(tc.role)
		if len(got) != len(tc.perms) {
			t.Errorf("%s: expected %d permissions, got %d", tc.role, len(tc.perms), len(got))
		}
		for _, p := range tc.perms {
			if !HasPermission(tc.role, p) {
				t.Errorf("%s should have %s", tc.role, p)
			}
		}
	}
}

func TestRoleHierarchyIsMonotonic(t *testing.T) {
	chain := []models.Role{models.RoleOwner, models.RoleAdmin, models.RoleEditor, models.RoleViewer}

	for i := 0; i < len(chain)-1; i++ {
		higher, lower := chain[i], chain[i+1]
		for _, p := range PermissionsOf(lower) {
			if !HasPermission(higher, p) {
				t.Errorf("%s should grant everything %s grants, missing %s", higher, lower, p)
			}
		}
		if len(PermissionsOf(higher)) <= len(PermissionsOf(lower)) {
			t.Errorf("%s should grant strictly more than %s", higher, lower)
		}
	}
}

func TestDeniedPermissions(t *testing.T) {
	if HasPermission(models.RoleViewer, PermEditDocs) {
		t.Error("viewer should not have edit_docs")
	}
	if HasPermission(models.RoleEditor, PermManageMembers) {
		t.Error("editor should not have manage_members")
	}
	if HasPermission(models.RoleAdmin, PermDeleteOrg) {
		t.Error("admin should not have delete_org")
	}
	if HasPermission(models.RoleAdmin, PermManageBilling) {
		t.Error("admin should not have manage_billing")
	}
}

func TestUnknownRoleFailsClosed(t *testing.T) {
	if perms := PermissionsOf(models.Role("superuser")); len(perms) != 0 {
		t.Errorf("unknown role should have no permissions, got %v", perms)
	}
	if HasPermission(models.Role(""), PermViewDocs) {
		t.Error("empty role should have no permissions")
	}
}
