package permissions

import (
	"errors"

	"github.com/tudocs/tudocs/pkg/tudocs/models"
	"gorm.io/gorm"
)

var (
	// ErrNoMembership means the user has no role at all in the organization.
	ErrNoMembership = errors.New("no membership in organization")
	// ErrInsufficientPermission means the user has a role, but it does not
	// grant the required permission.
	ErrInsufficientPermission = errors.New("insufficient permission")
)

// RoleOf returns the user's role in the organization. The second return is
// false when the user has no membership there; absence is not an error.
func RoleOf(db *gorm.DB, userID, orgID uint) (models.Role, bool) {
	var membership models.OrganizationMembership
	if err := db.Where("user_id = ? AND organization_id = ?", userID, orgID).First(&membership).Error; err != nil {
		return "", false
	}
	return membership.Role, true
}

// Authorize checks that the user holds the permission in the organization
// and returns the role it resolved. It re-reads membership state on every
// call. Failures distinguish "not a member" from "member without the
// permission" so handlers can report them separately.
func Authorize(db *gorm.DB, userID, orgID uint, perm Permission) (models.Role, error) {
	role, ok := RoleOf(db, userID, orgID)
	if !ok {
		return "", ErrNoMembership
	}
	if !HasPermission(role, perm) {
		return role, ErrInsufficientPermission
	}
	return role, nil
}
