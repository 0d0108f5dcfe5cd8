package models

import "time"

// Invitation is a pending offer of a role to an email address within an
// organization. The token is single-use: accepting the invitation creates
// a membership and removes the invitation in the same transaction.
// Revocation and redemption are hard deletes so the token's unique index
// never holds tombstones.
type Invitation struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	Email          string    `gorm:"not null" json:"email"`
	Role           Role      `gorm:"type:varchar(20);default:'viewer'" json:"role"`
	Token          string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt      time.Time `gorm:"not null" json:"expires_at"`
	CreatedByID    uint      `gorm:"not null" json:"created_by_id"`

	// Relationships
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

// Expired reports whether the invitation is past its expiry.
func (i *Invitation) Expired() bool {
	return time.Now().After(i.ExpiresAt)
}
