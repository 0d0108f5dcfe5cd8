package models

import "time"

// Plan represents an organization's billing tier
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Organization represents a tenant in the multi-tenancy system.
// Organizations own documents, memberships and invitations, and scope
// document slugs. The slug doubles as the org's subdomain or path segment
// (e.g., "acme" -> acme.tudocs.com or tudocs.com/acme).
//
// Deletes are hard deletes: the slug's unique index must only see live
// rows, so a deleted organization's slug is immediately reusable.
type Organization struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"` // URL-safe identifier, unique across all orgs

	// Plan and limits. Limits are informational only; enforcement lives
	// in the billing system, not here.
	Plan         Plan `gorm:"type:varchar(20);default:'free'" json:"plan"`
	MaxDocuments int  `gorm:"default:50" json:"max_documents"`
	MaxMembers   int  `gorm:"default:3" json:"max_members"`

	// Branding
	Logo         string `json:"logo,omitempty"`
	PrimaryColor string `gorm:"default:'#000000'" json:"primary_color"`
	CustomDomain string `json:"custom_domain,omitempty"` // e.g., "docs.acme.com"

	// Relationships
	Members     []OrganizationMembership `gorm:"foreignKey:OrganizationID" json:"members,omitempty"`
	Documents   []Document               `gorm:"foreignKey:OrganizationID" json:"documents,omitempty"`
	Invitations []Invitation             `gorm:"foreignKey:OrganizationID" json:"invitations,omitempty"`
}

// OrganizationMembership represents the many-to-many relationship between
// users and organizations. A user can belong to multiple organizations with
// a different role in each; the (organization, user) pair is unique.
//
// Removal is a hard delete so the unique index never holds tombstones: a
// removed member can be re-invited and rejoin.
type OrganizationMembership struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	OrganizationID uint      `gorm:"not null;uniqueIndex:idx_org_user" json:"organization_id"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_org_user" json:"user_id"`
	Role           Role      `gorm:"type:varchar(20);default:'viewer'" json:"role"`

	// Relationships
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	User         User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
