package models

import (
	"encoding/json"
	"time"
)

// Document represents a node in an organization's content tree.
// Slugs are unique within the owning organization (not globally), and
// ParentID, when set, must reference a document in the same organization.
// The parent is fixed at creation; documents are not reparented.
//
// Deletes are hard deletes: the (organization, slug) unique index must only
// see live rows, so a deleted document's slug is immediately reusable.
type Document struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrganizationID uint   `gorm:"not null;index;uniqueIndex:idx_org_doc_slug" json:"organization_id"`
	Title          string `gorm:"not null" json:"title"`
	Slug           string `gorm:"not null;uniqueIndex:idx_org_doc_slug" json:"slug"`

	// Content is an opaque JSON blob owned by the editor frontend.
	Content json.RawMessage `gorm:"type:json" json:"content,omitempty"`

	ParentID  *uint `gorm:"index" json:"parent_id,omitempty"`
	Order     int   `gorm:"not null;default:0" json:"order"` // sibling sort position, display only
	Published bool  `gorm:"not null;default:false" json:"published"`

	CreatedByID    uint  `gorm:"not null" json:"created_by_id"`
	LastEditedByID *uint `json:"last_edited_by_id,omitempty"`

	// Relationships
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	Parent       *Document    `gorm:"foreignKey:ParentID" json:"-"`
	Children     []Document   `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}
