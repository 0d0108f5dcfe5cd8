package documents

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/tudocs/tudocs/pkg/tudocs/auth"
	"github.com/tudocs/tudocs/pkg/tudocs/models"
	"github.com/tudocs/tudocs/pkg/tudocs/permissions"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$|^[a-z0-9]$`)

// Handler handles document-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new documents handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateDocumentRequest represents the request to create a document
type CreateDocumentRequest struct {
	Title    string          `json:"title" binding:"required,min=1,max=200"`
	Slug     string          `json:"slug" binding:"omitempty,min=1,max=100"`
	Content  json.RawMessage `json:"content"`
	ParentID *uint           `json:"parent_id"`
}

// UpdateDocumentRequest represents the request to update a document.
// Pointer fields distinguish "absent" from "present but zero": order 0 is
// applied, an omitted order is left alone. The parent is not updatable.
type UpdateDocumentRequest struct {
	Title     *string         `json:"title"`
	Slug      *string         `json:"slug"`
	Content   json.RawMessage `json:"content"`
	Published *bool           `json:"published"`
	Order     *int            `json:"order"`
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	ID             uint               `json:"id"`
	OrganizationID uint               `json:"organization_id"`
	Title          string             `json:"title"`
	Slug           string             `json:"slug"`
	Content        json.RawMessage    `json:"content,omitempty"`
	ParentID       *uint              `json:"parent_id,omitempty"`
	Order          int                `json:"order"`
	Published      bool               `json:"published"`
	CreatedByID    uint               `json:"created_by_id"`
	LastEditedByID *uint              `json:"last_edited_by_id,omitempty"`
	CreatedAt      string             `json:"created_at"`
	UpdatedAt      string             `json:"updated_at"`
	Children       []DocumentResponse `json:"children,omitempty"`
}

func docToResponse(doc models.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:             doc.ID,
		OrganizationID: doc.OrganizationID,
		Title:          doc.Title,
		Slug:           doc.Slug,
		Content:        doc.Content,
		ParentID:       doc.ParentID,
		Order:          doc.Order,
		Published:      doc.Published,
		CreatedByID:    doc.CreatedByID,
		LastEditedByID: doc.LastEditedByID,
		CreatedAt:      doc.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:      doc.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	for _, child := range doc.Children {
		resp.Children = append(resp.Children, docToResponse(child))
	}
	return resp
}

// ValidationError represents a validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validateSlug(s string) error {
	if !slugRegex.MatchString(s) {
		return &ValidationError{"Slug must contain only lowercase letters, numbers, and hyphens (no leading/trailing hyphens)"}
	}
	return nil
}

// byOrder sorts siblings by their display position.
// "order" is a SQL keyword, so it goes through a clause to get quoted.
func byOrder(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}})
}

func (h *Handler) respondAuthzError(c *gin.Context, err error) {
	if errors.Is(err, permissions.ErrNoMembership) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this organization"})
		return
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to edit documents"})
}

// List returns the organization's document forest
// @Summary List documents
// @Description Get root documents with children and grandchildren, ordered by position (requires membership)
// @Tags documents
// @Produce json
// @Param id path int true "Organization ID"
// @Success 200 {array} DocumentResponse
// @Failure 403 {object} map[string]string "No membership"
// @Security BearerAuth
// @Router /organizations/{id}/documents [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	orgID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return
	}

	if _, ok := permissions.RoleOf(h.db, userID, uint(orgID)); !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this organization"})
		return
	}

	// Roots with two levels of descendants; deeper subtrees are fetched on
	// demand via Get.
	var docs []models.Document
	if err := h.db.Scopes(byOrder).
		Preload("Children", byOrder).
		Preload("Children.Children", byOrder).
		Where("organization_id = ? AND parent_id IS NULL", orgID).
		Find(&docs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch documents"})
		return
	}

	resp := make([]DocumentResponse, len(docs))
	for i, doc := range docs {
		resp[i] = docToResponse(doc)
	}

	c.JSON(http.StatusOK, resp)
}

// Create creates a new document in an organization
// @Summary Create a document
// @Description Create a document, optionally under a parent in the same organization (requires edit_docs permission)
// @Tags documents
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param request body CreateDocumentRequest true "Document details"
// @Success 201 {object} DocumentResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Failure 409 {object} map[string]string "Slug already in use"
// @Security BearerAuth
// @Router /organizations/{id}/documents [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	orgID64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return
	}
	orgID := uint(orgID64)

	if _, err := permissions.Authorize(h.db, userID, orgID, permissions.PermEditDocs); err != nil {
		h.respondAuthzError(c, err)
		return
	}

	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	docSlug := strings.ToLower(strings.TrimSpace(req.Slug))
	if docSlug == "" {
		docSlug = slug.Make(title)
	}
	if err := validateSlug(docSlug); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// A parent must exist and live in the same organization
	if req.ParentID != nil {
		var parent models.Document
		if err := h.db.First(&parent, *req.ParentID).Error; err != nil || parent.OrganizationID != orgID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Parent document not found in this organization"})
			return
		}
	}

	var existing models.Document
	if err := h.db.Where("organization_id = ? AND slug = ?", orgID, docSlug).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A document with this slug already exists in this organization"})
		return
	}

	doc := models.Document{
		OrganizationID: orgID,
		Title:          title,
		Slug:           docSlug,
		Content:        req.Content,
		ParentID:       req.ParentID,
		Published:      false,
		CreatedByID:    userID,
		LastEditedByID: &userID,
	}

	// Position after the last sibling. Read-max-then-insert races can
	// produce a duplicate order value; that's acceptable, order is a
	// display-only sort key.
	err = h.db.Transaction(func(tx *gorm.DB) error {
		siblings := tx.Model(&models.Document{}).Where("organization_id = ?", orgID)
		if req.ParentID != nil {
			siblings = siblings.Where("parent_id = ?", *req.ParentID)
		} else {
			siblings = siblings.Where("parent_id IS NULL")
		}

		var last models.Document
		if err := siblings.Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}, Desc: true}).First(&last).Error; err == nil {
			doc.Order = last.Order + 1
		}

		return tx.Create(&doc).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "A document with this slug already exists in this organization"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create document"})
		return
	}

	c.JSON(http.StatusCreated, docToResponse(doc))
}

// Get returns a document with its immediate children
// @Summary Get a document
// @Description Get a document and its immediate children (requires membership in the owning organization)
// @Tags documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} DocumentResponse
// @Failure 403 {object} map[string]string "No membership"
// @Failure 404 {object} map[string]string "Document not found"
// @Security BearerAuth
// @Router /documents/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	docID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
		return
	}

	var doc models.Document
	if err := h.db.Preload("Children", byOrder).First(&doc, docID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	if _, ok := permissions.RoleOf(h.db, userID, doc.OrganizationID); !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this document"})
		return
	}

	c.JSON(http.StatusOK, docToResponse(doc))
}

// Update updates a document
// @Summary Update a document
// @Description Partially update a document's title, slug, content, published flag or position (requires edit_docs permission)
// @Tags documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param request body UpdateDocumentRequest true "Updated fields"
// @Success 200 {object} DocumentResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Failure 409 {object} map[string]string "Slug already in use"
// @Security BearerAuth
// @Router /documents/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	docID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
		return
	}

	var doc models.Document
	if err := h.db.First(&doc, docID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	if _, err := permissions.Authorize(h.db, userID, doc.OrganizationID, permissions.PermEditDocs); err != nil {
		h.respondAuthzError(c, err)
		return
	}

	var req UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Title cannot be empty"})
			return
		}
		doc.Title = title
	}
	if req.Slug != nil && *req.Slug != doc.Slug {
		newSlug := strings.ToLower(strings.TrimSpace(*req.Slug))
		if err := validateSlug(newSlug); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var existing models.Document
		if err := h.db.Where("organization_id = ? AND slug = ? AND id != ?", doc.OrganizationID, newSlug, doc.ID).First(&existing).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "A document with this slug already exists in this organization"})
			return
		}
		doc.Slug = newSlug
	}
	if req.Content != nil {
		doc.Content = req.Content
	}
	if req.Published != nil {
		doc.Published = *req.Published
	}
	if req.Order != nil {
		doc.Order = *req.Order
	}
	doc.LastEditedByID = &userID

	if err := h.db.Save(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "A document with this slug already exists in this organization"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update document"})
		return
	}

	c.JSON(http.StatusOK, docToResponse(doc))
}

// Delete deletes a document and its entire subtree
// @Summary Delete a document
// @Description Delete a document and, recursively, all of its descendants (requires edit_docs permission)
// @Tags documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} map[string]string "Document deleted"
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Failure 404 {object} map[string]string "Document not found"
// @Security BearerAuth
// @Router /documents/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	docID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
		return
	}

	var doc models.Document
	if err := h.db.First(&doc, docID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	if _, err := permissions.Authorize(h.db, userID, doc.OrganizationID, permissions.PermEditDocs); err != nil {
		h.respondAuthzError(c, err)
		return
	}

	// Collect the subtree and delete it in one transaction: either the
	// whole subtree goes or none of it does.
	err = h.db.Transaction(func(tx *gorm.DB) error {
		ids := []uint{doc.ID}
		seen := map[uint]bool{doc.ID: true}
		frontier := []uint{doc.ID}

		for len(frontier) > 0 {
			var children []models.Document
			if err := tx.Select("id").Where("parent_id IN ?", frontier).Find(&children).Error; err != nil {
				return err
			}
			frontier = frontier[:0]
			for _, child := range children {
				if seen[child.ID] {
					continue
				}
				seen[child.ID] = true
				ids = append(ids, child.ID)
				frontier = append(frontier, child.ID)
			}
		}

		return tx.Where("id IN ?", ids).Delete(&models.Document{}).Error
	})

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete document"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}

// RegisterOrgRoutes registers the organization-scoped document routes
func (h *Handler) RegisterOrgRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/documents", h.List)
	rg.POST("/:id/documents", h.Create)
}

// RegisterRoutes registers document routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
