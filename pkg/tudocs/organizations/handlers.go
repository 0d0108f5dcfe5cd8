package organizations

import (
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
)

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$|^[a-z0-9]$`)

// Handler handles organization-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new organizations handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateOrgRequest represents the request to create an organization
type CreateOrgRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
	Slug string `json:"slug" binding:"omitempty,min=1,max=50"`
}

// UpdateOrgRequest represents the request to update an organization.
// Fields are pointers so "absent" and "present but empty" are distinct:
// a supplied empty logo clears it, an absent one leaves it untouched.
type UpdateOrgRequest struct {
	Name         *string `json:"name"`
	Logo         *string `json:"logo"`
	PrimaryColor *string `json:"primary_color"`
	CustomDomain *string `json:"custom_domain"`
}

// OrgResponse represents an organization in API responses
type OrgResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Plan         string `json:"plan"`
	MaxDocuments int    `json:"max_documents"`
	MaxMembers   int    `json:"max_members"`
	Logo         string `json:"logo,omitempty"`
	PrimaryColor string `json:"primary_color"`
	CustomDomain string `json:"custom_domain,omitempty"`
	Role         string `json:"role,omitempty"` // Caller's role in this org
	MemberCount  int    `json:"member_count,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func orgToResponse(org models.Organization, role models.Role, memberCount int) OrgResponse {
	return OrgResponse{
		ID:           org.ID,
		Name:         org.Name,
		Slug:         org.Slug,
		Plan:         string(org.Plan),
		MaxDocuments: org.MaxDocuments,
		MaxMembers:   org.MaxMembers,
		Logo:         org.Logo,
		PrimaryColor: org.PrimaryColor,
		CustomDomain: org.CustomDomain,
		Role:         string(role),
		MemberCount:  memberCount,
		CreatedAt:    org.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// validateSlug checks if an organization slug is valid and available
func (h *Handler) validateSlug(s string) error {
	if s == "" {
		return &ValidationError{"Slug is required"}
	}

	// Check format (lowercase alphanumeric with hyphens, no leading/trailing hyphens)
	if !slugRegex.MatchString(s) {
		return &ValidationError{"Slug must contain only lowercase letters, numbers, and hyphens (no leading/trailing hyphens)"}
	}

	// Check reserved slugs
	reserved := []string{"api", "health", "admin", "login", "logout", "register", "auth", "docs"}
	for _, r := range reserved {
		if strings.EqualFold(s, r) {
			return &ValidationError{"This slug is reserved"}
		}
	}

	return nil
}

func orgIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) memberCount(orgID uint) int {
	var count int64
	h.db.Model(&models.OrganizationMembership{}).Where("organization_id = ?", orgID).Count(&count)
	return int(count)
}

// List returns all organizations the current user is a member of
// @Summary List organizations
// @Description Get all organizations the current user is a member of
// @Tags organizations
// @Produce json
// @Success 200 {array} OrgResponse
// @Security BearerAuth
// @Router /organizations [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var memberships []models.OrganizationMembership
	if err := h.db.Preload("Organization").Where("user_id = ?", userID).Order("organization_id asc").Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch organizations"})
		return
	}

	orgs := make([]OrgResponse, len(memberships))
	for i, m := range memberships {
		orgs[i] = orgToResponse(m.Organization, m.Role, h.memberCount(m.OrganizationID))
	}

	c.JSON(http.StatusOK, orgs)
}

// Create creates a new organization and adds the creator as owner
// @Summary Create an organization
// @Description Create a new organization with the current user as owner
// @Tags organizations
// @Accept json
// @Produce json
// @Param request body CreateOrgRequest true "Organization details"
// @Success 201 {object} OrgResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Slug already in use"
// @Security BearerAuth
// @Router /organizations [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}

	// Derive slug from name unless one was supplied
	orgSlug := strings.ToLower(strings.TrimSpace(req.Slug))
	if orgSlug == "" {
		orgSlug = slug.Make(name)
	}
	if err := h.validateSlug(orgSlug); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.Organization
	if err := h.db.Where("slug = ?", orgSlug).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "This slug is already in use"})
		return
	}

	// Create organization and owner membership atomically: an organization
	// without an owner must never exist.
	org := models.Organization{
		Name: name,
		Slug: orgSlug,
		Plan: models.PlanFree,
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return err
		}

		membership := models.OrganizationMembership{
			OrganizationID: org.ID,
			UserID:         userID,
			Role:           models.RoleOwner,
		}
		return tx.Create(&membership).Error
	})

	if err != nil {
		// The unique index is the real arbiter: a concurrent creator racing
		// for the same slug loses here, not at the pre-check above.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "This slug is already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization"})
		return
	}

	c.JSON(http.StatusCreated, orgToResponse(org, models.RoleOwner, 1))
}

// Get returns a specific organization
// @Summary Get an organization
// @Description Get details of a specific organization (requires membership)
// @Tags organizations
// @Produce json
// @Param id path int true "Organization ID"
// @Success 200 {object} OrgResponse
// @Failure 403 {object} map[string]string "No membership"
// @Failure 404 {object} map[string]string "Organization not found"
// @Security BearerAuth
// @Router /organizations/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	orgID, ok := orgIDParam(c)
	if !ok {
		return
	}

	role, ok := permissions.RoleOf(h.db, userID, orgID)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this organization"})
		return
	}

	var org models.Organization
	if err := h.db.First(&org, orgID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	c.JSON(http.StatusOK, orgToResponse(org, role, h.memberCount(orgID)))
}

// Update updates an organization's settings
// @Summary Update an organization
// @Description Update organization settings (requires manage_settings permission)
// @Tags organizations
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param request body UpdateOrgRequest true "Updated organization details"
// @Success 200 {object} OrgResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Security BearerAuth
// @Router /organizations/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	orgID, ok := orgIDParam(c)
	if !ok {
		return
	}

	role, err := permissions.Authorize(h.db, userID, orgID, permissions.PermManageSettings)
	if err != nil {
		if errors.Is(err, permissions.ErrNoMembership) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this organization"})
		} else {
			c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to edit this organization"})
		}
		return
	}

	var req UpdateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var org models.Organization
	if err := h.db.First(&org, orgID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	// Apply only the fields that were supplied
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name cannot be empty"})
			return
		}
		org.Name = name
	}
	if req.Logo != nil {
		org.Logo = *req.Logo
	}
	if req.PrimaryColor != nil {
		org.PrimaryColor = *req.PrimaryColor
	}
	if req.CustomDomain != nil {
		org.CustomDomain = *req.CustomDomain
	}

	if err := h.db.Save(&org).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update organization"})
		return
	}

	c.JSON(http.StatusOK, orgToResponse(org, role, h.memberCount(orgID)))
}

// Delete deletes an organization and everything it owns
// @Summary Delete an organization
// @Description Delete an organization, its memberships, documents, and invitations (requires delete_org permission)
// @Tags organizations
// @Produce json
// @Param id path int true "Organization ID"
// @Success 200 {object} map[string]string "Organization deleted"
// @Failure 403 {object} map[string]string "Only the owner can delete the organization"
// @Security BearerAuth
// @Router /organizations/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	orgID, ok := orgIDParam(c)
	if !ok {
		return
	}

	if _, err := permissions.Authorize(h.db, userID, orgID, permissions.PermDeleteOrg); err != nil {
		if errors.Is(err, permissions.ErrNoMembership) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this organization"})
		} else {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can delete the organization"})
		}
		return
	}

	var org models.Organization
	if err := h.db.First(&org, orgID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	// Cascade in a single transaction: memberships, documents and
	// invitations go with the organization, all-or-nothing.
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization_id = ?", orgID).Delete(&models.OrganizationMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("organization_id = ?", orgID).Delete(&models.Document{}).Error; err != nil {
			return err
		}
		if err := tx.Where("organization_id = ?", orgID).Delete(&models.Invitation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&org).Error
	})

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete organization"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Organization deleted"})
}

// RegisterRoutes registers organization routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
