package organizations

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tudocs/tudocs/pkg/tudocs/auth"
	"github.com/tudocs/tudocs/pkg/tudocs/models"
	"github.com/tudocs/tudocs/pkg/tudocs/permissions"
)

// MemberResponse represents a member in API responses
type MemberResponse struct {
	ID        uint   `json:"id"`
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// UpdateMemberRequest represents the request to update a member's role
type UpdateMemberRequest struct {
	Role models.Role `json:"role" binding:"required,oneof=owner admin editor viewer"`
}

func memberToResponse(m models.OrganizationMembership) MemberResponse {
	return MemberResponse{
		ID:        m.ID,
		UserID:    m.UserID,
		Email:     m.User.Email,
		Name:      m.User.Name,
		Role:      string(m.Role),
		CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *Handler) ownerCount(orgID uint) int64 {
	var count int64
	h.db.Model(&models.OrganizationMembership{}).Where("organization_id = ? AND role = ?", orgID, models.RoleOwner).Count(&count)
	return count
}

// ListMembers returns all members of an organization
// @Summary List organization members
// @Description Get all members of an organization (requires membership)
// @Tags organizations
// @Produce json
// @Param id path int true "Organization ID"
// @Success 200 {array} MemberResponse
// @Failure 403 {object} map[string]string "No membership"
// @Security BearerAuth
// @Router /organizations/{id}/members [get]
func (h *Handler) ListMembers(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	orgID, ok := orgIDParam(c)
	if !ok {
		return
	}

	if _, ok := permissions.RoleOf(h.db, userID, orgID); !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this organization"})
		return
	}

	var memberships []models.OrganizationMembership
	if err := h.db.Preload("User").Where("organization_id = ?", orgID).Order("id asc").Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}

	members := make([]MemberResponse, len(memberships))
	for i, m := range memberships {
		members[i] = memberToResponse(m)
	}

	c.JSON(http.StatusOK, members)
}

// UpdateMember updates a member's role
// @Summary Update a member's role
// @Description Change a member's role in an organization (requires manage_members permission)
// @Tags organizations
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param userId path int true "User ID"
// @Param request body UpdateMemberRequest true "Updated role"
// @Success 200 {object} MemberResponse
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Security BearerAuth
// @Router /organizations/{id}/members/{userId} [patch]
func (h *Handler) UpdateMember(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	orgID, ok := orgIDParam(c)
	if !ok {
		return
	}
	targetUserID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if _, err := permissions.Authorize(h.db, userID, orgID, permissions.PermManageMembers); err != nil {
		if errors.Is(err, permissions.ErrNoMembership) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this organization"})
		} else {
			c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to manage members"})
		}
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var membership models.OrganizationMembership
	if err := h.db.Preload("User").Where("organization_id = ? AND user_id = ?", orgID, targetUserID).First(&membership).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	// An organization must always keep at least one owner
	if membership.Role == models.RoleOwner && req.Role != models.RoleOwner && h.ownerCount(orgID) <= 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot demote the only owner"})
		return
	}

	membership.Role = req.Role
	if err := h.db.Save(&membership).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update member"})
		return
	}

	c.JSON(http.StatusOK, memberToResponse(membership))
}

// RemoveMember removes a member from an organization
// @Summary Remove a member from an organization
// @Description Remove a member (requires manage_members permission, or self-removal)
// @Tags organizations
// @Produce json
// @Param id path int true "Organization ID"
// @Param userId path int true "User ID"
// @Success 200 {object} map[string]string "Member removed"
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Security BearerAuth
// @Router /organizations/{id}/members/{userId} [delete]
func (h *Handler) RemoveMember(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	orgID, ok := orgIDParam(c)
	if !ok {
		return
	}
	targetUserID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	// Members may always remove themselves; removing others needs
	// manage_members.
	if userID != uint(targetUserID) {
		if _, err := permissions.Authorize(h.db, userID, orgID, permissions.PermManageMembers); err != nil {
			if errors.Is(err, permissions.ErrNoMembership) {
				c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this organization"})
			} else {
				c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to manage members"})
			}
			return
		}
	}

	var membership models.OrganizationMembership
	if err := h.db.Where("organization_id = ? AND user_id = ?", orgID, targetUserID).First(&membership).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	if membership.Role == models.RoleOwner && h.ownerCount(orgID) <= 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot remove the only owner"})
		return
	}

	if err := h.db.Delete(&membership).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// RegisterMemberRoutes registers member management routes
func (h *Handler) RegisterMemberRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/members", h.ListMembers)
	rg.PATCH("/:id/members/:userId", h.UpdateMember)
	rg.DELETE("/:id/members/:userId", h.RemoveMember)
}
