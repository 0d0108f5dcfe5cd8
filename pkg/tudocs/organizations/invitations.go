package organizations

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tudocs/tudocs/pkg/tudocs/auth"
	"github.com/tudocs/tudocs/pkg/tudocs/models"
	"github.com/tudocs/tudocs/pkg/tudocs/permissions"
	"gorm.io/gorm"
)

// invitationTTL is how long an invitation stays acceptable.
const invitationTTL = 7 * 24 * time.Hour

// CreateInvitationRequest represents the request to invite someone
type CreateInvitationRequest struct {
	Email string      `json:"email" binding:"required,email"`
	Role  models.Role `json:"role" binding:"required,oneof=owner admin editor viewer"`
}

// InvitationResponse represents an invitation in API responses.
// The token is only returned to the inviter at creation time; the
// acceptance flow delivers it to the invitee out of band (email).
type InvitationResponse struct {
	ID             uint   `json:"id"`
	OrganizationID uint   `json:"organization_id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Token          string `json:"token,omitempty"`
	ExpiresAt      string `json:"expires_at"`
	CreatedAt      string `json:"created_at"`
}

func invitationToResponse(inv models.Invitation, includeToken bool) InvitationResponse {
	resp := InvitationResponse{
		ID:             inv.ID,
		OrganizationID: inv.OrganizationID,
		Email:          inv.Email,
		Role:           string(inv.Role),
		ExpiresAt:      inv.ExpiresAt.Format("2006-01-02T15:04:05Z"),
		CreatedAt:      inv.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if includeToken {
		resp.Token = inv.Token
	}
	return resp
}

// CreateInvitation invites an email address to join an organization
// @Summary Invite a member
// @Description Create an invitation for an email address (requires manage_members permission)
// @Tags invitations
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param request body CreateInvitationRequest true "Invitation details"
// @Success 201 {object} InvitationResponse
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Security BearerAuth
// @Router /organizations/{id}/invitations [post]
func (h *Handler) CreateInvitation(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	orgID, ok := orgIDParam(c)
	if !ok {
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

	var req CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	// If the address already belongs to a member, don't create a dangling invite
	var existingUser models.User
	if err := h.db.Where("email = ?", email).First(&existingUser).Error; err == nil {
		if _, ok := permissions.RoleOf(h.db, existingUser.ID, orgID); ok {
			c.JSON(http.StatusConflict, gin.H{"error": "User is already a member"})
			return
		}
	}

	inv := models.Invitation{
		OrganizationID: orgID,
		Email:          email,
		Role:           req.Role,
		Token:          uuid.NewString(),
		ExpiresAt:      time.Now().Add(invitationTTL),
		CreatedByID:    userID,
	}
	if err := h.db.Create(&inv).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invitation"})
		return
	}

	c.JSON(http.StatusCreated, invitationToResponse(inv, true))
}

// ListInvitations returns the pending invitations of an organization
// @Summary List invitations
// @Description Get pending invitations (requires manage_members permission)
// @Tags invitations
// @Produce json
// @Param id path int true "Organization ID"
// @Success 200 {array} InvitationResponse
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Security BearerAuth
// @Router /organizations/{id}/invitations [get]
func (h *Handler) ListInvitations(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	orgID, ok := orgIDParam(c)
	if !ok {
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

	var invitations []models.Invitation
	if err := h.db.Where("organization_id = ?", orgID).Order("id asc").Find(&invitations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invitations"})
		return
	}

	resp := make([]InvitationResponse, len(invitations))
	for i, inv := range invitations {
		resp[i] = invitationToResponse(inv, false)
	}

	c.JSON(http.StatusOK, resp)
}

// RevokeInvitation deletes a pending invitation
// @Summary Revoke an invitation
// @Description Delete a pending invitation (requires manage_members permission)
// @Tags invitations
// @Produce json
// @Param id path int true "Organization ID"
// @Param inviteId path int true "Invitation ID"
// @Success 200 {object} map[string]string "Invitation revoked"
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Security BearerAuth
// @Router /organizations/{id}/invitations/{inviteId} [delete]
func (h *Handler) RevokeInvitation(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	orgID, ok := orgIDParam(c)
	if !ok {
		return
	}
	inviteID, err := strconv.ParseUint(c.Param("inviteId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invitation ID"})
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

	var inv models.Invitation
	if err := h.db.Where("organization_id = ? AND id = ?", orgID, inviteID).First(&inv).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
		return
	}

	if err := h.db.Delete(&inv).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke invitation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invitation revoked"})
}

// AcceptInvitation redeems an invitation token for the current user
// @Summary Accept an invitation
// @Description Join an organization using an invitation token
// @Tags invitations
// @Produce json
// @Param token path string true "Invitation token"
// @Success 201 {object} MemberResponse
// @Failure 404 {object} map[string]string "Invitation not found"
// @Failure 409 {object} map[string]string "Already a member"
// @Failure 410 {object} map[string]string "Invitation expired"
// @Security BearerAuth
// @Router /invitations/{token}/accept [post]
func (h *Handler) AcceptInvitation(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	token := c.Param("token")

	var inv models.Invitation
	if err := h.db.Where("token = ?", token).First(&inv).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
		return
	}

	if inv.Expired() {
		c.JSON(http.StatusGone, gin.H{"error": "Invitation has expired"})
		return
	}

	// Redeem the token and create the membership in one transaction so a
	// token can never be accepted twice.
	membership := models.OrganizationMembership{
		OrganizationID: inv.OrganizationID,
		UserID:         userID,
		Role:           inv.Role,
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}
		return tx.Delete(&inv).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "You are already a member of this organization"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept invitation"})
		return
	}

	var user models.User
	h.db.First(&user, userID)
	membership.User = user
	c.JSON(http.StatusCreated, memberToResponse(membership))
}

// RegisterInvitationRoutes registers org-scoped invitation routes
func (h *Handler) RegisterInvitationRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/invitations", h.CreateInvitation)
	rg.GET("/:id/invitations", h.ListInvitations)
	rg.DELETE("/:id/invitations/:inviteId", h.RevokeInvitation)
}

// RegisterAcceptRoute registers the token acceptance route
func (h *Handler) RegisterAcceptRoute(rg *gin.RouterGroup) {
	rg.POST("/invitations/:token/accept", h.AcceptInvitation)
}
