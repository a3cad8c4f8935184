package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

// AdminHandlers handles the admin-only user management endpoints
type AdminHandlers struct {
	users domain.UserRepository
}

// NewAdminHandlers creates new admin handlers
func NewAdminHandlers(users domain.UserRepository) *AdminHandlers {
	return &AdminHandlers{users: users}
}

// BlacklistRequest represents a blacklist toggle request
type BlacklistRequest struct {
	Blacklisted *bool `json:"blacklisted" binding:"required"`
}

// SetBlacklist toggles the blacklist flag on a user account
func (h *AdminHandlers) SetBlacklist(c *gin.Context) {
	var req BlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.Param("id")
	if err := h.users.SetBlacklisted(c.Request.Context(), userID, *req.Blacklisted); err != nil {
		if err == domain.ErrUserNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"userId":      userID,
			"blacklisted": *req.Blacklisted,
		},
	})
}

// GetUser returns one user account
func (h *AdminHandlers) GetUser(c *gin.Context) {
	user, err := h.users.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == domain.ErrUserNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}
