package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
	"github.com/AdityaKushwaha94/Email-Sender/internal/http/middleware"
)

// VerificationHandlers handles sender email verification requests
type VerificationHandlers struct {
	verifySvc domain.VerificationService
}

// NewVerificationHandlers creates new verification handlers
func NewVerificationHandlers(verifySvc domain.VerificationService) *VerificationHandlers {
	return &VerificationHandlers{verifySvc: verifySvc}
}

// AddCredentialsRequest represents a request to start verifying a sender address
type AddCredentialsRequest struct {
	SenderEmail string `json:"senderEmail" binding:"required,email"`
}

// VerifyOTPRequest represents an OTP confirmation request
type VerifyOTPRequest struct {
	Code string `json:"otp" binding:"required,len=6"`
}

// ConfigureSMTPRequest represents a custom SMTP server configuration
type ConfigureSMTPRequest struct {
	SMTPHost       string `json:"smtpHost" binding:"required"`
	SMTPPort       int    `json:"smtpPort" binding:"required"`
	SenderPassword string `json:"senderPassword" binding:"required"`
}

// AddCredentials stores a candidate sender address and emails a code to it
func (h *VerificationHandlers) AddCredentials(c *gin.Context) {
	var req AddCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expiry, err := h.verifySvc.RequestOTP(c.Request.Context(), middleware.CurrentUserID(c), req.SenderEmail)
	if err != nil {
		h.writeVerificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message":   "Verification code sent",
			"expiresAt": expiry,
		},
	})
}

// VerifyOTP confirms the emailed code
func (h *VerificationHandlers) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creds, err := h.verifySvc.ConfirmOTP(c.Request.Context(), middleware.CurrentUserID(c), req.Code)
	if err != nil {
		h.writeVerificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message":          "Sender email verified",
			"emailCredentials": creds,
		},
	})
}

// ResendOTP re-issues the code for the address on file
func (h *VerificationHandlers) ResendOTP(c *gin.Context) {
	expiry, err := h.verifySvc.ResendOTP(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.writeVerificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message":   "Verification code sent",
			"expiresAt": expiry,
		},
	})
}

// ConfigureSMTP stores the user's own SMTP server after a live dial check
func (h *VerificationHandlers) ConfigureSMTP(c *gin.Context) {
	var req ConfigureSMTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.verifySvc.ConfigureSMTP(c.Request.Context(), middleware.CurrentUserID(c),
		req.SMTPHost, req.SMTPPort, req.SenderPassword)
	if err != nil {
		if err == domain.ErrSenderNotVerified {
			c.JSON(http.StatusForbidden, gin.H{"error": "Verify a sender email before configuring SMTP"})
			return
		}
		if err == domain.ErrUserNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "SMTP credentials rejected"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "SMTP server configured"}})
}

// RemoveCredentials clears the user's sending identity
func (h *VerificationHandlers) RemoveCredentials(c *gin.Context) {
	if err := h.verifySvc.RemoveCredentials(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		h.writeVerificationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Email credentials removed"}})
}

// Status reports where the user stands in the verification flow
func (h *VerificationHandlers) Status(c *gin.Context) {
	status, err := h.verifySvc.Status(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.writeVerificationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": status})
}

func (h *VerificationHandlers) writeVerificationError(c *gin.Context, err error) {
	switch err {
	case domain.ErrUserNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case domain.ErrAlreadyVerified:
		c.JSON(http.StatusConflict, gin.H{"error": "Sender email already verified"})
	case domain.ErrOTPStillActive:
		c.JSON(http.StatusConflict, gin.H{"error": "A verification code is still active. Check your inbox"})
	case domain.ErrTooManyAttempts:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts. Try again later"})
	case domain.ErrInvalidOrExpiredOTP:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired verification code"})
	case domain.ErrNoPendingEmail:
		c.JSON(http.StatusBadRequest, gin.H{"error": "No sender email pending verification"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification request failed"})
	}
}
