package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
	"github.com/AdityaKushwaha94/Email-Sender/internal/http/middleware"
	"github.com/AdityaKushwaha94/Email-Sender/internal/services/extract"
)

// EmailHandlers handles the direct and bulk send endpoints
type EmailHandlers struct {
	emailSvc    domain.EmailService
	dispatchSvc domain.DispatchService
}

// NewEmailHandlers creates new email handlers
func NewEmailHandlers(emailSvc domain.EmailService, dispatchSvc domain.DispatchService) *EmailHandlers {
	return &EmailHandlers{emailSvc: emailSvc, dispatchSvc: dispatchSvc}
}

// SendSingleRequest represents a single-recipient send
type SendSingleRequest struct {
	To      string `json:"to" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	Message string `json:"message" binding:"required"`
	Name    string `json:"name"`
}

// SendMultipleRequest represents a multi-recipient send
type SendMultipleRequest struct {
	Subject    string             `json:"subject" binding:"required"`
	Message    string             `json:"message" binding:"required"`
	Recipients []domain.Recipient `json:"recipients" binding:"required"`
}

// SendSingle sends one email from the user's verified identity
func (h *EmailHandlers) SendSingle(c *gin.Context) {
	var req SendSingleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.emailSvc.SendSingle(c.Request.Context(), middleware.CurrentUserID(c),
		req.To, req.Subject, req.Message, req.Name)
	if err != nil {
		h.writeSendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": receipt})
}

// SendMultiple sends to up to 100 recipients, collecting per-recipient errors
func (h *EmailHandlers) SendMultiple(c *gin.Context) {
	var req SendMultipleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.emailSvc.SendMultiple(c.Request.Context(), middleware.CurrentUserID(c),
		req.Subject, req.Message, req.Recipients)
	if err != nil {
		h.writeSendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// SendBulk extracts recipients from an uploaded file and dispatches them
// as a campaign.
func (h *EmailHandlers) SendBulk(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Recipient file is required"})
		return
	}
	subject := c.PostForm("subject")
	message := c.PostForm("message")
	if subject == "" || message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Subject and message are required"})
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = "Bulk send: " + subject
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	recipients, err := extract.FromFile(fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedFormat):
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Unsupported file format"})
		case errors.Is(err, domain.ErrNoValidRecipients):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No valid email addresses found in file"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse recipient file"})
		}
		return
	}

	user, ok := c.MustGet("user").(*domain.User)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	campaign := &domain.Campaign{
		UserID:     user.ID,
		Name:       name,
		Subject:    subject,
		Body:       message,
		Recipients: recipients,
	}

	result, err := h.dispatchSvc.Submit(c.Request.Context(), campaign)
	if err != nil {
		h.writeSendError(c, err)
		return
	}

	status := http.StatusOK
	if result.Status == domain.CampaignQueued {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"data": result})
}

// ExtractRecipients parses an uploaded file and returns the recipients it
// would send to, without dispatching anything.
func (h *EmailHandlers) ExtractRecipients(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Recipient file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	recipients, err := extract.FromFile(fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedFormat):
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Unsupported file format"})
		case errors.Is(err, domain.ErrNoValidRecipients):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No valid email addresses found in file"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse recipient file"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"recipients": recipients,
			"count":      len(recipients),
		},
	})
}

func (h *EmailHandlers) writeSendError(c *gin.Context, err error) {
	switch err {
	case domain.ErrSenderNotVerified:
		c.JSON(http.StatusForbidden, gin.H{"error": "Verify a sender email before sending"})
	case domain.ErrNoValidRecipients:
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one valid recipient is required"})
	case domain.ErrRecipientLimit:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many recipients in one request (max 100)"})
	case domain.ErrUserNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send email"})
	}
}
