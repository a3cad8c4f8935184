package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
	"github.com/AdityaKushwaha94/Email-Sender/internal/http/middleware"
	"github.com/AdityaKushwaha94/Email-Sender/internal/services"
)

// CampaignHandlers handles campaign CRUD and dispatch endpoints
type CampaignHandlers struct {
	campaignSvc *services.CampaignService
	dispatchSvc domain.DispatchService
}

// NewCampaignHandlers creates new campaign handlers
func NewCampaignHandlers(campaignSvc *services.CampaignService, dispatchSvc domain.DispatchService) *CampaignHandlers {
	return &CampaignHandlers{campaignSvc: campaignSvc, dispatchSvc: dispatchSvc}
}

// CreateCampaignRequest represents a campaign creation request
type CreateCampaignRequest struct {
	Name           string             `json:"name" binding:"required"`
	Subject        string             `json:"subject" binding:"required"`
	Body           string             `json:"body" binding:"required"`
	Recipients     []domain.Recipient `json:"recipients" binding:"required"`
	IsPersonalized bool               `json:"isPersonalized"`
	ScheduledTime  *time.Time         `json:"scheduledTime"`
	SendNow        bool               `json:"sendNow"`
}

// Create stores a campaign; with sendNow it is dispatched immediately
func (h *CampaignHandlers) Create(c *gin.Context) {
	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.CurrentUserID(c)
	campaign, err := h.campaignSvc.Create(c.Request.Context(), userID, services.CampaignInput{
		Name:           req.Name,
		Subject:        req.Subject,
		Body:           req.Body,
		Recipients:     req.Recipients,
		IsPersonalized: req.IsPersonalized,
		ScheduledTime:  req.ScheduledTime,
	})
	if err != nil {
		h.writeCampaignError(c, err)
		return
	}

	if !req.SendNow {
		c.JSON(http.StatusCreated, gin.H{"data": campaign})
		return
	}

	if _, err := h.campaignSvc.MarkPending(c.Request.Context(), campaign.ID.Hex(), userID); err != nil {
		h.writeCampaignError(c, err)
		return
	}
	result, err := h.dispatchSvc.Dispatch(c.Request.Context(), campaign.ID.Hex())
	if err != nil {
		h.writeCampaignError(c, err)
		return
	}

	status := http.StatusOK
	if result.Status == domain.CampaignQueued {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"data": result})
}

// List returns the user's campaigns, newest first
func (h *CampaignHandlers) List(c *gin.Context) {
	campaigns, err := h.campaignSvc.List(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.writeCampaignError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": campaigns})
}

// Get returns one owned campaign with its recipient states
func (h *CampaignHandlers) Get(c *gin.Context) {
	campaign, err := h.campaignSvc.Get(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		h.writeCampaignError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": campaign})
}

// Send dispatches an existing campaign
func (h *CampaignHandlers) Send(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	campaign, err := h.campaignSvc.MarkPending(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.writeCampaignError(c, err)
		return
	}

	result, err := h.dispatchSvc.Dispatch(c.Request.Context(), campaign.ID.Hex())
	if err != nil {
		h.writeCampaignError(c, err)
		return
	}

	status := http.StatusOK
	if result.Status == domain.CampaignQueued {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"data": result})
}

// JobStatus reports the broker job backing a campaign
func (h *CampaignHandlers) JobStatus(c *gin.Context) {
	campaign, err := h.campaignSvc.Get(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		h.writeCampaignError(c, err)
		return
	}
	if campaign.JobID == "" {
		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"campaignStatus": campaign.Status,
				"job":            nil,
			},
		})
		return
	}

	job, err := h.campaignSvc.JobStatus(c.Request.Context(), campaign.JobID)
	if err != nil {
		h.writeCampaignError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"campaignStatus": campaign.Status,
			"job":            job,
		},
	})
}

// QueueStats returns the broker queue depth snapshot
func (h *CampaignHandlers) QueueStats(c *gin.Context) {
	stats, err := h.campaignSvc.QueueStats(c.Request.Context())
	if err != nil {
		h.writeCampaignError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *CampaignHandlers) writeCampaignError(c *gin.Context, err error) {
	switch err {
	case domain.ErrCampaignNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
	case domain.ErrCampaignNotPending:
		c.JSON(http.StatusConflict, gin.H{"error": "Campaign is not in a dispatchable state"})
	case domain.ErrNoValidRecipients:
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one valid recipient is required"})
	case domain.ErrSenderNotVerified:
		c.JSON(http.StatusForbidden, gin.H{"error": "Verify a sender email before sending"})
	case domain.ErrBrokerUnavailable:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Job queue is unavailable"})
	case domain.ErrJobNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
	case domain.ErrUserNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Campaign request failed"})
	}
}
