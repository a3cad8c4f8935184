package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
	"github.com/AdityaKushwaha94/Email-Sender/internal/queue"
)

// CampaignInput is the request payload for creating a campaign.
type CampaignInput struct {
	Name           string
	Subject        string
	Body           string
	Recipients     []domain.Recipient
	IsPersonalized bool
	ScheduledTime  *time.Time
}

// CampaignService owns campaign CRUD and queue introspection. Dispatch
// itself lives in DispatchServiceImpl.
type CampaignService struct {
	campaigns domain.CampaignRepository
	monitor   *queue.HealthMonitor
	log       *zap.Logger
}

// NewCampaignService creates a campaign service.
func NewCampaignService(campaigns domain.CampaignRepository, monitor *queue.HealthMonitor, log *zap.Logger) *CampaignService {
	return &CampaignService{campaigns: campaigns, monitor: monitor, log: log}
}

// Create stores a new campaign as a draft owned by the user.
func (s *CampaignService) Create(ctx context.Context, userID string, input CampaignInput) (*domain.Campaign, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	recipients := make([]domain.Recipient, 0, len(input.Recipients))
	for _, r := range input.Recipients {
		r.Email = strings.ToLower(strings.TrimSpace(r.Email))
		if r.Email == "" {
			continue
		}
		r.Status = domain.RecipientPending
		recipients = append(recipients, r)
	}
	if len(recipients) == 0 {
		return nil, domain.ErrNoValidRecipients
	}

	campaign := &domain.Campaign{
		UserID:         uid,
		Name:           input.Name,
		Subject:        input.Subject,
		Body:           input.Body,
		Recipients:     recipients,
		IsPersonalized: input.IsPersonalized,
		ScheduledTime:  input.ScheduledTime,
		Status:         domain.CampaignDraft,
	}
	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, err
	}

	s.log.Info("campaign created",
		zap.String("campaign_id", campaign.ID.Hex()),
		zap.String("user_id", userID),
		zap.Int("recipients", len(recipients)),
	)
	return campaign, nil
}

// List returns the user's campaigns, newest first.
func (s *CampaignService) List(ctx context.Context, userID string) ([]domain.Campaign, error) {
	return s.campaigns.ListByUser(ctx, userID)
}

// Get returns one campaign, scoped to its owner.
func (s *CampaignService) Get(ctx context.Context, campaignID, userID string) (*domain.Campaign, error) {
	return s.campaigns.FindByIDForUser(ctx, campaignID, userID)
}

// MarkPending moves an owned draft or scheduled campaign to pending so it
// can be dispatched.
func (s *CampaignService) MarkPending(ctx context.Context, campaignID, userID string) (*domain.Campaign, error) {
	campaign, err := s.campaigns.FindByIDForUser(ctx, campaignID, userID)
	if err != nil {
		return nil, err
	}
	if campaign.Status == domain.CampaignPending {
		return campaign, nil
	}
	if !campaign.Status.CanTransition(domain.CampaignPending) {
		return nil, domain.ErrCampaignNotPending
	}
	if err := s.campaigns.UpdateStatus(ctx, campaignID, domain.CampaignPending); err != nil {
		return nil, err
	}
	campaign.Status = domain.CampaignPending
	return campaign, nil
}

// JobStatus looks up the broker job backing a campaign.
func (s *CampaignService) JobStatus(ctx context.Context, jobID string) (*queue.Job, error) {
	q := s.monitor.Queue()
	if q == nil {
		return nil, domain.ErrBrokerUnavailable
	}
	return q.Job(ctx, jobID)
}

// QueueStats returns the broker queue depth snapshot.
func (s *CampaignService) QueueStats(ctx context.Context) (*queue.Stats, error) {
	q := s.monitor.Queue()
	if q == nil {
		return nil, domain.ErrBrokerUnavailable
	}
	return q.Stats(ctx)
}
