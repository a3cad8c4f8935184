package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
	"github.com/AdityaKushwaha94/Email-Sender/internal/metrics"
	"github.com/AdityaKushwaha94/Email-Sender/internal/queue"
)

// Job type names shared between the dispatcher and the worker binary.
const (
	JobCampaignProcess = "campaign:process"
	JobCampaignSend    = "campaign:send"
)

// CampaignJobPayload is the payload of a campaign:process job.
type CampaignJobPayload struct {
	CampaignID string `json:"campaignId"`
}

// SendJobPayload is the payload of one campaign:send child job.
type SendJobPayload struct {
	CampaignID     string `json:"campaignId"`
	RecipientIndex int    `json:"recipientIndex"`
}

// DispatchOptions tunes queue and send behaviour.
type DispatchOptions struct {
	QueueAttempts int
	QueueBackoff  time.Duration
	QueueDelay    time.Duration
	BatchSize     int
	BatchDelay    time.Duration
	SendTimeout   time.Duration
	SendRate      int
}

func (o *DispatchOptions) normalize() {
	if o.QueueAttempts <= 0 {
		o.QueueAttempts = 3
	}
	if o.QueueBackoff <= 0 {
		o.QueueBackoff = 2 * time.Second
	}
	if o.QueueDelay <= 0 {
		o.QueueDelay = 5 * time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	if o.BatchDelay <= 0 {
		o.BatchDelay = time.Second
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 15 * time.Second
	}
	if o.SendRate <= 0 {
		o.SendRate = 1
	}
}

// DispatchServiceImpl runs campaigns either through the broker or, when it
// is down, synchronously in the request path.
type DispatchServiceImpl struct {
	campaigns domain.CampaignRepository
	users     domain.UserRepository
	sender    domain.MailSender
	monitor   *queue.HealthMonitor
	opts      DispatchOptions
	limiter   *rate.Limiter
	log       *zap.Logger
}

// NewDispatchService creates a dispatch service.
func NewDispatchService(
	campaigns domain.CampaignRepository,
	users domain.UserRepository,
	sender domain.MailSender,
	monitor *queue.HealthMonitor,
	opts DispatchOptions,
	log *zap.Logger,
) *DispatchServiceImpl {
	opts.normalize()
	return &DispatchServiceImpl{
		campaigns: campaigns,
		users:     users,
		sender:    sender,
		monitor:   monitor,
		opts:      opts,
		limiter:   rate.NewLimiter(rate.Limit(opts.SendRate), opts.BatchSize),
		log:       log,
	}
}

// Submit implements domain.DispatchService. The campaign is persisted as
// pending and handed to Dispatch.
func (s *DispatchServiceImpl) Submit(ctx context.Context, campaign *domain.Campaign) (*domain.DispatchResult, error) {
	if len(campaign.Recipients) == 0 {
		return nil, domain.ErrNoValidRecipients
	}

	user, err := s.users.FindByID(ctx, campaign.UserID.Hex())
	if err != nil {
		return nil, err
	}
	if !user.Credentials.IsVerified {
		return nil, domain.ErrSenderNotVerified
	}

	for i := range campaign.Recipients {
		if campaign.Recipients[i].Status == "" {
			campaign.Recipients[i].Status = domain.RecipientPending
		}
	}
	campaign.Status = domain.CampaignPending
	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, err
	}

	return s.Dispatch(ctx, campaign.ID.Hex())
}

// Dispatch implements domain.DispatchService. A broker enqueue failure is
// never surfaced; the campaign just runs synchronously instead.
func (s *DispatchServiceImpl) Dispatch(ctx context.Context, campaignID string) (*domain.DispatchResult, error) {
	q := s.monitor.Queue()
	if q == nil {
		s.log.Info("broker unavailable, processing campaign directly", zap.String("campaign_id", campaignID))
		metrics.CampaignsFallback.Inc()
		return s.ProcessDirectly(ctx, campaignID)
	}

	payload := CampaignJobPayload{CampaignID: campaignID}
	job, err := q.Add(ctx, JobCampaignProcess, payload, queue.Options{
		Attempts: s.opts.QueueAttempts,
		Backoff:  s.opts.QueueBackoff,
		Delay:    s.opts.QueueDelay,
	})
	if err != nil {
		s.monitor.ReportError(err)
		s.log.Warn("enqueue failed, processing campaign directly",
			zap.String("campaign_id", campaignID),
			zap.Error(err),
		)
		metrics.CampaignsFallback.Inc()
		return s.ProcessDirectly(ctx, campaignID)
	}

	if err := s.campaigns.SetQueued(ctx, campaignID, job.ID); err != nil {
		return nil, err
	}

	metrics.CampaignsQueued.Inc()
	s.log.Info("campaign queued",
		zap.String("campaign_id", campaignID),
		zap.String("job_id", job.ID),
	)
	return &domain.DispatchResult{
		CampaignID: campaignID,
		JobID:      job.ID,
		Status:     domain.CampaignQueued,
		Message:    "campaign queued for processing",
	}, nil
}

// ProcessDirectly implements domain.DispatchService. It claims the
// campaign, runs every pending send sequentially under the rate limiter
// and settles the campaign in one final write.
func (s *DispatchServiceImpl) ProcessDirectly(ctx context.Context, campaignID string) (*domain.DispatchResult, error) {
	campaign, err := s.campaigns.ClaimForProcessing(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, campaign.UserID.Hex())
	if err != nil {
		s.failCampaign(ctx, campaignID, err)
		return nil, err
	}

	for i := range campaign.Recipients {
		recipient := &campaign.Recipients[i]
		if recipient.Status != domain.RecipientPending {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			s.failCampaign(ctx, campaignID, err)
			return nil, err
		}
		s.sendToRecipient(ctx, campaign, user, recipient, i)
	}

	campaign.RecomputeCounters()
	campaign.Status = domain.CampaignCompleted
	if campaign.SentCount == 0 && campaign.FailedCount > 0 {
		campaign.Status = domain.CampaignFailed
		campaign.Error = "all recipients failed"
	}
	if err := s.campaigns.Update(ctx, campaign); err != nil {
		return nil, err
	}

	metrics.CampaignsCompleted.WithLabelValues(string(campaign.Status)).Inc()
	s.log.Info("campaign processed directly",
		zap.String("campaign_id", campaignID),
		zap.Int("sent", campaign.SentCount),
		zap.Int("failed", campaign.FailedCount),
	)
	return &domain.DispatchResult{
		CampaignID: campaignID,
		Status:     campaign.Status,
		Sent:       campaign.SentCount,
		Failed:     campaign.FailedCount,
	}, nil
}

// ProcessViaWorker implements domain.DispatchService. It fans the campaign
// out into one child job per recipient, waits for all of them to settle
// and folds the results back onto the campaign document.
func (s *DispatchServiceImpl) ProcessViaWorker(ctx context.Context, campaignID string) (*domain.DispatchResult, error) {
	q := s.monitor.Queue()
	if q == nil {
		return nil, domain.ErrBrokerUnavailable
	}

	campaign, err := s.campaigns.ClaimForProcessing(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	specs := make([]queue.BulkSpec, 0, len(campaign.Recipients))
	indexes := make([]int, 0, len(campaign.Recipients))
	for i := range campaign.Recipients {
		if campaign.Recipients[i].Status != domain.RecipientPending {
			continue
		}
		specs = append(specs, queue.BulkSpec{
			Type:    JobCampaignSend,
			Payload: SendJobPayload{CampaignID: campaignID, RecipientIndex: i},
			Options: queue.Options{
				Attempts: s.opts.QueueAttempts,
				Backoff:  s.opts.QueueBackoff,
				Delay:    time.Duration(len(indexes)) * s.opts.BatchDelay,
			},
		})
		indexes = append(indexes, i)
	}

	jobs, err := q.AddBulk(ctx, specs)
	if err != nil {
		s.monitor.ReportError(err)
		s.failCampaign(ctx, campaignID, err)
		return nil, err
	}
	if err := s.campaigns.UpdateStatus(ctx, campaignID, domain.CampaignRunning); err != nil {
		return nil, err
	}

	// The wait for child jobs is bounded so a campaign can never sit in
	// running forever when the pool is saturated or the broker stalls.
	settleCtx, cancel := context.WithTimeout(ctx, s.settleBudget(len(jobs)))
	defer cancel()

	for i, job := range jobs {
		settled, err := q.Finished(settleCtx, job.ID)
		if err != nil {
			s.log.Warn("gave up waiting for send jobs",
				zap.String("campaign_id", campaignID),
				zap.Int("unsettled", len(jobs)-i),
				zap.Error(err),
			)
			for _, idx := range indexes[i:] {
				recipient := &campaign.Recipients[idx]
				if recipient.Status == domain.RecipientPending {
					recipient.MarkFailed("timed out waiting for send job")
				}
			}
			break
		}
		recipient := &campaign.Recipients[indexes[i]]
		if settled.State == queue.StateCompleted {
			recipient.MarkSent(time.Now())
		} else {
			recipient.MarkFailed(settled.FailedReason)
		}
	}

	campaign.RecomputeCounters()
	campaign.Status = domain.CampaignCompleted
	if campaign.SentCount == 0 && campaign.FailedCount > 0 {
		campaign.Status = domain.CampaignFailed
		campaign.Error = "all recipients failed"
	}
	if err := s.campaigns.Update(ctx, campaign); err != nil {
		return nil, err
	}

	metrics.CampaignsCompleted.WithLabelValues(string(campaign.Status)).Inc()
	s.log.Info("campaign processed via worker",
		zap.String("campaign_id", campaignID),
		zap.Int("sent", campaign.SentCount),
		zap.Int("failed", campaign.FailedCount),
	)
	return &domain.DispatchResult{
		CampaignID: campaignID,
		Status:     campaign.Status,
		Sent:       campaign.SentCount,
		Failed:     campaign.FailedCount,
	}, nil
}

// settleBudget bounds the wait for a fan-out to settle: the full stagger
// plus the worst a single child can take through every retry, with the
// backoff doubling per attempt.
func (s *DispatchServiceImpl) settleBudget(jobs int) time.Duration {
	retryWindow := s.opts.QueueBackoff * time.Duration(1<<uint(s.opts.QueueAttempts))
	perJob := time.Duration(s.opts.QueueAttempts)*s.opts.SendTimeout + retryWindow
	return time.Duration(jobs)*s.opts.BatchDelay + perJob
}

// SendRecipient delivers one recipient of a campaign. The worker binary
// calls this from campaign:send child jobs.
func (s *DispatchServiceImpl) SendRecipient(ctx context.Context, campaignID string, recipientIndex int) error {
	campaign, err := s.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return err
	}
	if recipientIndex < 0 || recipientIndex >= len(campaign.Recipients) {
		return fmt.Errorf("recipient index %d out of range", recipientIndex)
	}
	// A delivered recipient is never re-sent, but a failed one is fair
	// game again: the job is retrying.
	recipient := &campaign.Recipients[recipientIndex]
	if recipient.Status == domain.RecipientSent {
		return nil
	}

	user, err := s.users.FindByID(ctx, campaign.UserID.Hex())
	if err != nil {
		return err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.deliver(ctx, campaign, user, recipient, recipientIndex)
}

func (s *DispatchServiceImpl) sendToRecipient(ctx context.Context, campaign *domain.Campaign, user *domain.User, recipient *domain.Recipient, index int) {
	sendCtx, cancel := context.WithTimeout(ctx, s.opts.SendTimeout)
	defer cancel()

	msg := s.buildCampaignMessage(campaign, user, recipient, index)
	if _, err := s.sender.Send(sendCtx, msg); err != nil {
		metrics.EmailFailures.Inc()
		recipient.MarkFailed(err.Error())
		s.log.Warn("campaign send failed",
			zap.String("campaign_id", campaign.ID.Hex()),
			zap.String("to", recipient.Email),
			zap.Error(err),
		)
		return
	}
	metrics.EmailsSent.Inc()
	recipient.MarkSent(time.Now())
}

// deliver sends one message and persists the recipient outcome immediately,
// for the worker path where each recipient settles in its own job.
func (s *DispatchServiceImpl) deliver(ctx context.Context, campaign *domain.Campaign, user *domain.User, recipient *domain.Recipient, index int) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.opts.SendTimeout)
	defer cancel()

	msg := s.buildCampaignMessage(campaign, user, recipient, index)
	_, sendErr := s.sender.Send(sendCtx, msg)
	if sendErr != nil {
		metrics.EmailFailures.Inc()
		recipient.MarkFailed(sendErr.Error())
	} else {
		metrics.EmailsSent.Inc()
		recipient.MarkSent(time.Now())
	}

	campaign.RecomputeCounters()
	if err := s.campaigns.Update(ctx, campaign); err != nil {
		return err
	}
	return sendErr
}

func (s *DispatchServiceImpl) buildCampaignMessage(campaign *domain.Campaign, user *domain.User, recipient *domain.Recipient, index int) *domain.MailMessage {
	msg := &domain.MailMessage{
		ReplyTo: user.Credentials.SenderEmail,
		To:      recipient.Email,
		Subject: Personalize(campaign.Subject, recipient),
		HTML:    Personalize(campaign.Body, recipient),
		Headers: map[string]string{
			"X-Campaign-ID":  campaign.ID.Hex(),
			"X-Recipient-ID": fmt.Sprintf("%s:%d", campaign.ID.Hex(), index),
		},
	}
	if user.Credentials.SMTPHost != "" {
		creds := user.Credentials
		msg.SMTP = &creds
	}
	return msg
}

func (s *DispatchServiceImpl) failCampaign(ctx context.Context, campaignID string, cause error) {
	if err := s.campaigns.MarkFailed(ctx, campaignID, cause.Error()); err != nil {
		s.log.Error("failed to mark campaign failed",
			zap.String("campaign_id", campaignID),
			zap.Error(err),
		)
	}
	metrics.CampaignsCompleted.WithLabelValues(string(domain.CampaignFailed)).Inc()
}

// DecodeCampaignPayload parses a campaign:process job payload.
func DecodeCampaignPayload(raw json.RawMessage) (*CampaignJobPayload, error) {
	var payload CampaignJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode campaign payload: %w", err)
	}
	return &payload, nil
}

// DecodeSendPayload parses a campaign:send job payload.
func DecodeSendPayload(raw json.RawMessage) (*SendJobPayload, error) {
	var payload SendJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode send payload: %w", err)
	}
	return &payload, nil
}
