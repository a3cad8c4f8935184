package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
	"github.com/AdityaKushwaha94/Email-Sender/internal/mocks"
	"github.com/AdityaKushwaha94/Email-Sender/internal/queue"
)

type dispatchFixture struct {
	campaigns *mocks.MockCampaignRepository
	users     *mocks.MockUserRepository
	sender    *mocks.MockMailSender
	monitor   *queue.HealthMonitor
	svc       *DispatchServiceImpl
	campaign  *domain.Campaign
	user      *domain.User
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	user := &domain.User{
		ID:   primitive.NewObjectID(),
		Name: "Owner",
		Credentials: domain.EmailCredentials{
			SenderEmail: "verified@corp.com",
			IsVerified:  true,
		},
	}
	campaign := &domain.Campaign{
		ID:      primitive.NewObjectID(),
		UserID:  user.ID,
		Name:    "Launch",
		Subject: "Hi {{name}}",
		Body:    "<p>Hello {{name}}</p>",
		Status:  domain.CampaignPending,
		Recipients: []domain.Recipient{
			{Email: "a@example.com", Name: "A", Status: domain.RecipientPending},
			{Email: "b@example.com", Name: "B", Status: domain.RecipientPending},
		},
		TotalRecipients: 2,
	}

	campaigns := mocks.NewMockCampaignRepository()
	campaigns.FindByIDFunc = func(ctx context.Context, id string) (*domain.Campaign, error) {
		return campaign, nil
	}
	campaigns.ClaimForProcessingFunc = func(ctx context.Context, id string, from ...domain.CampaignStatus) (*domain.Campaign, error) {
		for _, s := range from {
			if campaign.Status == s {
				campaign.Status = domain.CampaignProcessing
				return campaign, nil
			}
		}
		if campaign.Status == domain.CampaignPending || campaign.Status == domain.CampaignQueued {
			campaign.Status = domain.CampaignProcessing
			return campaign, nil
		}
		return nil, domain.ErrCampaignNotPending
	}
	campaigns.UpdateFunc = func(ctx context.Context, c *domain.Campaign) error {
		campaign = c
		return nil
	}
	campaigns.SetQueuedFunc = func(ctx context.Context, id, jobID string) error {
		campaign.Status = domain.CampaignQueued
		campaign.JobID = jobID
		return nil
	}

	users := mocks.NewMockUserRepository()
	users.FindByIDFunc = func(ctx context.Context, id string) (*domain.User, error) {
		return user, nil
	}

	sender := mocks.NewMockMailSender()
	monitor := queue.NewHealthMonitor("email-processing", time.Second, zap.NewNop())

	svc := NewDispatchService(campaigns, users, sender, monitor, DispatchOptions{
		SendRate: 1000,
	}, zap.NewNop())

	return &dispatchFixture{
		campaigns: campaigns,
		users:     users,
		sender:    sender,
		monitor:   monitor,
		svc:       svc,
		campaign:  campaign,
		user:      user,
	}
}

// tune rebuilds the service under test with explicit dispatch options.
func (f *dispatchFixture) tune(opts DispatchOptions) {
	f.svc = NewDispatchService(f.campaigns, f.users, f.sender, f.monitor, opts, zap.NewNop())
}

func (f *dispatchFixture) attachBroker(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	f.monitor.Probe(context.Background(), client)
	require.True(t, f.monitor.IsAvailable())
	return mr
}

func TestDispatchService_Dispatch_BrokerDownFallsBackToDirect(t *testing.T) {
	f := newDispatchFixture(t)

	result, err := f.svc.Dispatch(context.Background(), f.campaign.ID.Hex())
	require.NoError(t, err)

	assert.Equal(t, domain.CampaignCompleted, result.Status)
	assert.Equal(t, 2, result.Sent)
	assert.Zero(t, result.Failed)
	assert.Empty(t, result.JobID)
	assert.Len(t, f.sender.Sent(), 2)
}

func TestDispatchService_Dispatch_BrokerUpQueuesWithoutSending(t *testing.T) {
	f := newDispatchFixture(t)
	f.attachBroker(t)

	result, err := f.svc.Dispatch(context.Background(), f.campaign.ID.Hex())
	require.NoError(t, err)

	assert.Equal(t, domain.CampaignQueued, result.Status)
	assert.NotEmpty(t, result.JobID)
	assert.Empty(t, f.sender.Sent())

	// The job really landed on the broker, carrying the campaign ID.
	job, err := f.monitor.Queue().Job(context.Background(), result.JobID)
	require.NoError(t, err)
	assert.Equal(t, JobCampaignProcess, job.Type)
	payload, err := DecodeCampaignPayload(job.Payload)
	require.NoError(t, err)
	assert.Equal(t, f.campaign.ID.Hex(), payload.CampaignID)
}

func TestDispatchService_Dispatch_EnqueueErrorFallsBackToDirect(t *testing.T) {
	f := newDispatchFixture(t)
	mr := f.attachBroker(t)
	mr.Close()

	result, err := f.svc.Dispatch(context.Background(), f.campaign.ID.Hex())
	require.NoError(t, err)

	// The enqueue failure is swallowed; the campaign still completed and
	// the monitor flipped so later dispatches skip the broker.
	assert.Equal(t, domain.CampaignCompleted, result.Status)
	assert.Equal(t, 2, result.Sent)
	assert.False(t, f.monitor.IsAvailable())
}

func TestDispatchService_ProcessDirectly(t *testing.T) {
	f := newDispatchFixture(t)
	f.sender.SendFunc = func(ctx context.Context, msg *domain.MailMessage) (string, error) {
		if msg.To == "b@example.com" {
			return "", errors.New("connection refused")
		}
		return "<id@localhost>", nil
	}

	result, err := f.svc.ProcessDirectly(context.Background(), f.campaign.ID.Hex())
	require.NoError(t, err)

	assert.Equal(t, domain.CampaignCompleted, result.Status)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Failed)

	assert.Equal(t, domain.RecipientSent, f.campaign.Recipients[0].Status)
	assert.Equal(t, domain.RecipientFailed, f.campaign.Recipients[1].Status)
	assert.Contains(t, f.campaign.Recipients[1].Error, "connection refused")

	// Idempotency headers and personalization on the wire.
	sent := f.sender.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, f.campaign.ID.Hex(), sent[0].Headers["X-Campaign-ID"])
	assert.NotEmpty(t, sent[0].Headers["X-Recipient-ID"])
	assert.Equal(t, "Hi A", sent[0].Subject)
	assert.Equal(t, "verified@corp.com", sent[0].ReplyTo)
}

func TestDispatchService_ProcessDirectly_AllFailedMarksCampaignFailed(t *testing.T) {
	f := newDispatchFixture(t)
	f.sender.SendFunc = func(ctx context.Context, msg *domain.MailMessage) (string, error) {
		return "", errors.New("smtp down")
	}

	result, err := f.svc.ProcessDirectly(context.Background(), f.campaign.ID.Hex())
	require.NoError(t, err)

	assert.Equal(t, domain.CampaignFailed, result.Status)
	assert.Equal(t, 2, result.Failed)
}

func TestDispatchService_ProcessDirectly_AlreadyClaimed(t *testing.T) {
	f := newDispatchFixture(t)
	f.campaign.Status = domain.CampaignProcessing

	_, err := f.svc.ProcessDirectly(context.Background(), f.campaign.ID.Hex())
	assert.ErrorIs(t, err, domain.ErrCampaignNotPending)
	assert.Empty(t, f.sender.Sent())
}

func TestDispatchService_Submit(t *testing.T) {
	f := newDispatchFixture(t)

	fresh := &domain.Campaign{
		UserID:  f.user.ID,
		Name:    "Fresh",
		Subject: "s",
		Body:    "m",
		Recipients: []domain.Recipient{
			{Email: "a@example.com"},
		},
	}
	f.campaigns.CreateFunc = func(ctx context.Context, c *domain.Campaign) error {
		c.ID = primitive.NewObjectID()
		f.campaign = c
		return nil
	}
	f.campaigns.ClaimForProcessingFunc = func(ctx context.Context, id string, from ...domain.CampaignStatus) (*domain.Campaign, error) {
		f.campaign.Status = domain.CampaignProcessing
		return f.campaign, nil
	}

	result, err := f.svc.Submit(context.Background(), fresh)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignCompleted, result.Status)
	assert.Equal(t, 1, result.Sent)
}

func TestDispatchService_Submit_Rejections(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, &domain.Campaign{UserID: f.user.ID})
	assert.ErrorIs(t, err, domain.ErrNoValidRecipients)

	f.user.Credentials.IsVerified = false
	_, err = f.svc.Submit(ctx, &domain.Campaign{
		UserID:     f.user.ID,
		Recipients: []domain.Recipient{{Email: "a@example.com"}},
	})
	assert.ErrorIs(t, err, domain.ErrSenderNotVerified)
}

func TestDispatchService_SendRecipient_SkipsSettledRecipient(t *testing.T) {
	f := newDispatchFixture(t)
	f.campaign.Recipients[0].Status = domain.RecipientSent

	err := f.svc.SendRecipient(context.Background(), f.campaign.ID.Hex(), 0)
	require.NoError(t, err)
	assert.Empty(t, f.sender.Sent())
}

func TestDispatchService_QueuedCampaignRunsThroughWorker(t *testing.T) {
	f := newDispatchFixture(t)
	f.tune(DispatchOptions{
		QueueAttempts: 2,
		QueueBackoff:  20 * time.Millisecond,
		QueueDelay:    10 * time.Millisecond,
		BatchDelay:    10 * time.Millisecond,
		SendTimeout:   2 * time.Second,
		SendRate:      1000,
	})
	f.attachBroker(t)

	// Child jobs re-read the campaign; hand each its own copy so the
	// parent's fold works from job states alone.
	f.campaigns.FindByIDFunc = func(ctx context.Context, id string) (*domain.Campaign, error) {
		cp := *f.campaign
		cp.Recipients = append([]domain.Recipient(nil), f.campaign.Recipients...)
		return &cp, nil
	}
	f.sender.SendFunc = func(ctx context.Context, msg *domain.MailMessage) (string, error) {
		if msg.To == "b@example.com" {
			return "", errors.New("mailbox unavailable")
		}
		return "<id@localhost>", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := queue.NewWorker(f.monitor.Queue(), 2, zap.NewNop())
	w.Register(JobCampaignProcess, func(ctx context.Context, job *queue.Job) (any, error) {
		payload, err := DecodeCampaignPayload(job.Payload)
		if err != nil {
			return nil, err
		}
		return f.svc.ProcessViaWorker(ctx, payload.CampaignID)
	})
	w.Register(JobCampaignSend, func(ctx context.Context, job *queue.Job) (any, error) {
		payload, err := DecodeSendPayload(job.Payload)
		if err != nil {
			return nil, err
		}
		return nil, f.svc.SendRecipient(ctx, payload.CampaignID, payload.RecipientIndex)
	})
	done := make(chan struct{})
	go func() { w.Run(ctx); close(done) }()

	result, err := f.svc.Dispatch(ctx, f.campaign.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, domain.CampaignQueued, result.Status)

	waitCtx, waitCancel := context.WithTimeout(ctx, 15*time.Second)
	defer waitCancel()
	parent, err := f.monitor.Queue().Finished(waitCtx, result.JobID)
	require.NoError(t, err)
	require.Equal(t, queue.StateCompleted, parent.State)

	cancel()
	<-done

	assert.Equal(t, domain.CampaignCompleted, f.campaign.Status)
	assert.Equal(t, 1, f.campaign.SentCount)
	assert.Equal(t, 1, f.campaign.FailedCount)
	assert.Equal(t, f.campaign.TotalRecipients, f.campaign.SentCount+f.campaign.FailedCount)
	assert.Equal(t, domain.RecipientSent, f.campaign.Recipients[0].Status)
	assert.Equal(t, domain.RecipientFailed, f.campaign.Recipients[1].Status)
	assert.Contains(t, f.campaign.Recipients[1].Error, "mailbox unavailable")
}

func TestDispatchService_ProcessViaWorker_GivesUpWhenSendsNeverSettle(t *testing.T) {
	f := newDispatchFixture(t)
	f.tune(DispatchOptions{
		QueueAttempts: 1,
		QueueBackoff:  10 * time.Millisecond,
		BatchDelay:    10 * time.Millisecond,
		SendTimeout:   50 * time.Millisecond,
		SendRate:      1000,
	})
	f.attachBroker(t)

	// No consumer ever picks up the child jobs. The campaign must still
	// settle instead of sitting in running forever.
	start := time.Now()
	result, err := f.svc.ProcessViaWorker(context.Background(), f.campaign.ID.Hex())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Equal(t, domain.CampaignFailed, result.Status)
	assert.Equal(t, 2, result.Failed)
	for _, r := range f.campaign.Recipients {
		assert.Equal(t, domain.RecipientFailed, r.Status)
		assert.Contains(t, r.Error, "timed out waiting for send job")
	}
	assert.Empty(t, f.sender.Sent())
}
