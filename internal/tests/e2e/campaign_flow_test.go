package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
	httpx "github.com/AdityaKushwaha94/Email-Sender/internal/http"
	"github.com/AdityaKushwaha94/Email-Sender/internal/http/handlers"
	"github.com/AdityaKushwaha94/Email-Sender/internal/http/middleware"
	"github.com/AdityaKushwaha94/Email-Sender/internal/infrastructure/auth"
	"github.com/AdityaKushwaha94/Email-Sender/internal/mocks"
	"github.com/AdityaKushwaha94/Email-Sender/internal/queue"
	"github.com/AdityaKushwaha94/Email-Sender/internal/services"
)

// memoryStore backs the repository mocks with in-memory state so the full
// register -> verify -> send flow runs against real service logic.
type memoryStore struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	campaigns map[string]*domain.Campaign
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:     make(map[string]*domain.User),
		campaigns: make(map[string]*domain.Campaign),
	}
}

func (s *memoryStore) userRepo() *mocks.MockUserRepository {
	repo := mocks.NewMockUserRepository()
	repo.CreateFunc = func(ctx context.Context, user *domain.User) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, u := range s.users {
			if u.Email == user.Email {
				return domain.ErrUserAlreadyExists
			}
		}
		user.ID = primitive.NewObjectID()
		s.users[user.ID.Hex()] = user
		return nil
	}
	repo.FindByIDFunc = func(ctx context.Context, id string) (*domain.User, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if u, ok := s.users[id]; ok {
			return u, nil
		}
		return nil, domain.ErrUserNotFound
	}
	repo.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, u := range s.users {
			if u.Email == email {
				return u, nil
			}
		}
		return nil, domain.ErrUserNotFound
	}
	repo.UpdateFunc = func(ctx context.Context, user *domain.User) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.users[user.ID.Hex()] = user
		return nil
	}
	return repo
}

func (s *memoryStore) campaignRepo() *mocks.MockCampaignRepository {
	repo := mocks.NewMockCampaignRepository()
	repo.CreateFunc = func(ctx context.Context, campaign *domain.Campaign) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		campaign.ID = primitive.NewObjectID()
		campaign.TotalRecipients = len(campaign.Recipients)
		s.campaigns[campaign.ID.Hex()] = campaign
		return nil
	}
	repo.FindByIDFunc = func(ctx context.Context, id string) (*domain.Campaign, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.campaigns[id]; ok {
			return c, nil
		}
		return nil, domain.ErrCampaignNotFound
	}
	repo.FindByIDForUserFunc = func(ctx context.Context, id, userID string) (*domain.Campaign, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.campaigns[id]; ok && c.UserID.Hex() == userID {
			return c, nil
		}
		return nil, domain.ErrCampaignNotFound
	}
	repo.ClaimForProcessingFunc = func(ctx context.Context, id string, from ...domain.CampaignStatus) (*domain.Campaign, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c, ok := s.campaigns[id]
		if !ok {
			return nil, domain.ErrCampaignNotFound
		}
		if len(from) == 0 {
			from = []domain.CampaignStatus{domain.CampaignPending, domain.CampaignQueued}
		}
		for _, st := range from {
			if c.Status == st {
				c.Status = domain.CampaignProcessing
				return c, nil
			}
		}
		return nil, domain.ErrCampaignNotPending
	}
	repo.UpdateFunc = func(ctx context.Context, campaign *domain.Campaign) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.campaigns[campaign.ID.Hex()] = campaign
		return nil
	}
	return repo
}

func TestCampaignFlow_RegisterVerifySendBulk(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	store := newMemoryStore()
	users := store.userRepo()
	campaigns := store.campaignRepo()
	sender := mocks.NewMockMailSender()

	// Broker never probed: dispatch falls back to the synchronous path.
	monitor := queue.NewHealthMonitor("email-processing", time.Second, log)

	tokens := auth.NewJWTService("test-secret", "email-sender", time.Hour)
	authSvc := services.NewAuthService(users, auth.NewPasswordService(), tokens, log)
	verifySvc := services.NewVerificationService(users, sender, 5*time.Minute, log)
	emailSvc := services.NewEmailService(users, sender, 1000, log)
	campaignSvc := services.NewCampaignService(campaigns, monitor, log)
	dispatchSvc := services.NewDispatchService(campaigns, users, sender, monitor, services.DispatchOptions{SendRate: 1000}, log)

	oauth := auth.NewGoogleOAuth("", "", "")
	casbinSvc, err := auth.NewCasbinService("../../../config/rbac_model.conf", "../../../config/rbac_policy.csv")
	require.NoError(t, err)

	router := httpx.BuildRouter(
		handlers.NewAuthHandlers(authSvc, oauth, ""),
		handlers.NewVerificationHandlers(verifySvc),
		handlers.NewEmailHandlers(emailSvc, dispatchSvc),
		handlers.NewCampaignHandlers(campaignSvc, dispatchSvc),
		handlers.NewAdminHandlers(users),
		middleware.NewAuthMW(tokens, users),
		middleware.NewCasbinMW(casbinSvc.E),
	)

	// Register.
	payload, _ := json.Marshal(map[string]string{
		"email": "owner@example.com", "password": "secret123", "name": "Owner",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var registered struct {
		Data struct {
			Token string `json:"token"`
			User  struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	token := registered.Data.Token
	require.NotEmpty(t, token)
	authz := "Bearer " + token

	// Start sender verification.
	payload, _ = json.Marshal(map[string]string{"senderEmail": "verified@corp.com"})
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/user/email-credentials", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authz)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The code went to the candidate address; pull it from the store.
	user, err := users.FindByEmail(context.Background(), "owner@example.com")
	require.NoError(t, err)
	code := user.Verification.OTP
	require.Len(t, code, 6)

	// Confirm the code.
	payload, _ = json.Marshal(map[string]string{"otp": code})
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/user/email-credentials/verify", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authz)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Bulk send from an uploaded CSV; broker is down so it completes inline.
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "contacts.csv")
	require.NoError(t, err)
	fmt.Fprint(part, "email,name\nada@example.com,Ada\ngrace@example.com,Grace\n")
	require.NoError(t, writer.WriteField("subject", "Hello {{name}}"))
	require.NoError(t, writer.WriteField("message", "<p>Hi {{name}}</p>"))
	require.NoError(t, writer.Close())

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/email/send-bulk", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", authz)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sendResp struct {
		Data domain.DispatchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sendResp))
	assert.Equal(t, domain.CampaignCompleted, sendResp.Data.Status)
	assert.Equal(t, 2, sendResp.Data.Sent)

	// One OTP mail plus two campaign mails, personalized per recipient.
	sent := sender.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, "Hello Ada", sent[1].Subject)
	assert.Equal(t, "Hello Grace", sent[2].Subject)
	assert.Equal(t, "verified@corp.com", sent[1].ReplyTo)
	assert.Equal(t, sendResp.Data.CampaignID, sent[1].Headers["X-Campaign-ID"])

	// Campaign shows up in the owner's list with settled recipients.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/campaigns", nil)
	req.Header.Set("Authorization", authz)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
