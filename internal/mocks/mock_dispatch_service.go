package mocks

import (
	"context"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

// MockDispatchService implements domain.DispatchService interface for testing
type MockDispatchService struct {
	SubmitFunc           func(ctx context.Context, campaign *domain.Campaign) (*domain.DispatchResult, error)
	DispatchFunc         func(ctx context.Context, campaignID string) (*domain.DispatchResult, error)
	ProcessDirectlyFunc  func(ctx context.Context, campaignID string) (*domain.DispatchResult, error)
	ProcessViaWorkerFunc func(ctx context.Context, campaignID string) (*domain.DispatchResult, error)
}

// NewMockDispatchService creates a new MockDispatchService with default behaviors
func NewMockDispatchService() *MockDispatchService {
	return &MockDispatchService{}
}

// Submit persists and dispatches a campaign
func (m *MockDispatchService) Submit(ctx context.Context, campaign *domain.Campaign) (*domain.DispatchResult, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, campaign)
	}
	// Default behavior: completed synchronously
	return &domain.DispatchResult{Status: domain.CampaignCompleted}, nil
}

// Dispatch routes a campaign to the broker or the direct path
func (m *MockDispatchService) Dispatch(ctx context.Context, campaignID string) (*domain.DispatchResult, error) {
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, campaignID)
	}
	// Default behavior: completed synchronously
	return &domain.DispatchResult{CampaignID: campaignID, Status: domain.CampaignCompleted}, nil
}

// ProcessDirectly runs a campaign synchronously
func (m *MockDispatchService) ProcessDirectly(ctx context.Context, campaignID string) (*domain.DispatchResult, error) {
	if m.ProcessDirectlyFunc != nil {
		return m.ProcessDirectlyFunc(ctx, campaignID)
	}
	// Default behavior: completed
	return &domain.DispatchResult{CampaignID: campaignID, Status: domain.CampaignCompleted}, nil
}

// ProcessViaWorker runs a campaign through per-recipient jobs
func (m *MockDispatchService) ProcessViaWorker(ctx context.Context, campaignID string) (*domain.DispatchResult, error) {
	if m.ProcessViaWorkerFunc != nil {
		return m.ProcessViaWorkerFunc(ctx, campaignID)
	}
	// Default behavior: completed
	return &domain.DispatchResult{CampaignID: campaignID, Status: domain.CampaignCompleted}, nil
}

// Compile-time interface compliance verification
var _ domain.DispatchService = (*MockDispatchService)(nil)
