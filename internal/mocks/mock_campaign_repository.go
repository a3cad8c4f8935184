package mocks

import (
	"context"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

// MockCampaignRepository implements domain.CampaignRepository interface for testing
type MockCampaignRepository struct {
	CreateFunc              func(ctx context.Context, campaign *domain.Campaign) error
	FindByIDFunc            func(ctx context.Context, id string) (*domain.Campaign, error)
	FindByIDForUserFunc     func(ctx context.Context, id, userID string) (*domain.Campaign, error)
	ListByUserFunc          func(ctx context.Context, userID string) ([]domain.Campaign, error)
	UpdateFunc              func(ctx context.Context, campaign *domain.Campaign) error
	UpdateStatusFunc        func(ctx context.Context, id string, status domain.CampaignStatus) error
	SetQueuedFunc           func(ctx context.Context, id, jobID string) error
	ClaimForProcessingFunc  func(ctx context.Context, id string, from ...domain.CampaignStatus) (*domain.Campaign, error)
	MarkFailedFunc          func(ctx context.Context, id, errMsg string) error
}

// NewMockCampaignRepository creates a new MockCampaignRepository with default behaviors
func NewMockCampaignRepository() *MockCampaignRepository {
	return &MockCampaignRepository{}
}

// Create creates a new campaign
func (m *MockCampaignRepository) Create(ctx context.Context, campaign *domain.Campaign) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, campaign)
	}
	// Default behavior: success
	return nil
}

// FindByID finds a campaign by ID
func (m *MockCampaignRepository) FindByID(ctx context.Context, id string) (*domain.Campaign, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	// Default behavior: not found
	return nil, domain.ErrCampaignNotFound
}

// FindByIDForUser finds an owned campaign by ID
func (m *MockCampaignRepository) FindByIDForUser(ctx context.Context, id, userID string) (*domain.Campaign, error) {
	if m.FindByIDForUserFunc != nil {
		return m.FindByIDForUserFunc(ctx, id, userID)
	}
	// Default behavior: not found
	return nil, domain.ErrCampaignNotFound
}

// ListByUser lists a user's campaigns
func (m *MockCampaignRepository) ListByUser(ctx context.Context, userID string) ([]domain.Campaign, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	// Default behavior: empty list
	return []domain.Campaign{}, nil
}

// Update updates an existing campaign
func (m *MockCampaignRepository) Update(ctx context.Context, campaign *domain.Campaign) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, campaign)
	}
	// Default behavior: success
	return nil
}

// UpdateStatus updates a campaign status
func (m *MockCampaignRepository) UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	// Default behavior: success
	return nil
}

// SetQueued stores the broker job ID and flips the campaign to queued
func (m *MockCampaignRepository) SetQueued(ctx context.Context, id, jobID string) error {
	if m.SetQueuedFunc != nil {
		return m.SetQueuedFunc(ctx, id, jobID)
	}
	// Default behavior: success
	return nil
}

// ClaimForProcessing atomically claims a campaign for processing
func (m *MockCampaignRepository) ClaimForProcessing(ctx context.Context, id string, from ...domain.CampaignStatus) (*domain.Campaign, error) {
	if m.ClaimForProcessingFunc != nil {
		return m.ClaimForProcessingFunc(ctx, id, from...)
	}
	// Default behavior: not found
	return nil, domain.ErrCampaignNotFound
}

// MarkFailed marks a campaign as failed
func (m *MockCampaignRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id, errMsg)
	}
	// Default behavior: success
	return nil
}

// Compile-time interface compliance verification
var _ domain.CampaignRepository = (*MockCampaignRepository)(nil)
