package mocks

import (
	"context"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

// MockAuthService implements domain.AuthService interface for testing
type MockAuthService struct {
	RegisterFunc        func(ctx context.Context, email, password, name string) (*domain.AuthResult, error)
	LoginFunc           func(ctx context.Context, email, password string) (*domain.AuthResult, error)
	LoginWithGoogleFunc func(ctx context.Context, profile *domain.GoogleProfile) (*domain.AuthResult, error)
	ProfileFunc         func(ctx context.Context, userID string) (*domain.User, error)
}

// NewMockAuthService creates a new MockAuthService with default behaviors
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

// Register registers a new user
func (m *MockAuthService) Register(ctx context.Context, email, password, name string) (*domain.AuthResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, name)
	}
	// Default behavior: success with empty result
	return &domain.AuthResult{User: &domain.User{Email: email, Name: name}, Token: "mock_token"}, nil
}

// Login authenticates a user
func (m *MockAuthService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	// Default behavior: invalid credentials
	return nil, domain.ErrInvalidCredentials
}

// LoginWithGoogle authenticates via a Google profile
func (m *MockAuthService) LoginWithGoogle(ctx context.Context, profile *domain.GoogleProfile) (*domain.AuthResult, error) {
	if m.LoginWithGoogleFunc != nil {
		return m.LoginWithGoogleFunc(ctx, profile)
	}
	// Default behavior: success
	return &domain.AuthResult{User: &domain.User{Email: profile.Email, Name: profile.Name}, Token: "mock_token"}, nil
}

// Profile returns a user's profile
func (m *MockAuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, userID)
	}
	// Default behavior: not found
	return nil, domain.ErrUserNotFound
}

// Compile-time interface compliance verification
var _ domain.AuthService = (*MockAuthService)(nil)
