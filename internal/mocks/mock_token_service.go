package mocks

import (
	"time"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

// MockTokenService implements domain.TokenService interface for testing
type MockTokenService struct {
	GenerateFunc func(userID string) (string, error)
	ValidateFunc func(token string) (*domain.TokenClaims, error)
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{}
}

// Generate generates a token for a user
func (m *MockTokenService) Generate(userID string) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(userID)
	}
	// Default behavior: deterministic token
	return "mock_token_" + userID, nil
}

// Validate validates a token and returns its claims
func (m *MockTokenService) Validate(token string) (*domain.TokenClaims, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(token)
	}
	// Default behavior: invalid token
	if len(token) > len("mock_token_") && token[:len("mock_token_")] == "mock_token_" {
		now := time.Now()
		return &domain.TokenClaims{
			UserID:    token[len("mock_token_"):],
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(time.Hour).Unix(),
		}, nil
	}
	return nil, domain.ErrTokenInvalid
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
