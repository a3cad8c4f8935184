package mocks

import (
	"context"
	"time"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

// MockVerificationService implements domain.VerificationService interface for testing
type MockVerificationService struct {
	RequestOTPFunc        func(ctx context.Context, userID, email string) (time.Time, error)
	ConfirmOTPFunc        func(ctx context.Context, userID, code string) (*domain.EmailCredentials, error)
	ResendOTPFunc         func(ctx context.Context, userID string) (time.Time, error)
	ConfigureSMTPFunc     func(ctx context.Context, userID, host string, port int, password string) error
	RemoveCredentialsFunc func(ctx context.Context, userID string) error
	StatusFunc            func(ctx context.Context, userID string) (*domain.VerificationStatus, error)
}

// NewMockVerificationService creates a new MockVerificationService with default behaviors
func NewMockVerificationService() *MockVerificationService {
	return &MockVerificationService{}
}

// RequestOTP issues a verification code
func (m *MockVerificationService) RequestOTP(ctx context.Context, userID, email string) (time.Time, error) {
	if m.RequestOTPFunc != nil {
		return m.RequestOTPFunc(ctx, userID, email)
	}
	// Default behavior: success
	return time.Now().Add(5 * time.Minute), nil
}

// ConfirmOTP confirms a verification code
func (m *MockVerificationService) ConfirmOTP(ctx context.Context, userID, code string) (*domain.EmailCredentials, error) {
	if m.ConfirmOTPFunc != nil {
		return m.ConfirmOTPFunc(ctx, userID, code)
	}
	// Default behavior: invalid code
	return nil, domain.ErrInvalidOrExpiredOTP
}

// ResendOTP re-issues the current verification code
func (m *MockVerificationService) ResendOTP(ctx context.Context, userID string) (time.Time, error) {
	if m.ResendOTPFunc != nil {
		return m.ResendOTPFunc(ctx, userID)
	}
	// Default behavior: success
	return time.Now().Add(5 * time.Minute), nil
}

// ConfigureSMTP stores a user's own SMTP server
func (m *MockVerificationService) ConfigureSMTP(ctx context.Context, userID, host string, port int, password string) error {
	if m.ConfigureSMTPFunc != nil {
		return m.ConfigureSMTPFunc(ctx, userID, host, port, password)
	}
	// Default behavior: success
	return nil
}

// RemoveCredentials clears the user's sending identity
func (m *MockVerificationService) RemoveCredentials(ctx context.Context, userID string) error {
	if m.RemoveCredentialsFunc != nil {
		return m.RemoveCredentialsFunc(ctx, userID)
	}
	// Default behavior: success
	return nil
}

// Status reports the verification state
func (m *MockVerificationService) Status(ctx context.Context, userID string) (*domain.VerificationStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, userID)
	}
	// Default behavior: nothing on file
	return &domain.VerificationStatus{CanAttempt: true}, nil
}

// Compile-time interface compliance verification
var _ domain.VerificationService = (*MockVerificationService)(nil)
