package mocks

import (
	"context"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

// MockEmailService implements domain.EmailService interface for testing
type MockEmailService struct {
	SendSingleFunc   func(ctx context.Context, userID string, to, subject, message, name string) (*domain.SendReceipt, error)
	SendMultipleFunc func(ctx context.Context, userID string, subject, message string, recipients []domain.Recipient) (*domain.BatchResult, error)
}

// NewMockEmailService creates a new MockEmailService with default behaviors
func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

// SendSingle sends one email
func (m *MockEmailService) SendSingle(ctx context.Context, userID string, to, subject, message, name string) (*domain.SendReceipt, error) {
	if m.SendSingleFunc != nil {
		return m.SendSingleFunc(ctx, userID, to, subject, message, name)
	}
	// Default behavior: success
	return &domain.SendReceipt{MessageID: "<mock-message-id@localhost>", To: to}, nil
}

// SendMultiple sends a batch of emails
func (m *MockEmailService) SendMultiple(ctx context.Context, userID string, subject, message string, recipients []domain.Recipient) (*domain.BatchResult, error) {
	if m.SendMultipleFunc != nil {
		return m.SendMultipleFunc(ctx, userID, subject, message, recipients)
	}
	// Default behavior: everything delivered
	result := &domain.BatchResult{Total: len(recipients), Sent: len(recipients)}
	for _, r := range recipients {
		result.SuccessEmails = append(result.SuccessEmails, r.Email)
	}
	return result, nil
}

// Compile-time interface compliance verification
var _ domain.EmailService = (*MockEmailService)(nil)
