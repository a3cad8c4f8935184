package mocks

import (
	"context"
	"sync"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

// MockMailSender implements domain.MailSender interface for testing
type MockMailSender struct {
	SendFunc             func(ctx context.Context, msg *domain.MailMessage) (string, error)
	CheckCredentialsFunc func(ctx context.Context, creds *domain.EmailCredentials) error

	mu   sync.Mutex
	sent []*domain.MailMessage
}

// NewMockMailSender creates a new MockMailSender with default behaviors
func NewMockMailSender() *MockMailSender {
	return &MockMailSender{}
}

// Send records the message and delegates to SendFunc when configured
func (m *MockMailSender) Send(ctx context.Context, msg *domain.MailMessage) (string, error) {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	// Default behavior: success
	return "<mock-message-id@localhost>", nil
}

// SendWithRetry behaves like Send; retry accounting is transport detail
func (m *MockMailSender) SendWithRetry(ctx context.Context, msg *domain.MailMessage, retries int) (string, error) {
	return m.Send(ctx, msg)
}

// CheckCredentials delegates to CheckCredentialsFunc when configured
func (m *MockMailSender) CheckCredentials(ctx context.Context, creds *domain.EmailCredentials) error {
	if m.CheckCredentialsFunc != nil {
		return m.CheckCredentialsFunc(ctx, creds)
	}
	// Default behavior: credentials accepted
	return nil
}

// Sent returns a snapshot of every message passed to Send
func (m *MockMailSender) Sent() []*domain.MailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.MailMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// Compile-time interface compliance verification
var _ domain.MailSender = (*MockMailSender)(nil)
