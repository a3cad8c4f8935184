package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
	"github.com/AdityaKushwaha94/Email-Sender/internal/metrics"
)

// maxBatchRecipients caps a single multi-send request.
const maxBatchRecipients = 100

// EmailServiceImpl covers the direct (non-campaign) send paths. Replies go
// to the user's verified sender address; delivery itself rides the system
// identity unless the user configured their own SMTP server.
type EmailServiceImpl struct {
	users   domain.UserRepository
	sender  domain.MailSender
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewEmailService creates an email service throttled to sendRate
// messages per second.
func NewEmailService(users domain.UserRepository, sender domain.MailSender, sendRate int, log *zap.Logger) domain.EmailService {
	if sendRate <= 0 {
		sendRate = 1
	}
	return &EmailServiceImpl{
		users:   users,
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(sendRate), sendRate),
		log:     log,
	}
}

func (s *EmailServiceImpl) verifiedUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Credentials.IsVerified {
		return nil, domain.ErrSenderNotVerified
	}
	return user, nil
}

func (s *EmailServiceImpl) buildMessage(user *domain.User, recipient *domain.Recipient, subject, body string) *domain.MailMessage {
	msg := &domain.MailMessage{
		ReplyTo: user.Credentials.SenderEmail,
		To:      recipient.Email,
		Subject: Personalize(subject, recipient),
		HTML:    Personalize(body, recipient),
	}
	if user.Credentials.SMTPHost != "" {
		creds := user.Credentials
		msg.SMTP = &creds
	}
	return msg
}

// SendSingle implements domain.EmailService.
func (s *EmailServiceImpl) SendSingle(ctx context.Context, userID string, to, subject, message, name string) (*domain.SendReceipt, error) {
	user, err := s.verifiedUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	recipient := &domain.Recipient{Email: to, Name: name}
	msg := s.buildMessage(user, recipient, subject, message)

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	messageID, err := s.sender.Send(ctx, msg)
	if err != nil {
		metrics.EmailFailures.Inc()
		s.log.Warn("single send failed",
			zap.String("user_id", userID),
			zap.String("to", to),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.EmailsSent.Inc()
	return &domain.SendReceipt{
		MessageID: messageID,
		To:        to,
		From:      msg.From,
		ReplyTo:   msg.ReplyTo,
	}, nil
}

// SendMultiple implements domain.EmailService. Failures are collected per
// recipient; one bad address never aborts the batch.
func (s *EmailServiceImpl) SendMultiple(ctx context.Context, userID string, subject, message string, recipients []domain.Recipient) (*domain.BatchResult, error) {
	if len(recipients) == 0 {
		return nil, domain.ErrNoValidRecipients
	}
	if len(recipients) > maxBatchRecipients {
		return nil, domain.ErrRecipientLimit
	}

	user, err := s.verifiedUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &domain.BatchResult{Total: len(recipients)}
	started := time.Now()

	for i := range recipients {
		recipient := &recipients[i]
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		msg := s.buildMessage(user, recipient, subject, message)
		if _, err := s.sender.Send(ctx, msg); err != nil {
			metrics.EmailFailures.Inc()
			result.Failed++
			result.Errors = append(result.Errors, domain.RecipientError{
				Email: recipient.Email,
				Error: err.Error(),
			})
			continue
		}
		metrics.EmailsSent.Inc()
		result.Sent++
		result.SuccessEmails = append(result.SuccessEmails, recipient.Email)
	}

	s.log.Info("batch send finished",
		zap.String("user_id", userID),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}
