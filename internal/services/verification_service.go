package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
	"github.com/AdityaKushwaha94/Email-Sender/internal/metrics"
)

// An unexpired code with this much time left is still considered live, so
// a repeat request does not mint a new one.
const otpReuseThreshold = 3 * time.Minute

// VerificationServiceImpl drives sender email verification. Codes are
// stored on the user document and delivered through the system identity.
type VerificationServiceImpl struct {
	users  domain.UserRepository
	sender domain.MailSender
	otpTTL time.Duration
	log    *zap.Logger
}

// NewVerificationService creates a verification service.
func NewVerificationService(users domain.UserRepository, sender domain.MailSender, otpTTL time.Duration, log *zap.Logger) domain.VerificationService {
	if otpTTL <= 0 {
		otpTTL = 5 * time.Minute
	}
	return &VerificationServiceImpl{users: users, sender: sender, otpTTL: otpTTL, log: log}
}

// RequestOTP implements domain.VerificationService. It stores the candidate
// sender address with a fresh code and emails the code to that address.
func (s *VerificationServiceImpl) RequestOTP(ctx context.Context, userID, email string) (time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return time.Time{}, fmt.Errorf("sender email is required")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}

	now := time.Now()
	if user.Credentials.IsVerified && user.Credentials.SenderEmail == email {
		return time.Time{}, domain.ErrAlreadyVerified
	}
	if !user.CanAttemptVerification(now) {
		return time.Time{}, domain.ErrTooManyAttempts
	}
	if s.otpStillLive(user, email, now) {
		return time.Time{}, domain.ErrOTPStillActive
	}

	return s.issue(ctx, user, email, now)
}

// ResendOTP implements domain.VerificationService. It re-issues a code for
// the address already on file.
func (s *VerificationServiceImpl) ResendOTP(ctx context.Context, userID string) (time.Time, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	if user.Credentials.SenderEmail == "" {
		return time.Time{}, domain.ErrNoPendingEmail
	}
	if user.Credentials.IsVerified {
		return time.Time{}, domain.ErrAlreadyVerified
	}

	now := time.Now()
	if !user.CanAttemptVerification(now) {
		return time.Time{}, domain.ErrTooManyAttempts
	}
	if s.otpStillLive(user, user.Credentials.SenderEmail, now) {
		return time.Time{}, domain.ErrOTPStillActive
	}

	return s.issue(ctx, user, user.Credentials.SenderEmail, now)
}

// otpStillLive reports whether the current code for the same address still
// has enough life left to be reused.
func (s *VerificationServiceImpl) otpStillLive(user *domain.User, email string, now time.Time) bool {
	if user.Verification.OTP == "" || user.Verification.OTPExpiry == nil {
		return false
	}
	if user.Credentials.SenderEmail != email {
		return false
	}
	return user.Verification.OTPExpiry.Sub(now) > otpReuseThreshold
}

func (s *VerificationServiceImpl) issue(ctx context.Context, user *domain.User, email string, now time.Time) (time.Time, error) {
	code, err := GenerateOTP()
	if err != nil {
		return time.Time{}, err
	}

	expiry := now.Add(s.otpTTL)
	user.SetVerificationOTP(email, code, expiry, now)
	if err := s.users.Update(ctx, user); err != nil {
		return time.Time{}, err
	}

	msg := &domain.MailMessage{
		To:      email,
		Subject: "Your email verification code",
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your verification code is <b>%s</b>. It expires in %d minutes.</p><p>If you did not request this, you can ignore this email.</p>",
			user.Name, code, int(s.otpTTL.Minutes()),
		),
	}
	if _, err := s.sender.SendWithRetry(ctx, msg, 2); err != nil {
		s.log.Error("failed to deliver verification code",
			zap.String("user_id", user.ID.Hex()),
			zap.Error(err),
		)
		return time.Time{}, fmt.Errorf("failed to send verification email: %w", err)
	}

	metrics.OTPIssued.Inc()
	s.log.Info("verification code issued",
		zap.String("user_id", user.ID.Hex()),
		zap.Time("expires_at", expiry),
	)
	return expiry, nil
}

// ConfirmOTP implements domain.VerificationService. A correct, unexpired
// code verifies the sender address and wipes the code state.
func (s *VerificationServiceImpl) ConfirmOTP(ctx context.Context, userID, code string) (*domain.EmailCredentials, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Credentials.SenderEmail == "" || user.Verification.OTP == "" {
		return nil, domain.ErrNoPendingEmail
	}
	if user.Credentials.IsVerified {
		return nil, domain.ErrAlreadyVerified
	}

	now := time.Now()
	if !user.CanAttemptVerification(now) {
		return nil, domain.ErrTooManyAttempts
	}

	if !VerifyOTP(user.Verification.OTP, user.Verification.OTPExpiry, code, now) {
		user.RegisterFailedVerification(now)
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidOrExpiredOTP
	}

	user.MarkEmailVerified(now)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("sender email verified",
		zap.String("user_id", user.ID.Hex()),
		zap.String("sender_email", user.Credentials.SenderEmail),
	)
	creds := user.Credentials
	return &creds, nil
}

// ConfigureSMTP implements domain.VerificationService. The server is
// dialed once before anything is stored; bad credentials never land in
// the document.
func (s *VerificationServiceImpl) ConfigureSMTP(ctx context.Context, userID, host string, port int, password string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.Credentials.IsVerified {
		return domain.ErrSenderNotVerified
	}

	candidate := user.Credentials
	candidate.SMTPHost = host
	candidate.SMTPPort = port
	candidate.SenderPassword = password
	if err := s.sender.CheckCredentials(ctx, &candidate); err != nil {
		return fmt.Errorf("smtp credential check failed: %w", err)
	}

	user.Credentials = candidate
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.log.Info("custom smtp configured",
		zap.String("user_id", user.ID.Hex()),
		zap.String("smtp_host", host),
	)
	return nil
}

// RemoveCredentials implements domain.VerificationService.
func (s *VerificationServiceImpl) RemoveCredentials(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	user.ClearCredentials()
	return s.users.Update(ctx, user)
}

// Status implements domain.VerificationService.
func (s *VerificationServiceImpl) Status(ctx context.Context, userID string) (*domain.VerificationStatus, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.VerificationStatus{
		HasCredentials: user.Credentials.SenderEmail != "",
		IsVerified:     user.Credentials.IsVerified,
		SenderEmail:    user.Credentials.SenderEmail,
		VerifiedAt:     user.Credentials.VerifiedAt,
		Attempts:       user.Verification.Attempts,
		CanAttempt:     user.CanAttemptVerification(time.Now()),
	}, nil
}
