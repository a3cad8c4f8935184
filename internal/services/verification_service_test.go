package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
	"github.com/AdityaKushwaha94/Email-Sender/internal/mocks"
)

func verificationFixture() (*mocks.MockUserRepository, *mocks.MockMailSender, domain.VerificationService, *domain.User) {
	user := &domain.User{
		ID:    primitive.NewObjectID(),
		Email: "owner@example.com",
		Name:  "Owner",
	}
	users := mocks.NewMockUserRepository()
	users.FindByIDFunc = func(ctx context.Context, id string) (*domain.User, error) {
		if id == user.ID.Hex() {
			return user, nil
		}
		return nil, domain.ErrUserNotFound
	}
	users.UpdateFunc = func(ctx context.Context, u *domain.User) error {
		*user = *u
		return nil
	}
	sender := mocks.NewMockMailSender()
	svc := NewVerificationService(users, sender, 5*time.Minute, zap.NewNop())
	return users, sender, svc, user
}

func TestVerificationService_RequestOTP(t *testing.T) {
	_, sender, svc, user := verificationFixture()
	ctx := context.Background()

	expiry, err := svc.RequestOTP(ctx, user.ID.Hex(), "Sender@Corp.com")
	require.NoError(t, err)

	assert.Equal(t, "sender@corp.com", user.Credentials.SenderEmail)
	assert.False(t, user.Credentials.IsVerified)
	require.Len(t, user.Verification.OTP, 6)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expiry, 2*time.Second)

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "sender@corp.com", sent[0].To)
	assert.Contains(t, sent[0].HTML, user.Verification.OTP)
}

func TestVerificationService_RequestOTP_StillActive(t *testing.T) {
	_, _, svc, user := verificationFixture()
	ctx := context.Background()

	_, err := svc.RequestOTP(ctx, user.ID.Hex(), "sender@corp.com")
	require.NoError(t, err)

	// A fresh code has its full TTL left, so an immediate repeat request
	// is rejected instead of minting a new one.
	_, err = svc.RequestOTP(ctx, user.ID.Hex(), "sender@corp.com")
	assert.ErrorIs(t, err, domain.ErrOTPStillActive)

	// A different address always starts over.
	_, err = svc.RequestOTP(ctx, user.ID.Hex(), "other@corp.com")
	assert.NoError(t, err)
	assert.Equal(t, "other@corp.com", user.Credentials.SenderEmail)
}

func TestVerificationService_RequestOTP_AlreadyVerified(t *testing.T) {
	_, _, svc, user := verificationFixture()
	user.Credentials.SenderEmail = "sender@corp.com"
	user.Credentials.IsVerified = true

	_, err := svc.RequestOTP(context.Background(), user.ID.Hex(), "sender@corp.com")
	assert.ErrorIs(t, err, domain.ErrAlreadyVerified)
}

func TestVerificationService_RequestOTP_Lockout(t *testing.T) {
	_, _, svc, user := verificationFixture()
	now := time.Now()
	user.Verification.Attempts = 5
	user.Verification.LastAttemptAt = &now

	_, err := svc.RequestOTP(context.Background(), user.ID.Hex(), "sender@corp.com")
	assert.ErrorIs(t, err, domain.ErrTooManyAttempts)
}

func TestVerificationService_ConfirmOTP(t *testing.T) {
	_, _, svc, user := verificationFixture()
	ctx := context.Background()

	_, err := svc.RequestOTP(ctx, user.ID.Hex(), "sender@corp.com")
	require.NoError(t, err)
	code := user.Verification.OTP

	creds, err := svc.ConfirmOTP(ctx, user.ID.Hex(), code)
	require.NoError(t, err)

	assert.True(t, creds.IsVerified)
	assert.Equal(t, "sender@corp.com", creds.SenderEmail)
	require.NotNil(t, creds.VerifiedAt)

	// The code must be unusable after success.
	assert.Empty(t, user.Verification.OTP)
	_, err = svc.ConfirmOTP(ctx, user.ID.Hex(), code)
	assert.Error(t, err)
}

func TestVerificationService_ConfirmOTP_WrongCode(t *testing.T) {
	_, _, svc, user := verificationFixture()
	ctx := context.Background()

	_, err := svc.RequestOTP(ctx, user.ID.Hex(), "sender@corp.com")
	require.NoError(t, err)

	_, err = svc.ConfirmOTP(ctx, user.ID.Hex(), "000000")
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredOTP)
	assert.Equal(t, 1, user.Verification.Attempts)
	assert.False(t, user.Credentials.IsVerified)
}

func TestVerificationService_ConfirmOTP_Expired(t *testing.T) {
	_, _, svc, user := verificationFixture()
	ctx := context.Background()

	_, err := svc.RequestOTP(ctx, user.ID.Hex(), "sender@corp.com")
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	user.Verification.OTPExpiry = &past

	_, err = svc.ConfirmOTP(ctx, user.ID.Hex(), user.Verification.OTP)
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredOTP)
}

func TestVerificationService_ConfirmOTP_NoPending(t *testing.T) {
	_, _, svc, user := verificationFixture()

	_, err := svc.ConfirmOTP(context.Background(), user.ID.Hex(), "123456")
	assert.ErrorIs(t, err, domain.ErrNoPendingEmail)
}

func TestVerificationService_ConfigureSMTP(t *testing.T) {
	_, sender, svc, user := verificationFixture()
	ctx := context.Background()

	// Requires a verified sender address first.
	err := svc.ConfigureSMTP(ctx, user.ID.Hex(), "smtp.corp.com", 587, "app-password")
	assert.ErrorIs(t, err, domain.ErrSenderNotVerified)

	now := time.Now()
	user.Credentials.SenderEmail = "sender@corp.com"
	user.Credentials.IsVerified = true
	user.Credentials.VerifiedAt = &now

	var checked *domain.EmailCredentials
	sender.CheckCredentialsFunc = func(ctx context.Context, creds *domain.EmailCredentials) error {
		checked = creds
		return nil
	}

	require.NoError(t, svc.ConfigureSMTP(ctx, user.ID.Hex(), "smtp.corp.com", 587, "app-password"))
	require.NotNil(t, checked)
	assert.Equal(t, "sender@corp.com", checked.SenderEmail)
	assert.Equal(t, "smtp.corp.com", user.Credentials.SMTPHost)
	assert.Equal(t, 587, user.Credentials.SMTPPort)
	assert.Equal(t, "app-password", user.Credentials.SenderPassword)
}

func TestVerificationService_ConfigureSMTP_RejectedCredentials(t *testing.T) {
	_, sender, svc, user := verificationFixture()
	now := time.Now()
	user.Credentials.SenderEmail = "sender@corp.com"
	user.Credentials.IsVerified = true
	user.Credentials.VerifiedAt = &now

	sender.CheckCredentialsFunc = func(ctx context.Context, creds *domain.EmailCredentials) error {
		return assert.AnError
	}

	err := svc.ConfigureSMTP(context.Background(), user.ID.Hex(), "smtp.corp.com", 587, "wrong")
	require.Error(t, err)

	// Nothing lands in the document when the dial check fails.
	assert.Empty(t, user.Credentials.SMTPHost)
	assert.Empty(t, user.Credentials.SenderPassword)
}

func TestVerificationService_RemoveCredentialsAndStatus(t *testing.T) {
	_, _, svc, user := verificationFixture()
	ctx := context.Background()

	_, err := svc.RequestOTP(ctx, user.ID.Hex(), "sender@corp.com")
	require.NoError(t, err)
	_, err = svc.ConfirmOTP(ctx, user.ID.Hex(), user.Verification.OTP)
	require.NoError(t, err)

	status, err := svc.Status(ctx, user.ID.Hex())
	require.NoError(t, err)
	assert.True(t, status.HasCredentials)
	assert.True(t, status.IsVerified)
	assert.Equal(t, "sender@corp.com", status.SenderEmail)

	require.NoError(t, svc.RemoveCredentials(ctx, user.ID.Hex()))

	status, err = svc.Status(ctx, user.ID.Hex())
	require.NoError(t, err)
	assert.False(t, status.HasCredentials)
	assert.False(t, status.IsVerified)
}
