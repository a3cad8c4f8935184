package domain

import (
	"context"
	"time"
)

// UserRepository defines user data access operations.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*User, error)
	Update(ctx context.Context, user *User) error
	SetBlacklisted(ctx context.Context, id string, blacklisted bool) error
}

// CampaignRepository defines campaign data access operations. All writes are
// single-document atomic read-modify-write; no cross-document transactions.
type CampaignRepository interface {
	Create(ctx context.Context, campaign *Campaign) error
	FindByID(ctx context.Context, id string) (*Campaign, error)
	FindByIDForUser(ctx context.Context, id, userID string) (*Campaign, error)
	ListByUser(ctx context.Context, userID string) ([]Campaign, error)
	Update(ctx context.Context, campaign *Campaign) error
	UpdateStatus(ctx context.Context, id string, status CampaignStatus) error
	SetQueued(ctx context.Context, id, jobID string) error
	// ClaimForProcessing atomically moves the campaign to processing only if
	// it is still in one of the given states. Returns ErrCampaignNotPending
	// when another dispatcher already claimed it.
	ClaimForProcessing(ctx context.Context, id string, from ...CampaignStatus) (*Campaign, error)
	MarkFailed(ctx context.Context, id, errMsg string) error
}

// MailMessage is a single outbound email.
type MailMessage struct {
	From     string
	ReplyTo  string
	To       string
	Subject  string
	HTML     string
	Headers  map[string]string
	// SMTP optionally routes the message through the user's own server
	// instead of the shared system identity.
	SMTP *EmailCredentials
}

// MailSender defines the outbound email transport.
type MailSender interface {
	Send(ctx context.Context, msg *MailMessage) (messageID string, err error)
	// SendWithRetry retries transient failures before giving up.
	SendWithRetry(ctx context.Context, msg *MailMessage, retries int) (messageID string, err error)
	// CheckCredentials dials the given SMTP server to prove the
	// credentials work before they are stored.
	CheckCredentials(ctx context.Context, creds *EmailCredentials) error
}

// PasswordService defines password hashing operations.
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenClaims represents JWT token claims.
type TokenClaims struct {
	UserID    string `json:"user_id"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// TokenService defines token operations.
type TokenService interface {
	Generate(userID string) (string, error)
	Validate(token string) (*TokenClaims, error)
}

// AuthResult represents authentication outcome.
type AuthResult struct {
	User  *User
	Token string
}

// GoogleProfile is the identity returned by the OAuth provider.
type GoogleProfile struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	LoginWithGoogle(ctx context.Context, profile *GoogleProfile) (*AuthResult, error)
	Profile(ctx context.Context, userID string) (*User, error)
}

// VerificationStatus reports where a user stands in the sender-verification
// state machine.
type VerificationStatus struct {
	HasCredentials bool       `json:"hasEmailCredentials"`
	IsVerified     bool       `json:"isVerified"`
	SenderEmail    string     `json:"senderEmail,omitempty"`
	VerifiedAt     *time.Time `json:"verifiedAt,omitempty"`
	Attempts       int        `json:"verificationAttempts"`
	CanAttempt     bool       `json:"canAttemptVerification"`
}

// VerificationService drives the sender email verification state machine:
// unset -> otp pending -> verified.
type VerificationService interface {
	RequestOTP(ctx context.Context, userID, email string) (expiry time.Time, err error)
	ConfirmOTP(ctx context.Context, userID, code string) (*EmailCredentials, error)
	ResendOTP(ctx context.Context, userID string) (expiry time.Time, err error)
	// ConfigureSMTP stores the user's own SMTP server for a verified
	// sender address, after proving the credentials work.
	ConfigureSMTP(ctx context.Context, userID, host string, port int, password string) error
	RemoveCredentials(ctx context.Context, userID string) error
	Status(ctx context.Context, userID string) (*VerificationStatus, error)
}

// RecipientError pairs a recipient address with its send failure.
type RecipientError struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// BatchResult aggregates a multi-recipient send.
type BatchResult struct {
	Sent          int              `json:"sent"`
	Failed        int              `json:"failed"`
	Total         int              `json:"total"`
	SuccessEmails []string         `json:"successEmails"`
	Errors        []RecipientError `json:"errors"`
}

// SendReceipt describes a completed single send.
type SendReceipt struct {
	MessageID string `json:"messageId"`
	To        string `json:"to"`
	From      string `json:"from"`
	ReplyTo   string `json:"replyTo,omitempty"`
}

// EmailService covers the non-campaign send paths.
type EmailService interface {
	SendSingle(ctx context.Context, userID string, to, subject, message, name string) (*SendReceipt, error)
	SendMultiple(ctx context.Context, userID string, subject, message string, recipients []Recipient) (*BatchResult, error)
}

// DispatchResult is returned from campaign submission or dispatch.
type DispatchResult struct {
	CampaignID string         `json:"campaignId"`
	JobID      string         `json:"jobId,omitempty"`
	Status     CampaignStatus `json:"status"`
	Sent       int            `json:"sent"`
	Failed     int            `json:"failed"`
	Message    string         `json:"message,omitempty"`
}

// DispatchService runs the campaign dispatch pipeline.
type DispatchService interface {
	Submit(ctx context.Context, campaign *Campaign) (*DispatchResult, error)
	Dispatch(ctx context.Context, campaignID string) (*DispatchResult, error)
	ProcessDirectly(ctx context.Context, campaignID string) (*DispatchResult, error)
	ProcessViaWorker(ctx context.Context, campaignID string) (*DispatchResult, error)
}
