package domain

import "errors"

// Authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrAccountBlacklisted = errors.New("account access denied")
)

// Verification errors
var (
	ErrTooManyAttempts     = errors.New("too many verification attempts")
	ErrOTPStillActive      = errors.New("an active otp was already sent")
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired otp")
	ErrNoPendingEmail      = errors.New("no email pending verification")
	ErrAlreadyVerified     = errors.New("email is already verified")
	ErrSenderNotVerified   = errors.New("sender email not verified")
)

// Token errors
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// Extraction errors
var (
	ErrUnsupportedFormat    = errors.New("unsupported file format")
	ErrNoValidRecipients    = errors.New("no valid email addresses found in file")
	ErrRecipientLimit       = errors.New("maximum 100 recipients allowed per batch")
)

// Campaign errors
var (
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrCampaignNotPending = errors.New("campaign is not pending dispatch")
)

// Queue errors
var (
	ErrBrokerUnavailable = errors.New("job broker unavailable")
	ErrJobNotFound       = errors.New("job not found")
)
