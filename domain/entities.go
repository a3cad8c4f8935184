package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmailCredentials is the sending identity a user has proven ownership of.
type EmailCredentials struct {
	SenderEmail    string     `bson:"senderEmail,omitempty" json:"senderEmail,omitempty"`
	SMTPHost       string     `bson:"smtpHost,omitempty" json:"smtpHost,omitempty"`
	SMTPPort       int        `bson:"smtpPort,omitempty" json:"smtpPort,omitempty"`
	SenderPassword string     `bson:"senderPassword,omitempty" json:"-"`
	IsVerified     bool       `bson:"isVerified" json:"isVerified"`
	VerifiedAt     *time.Time `bson:"verifiedAt,omitempty" json:"verifiedAt,omitempty"`
}

// EmailVerification is the transient OTP state, cleared on success.
type EmailVerification struct {
	OTP           string     `bson:"otp,omitempty" json:"-"`
	OTPExpiry     *time.Time `bson:"otpExpiry,omitempty" json:"-"`
	Attempts      int        `bson:"verificationAttempts" json:"verificationAttempts"`
	LastAttemptAt *time.Time `bson:"lastVerificationAttempt,omitempty" json:"lastVerificationAttempt,omitempty"`
}

// User represents a platform account.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GoogleID      string             `bson:"googleId,omitempty" json:"-"`
	Email         string             `bson:"email" json:"email"`
	Name          string             `bson:"name" json:"name"`
	PasswordHash  string             `bson:"password,omitempty" json:"-"`
	Role          string             `bson:"role" json:"role"`
	ProfilePhoto  string             `bson:"profilePhoto,omitempty" json:"profilePhoto,omitempty"`
	IsBlacklisted bool               `bson:"isBlacklisted" json:"isBlacklisted"`
	Credentials   EmailCredentials   `bson:"emailCredentials" json:"emailCredentials"`
	Verification  EmailVerification  `bson:"emailVerification" json:"-"`
	LoginAttempts int                `bson:"loginAttempts" json:"-"`
	LockUntil     *time.Time         `bson:"lockUntil,omitempty" json:"-"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

const (
	maxLoginAttempts        = 5
	loginLockDuration       = 2 * time.Hour
	maxVerificationAttempts = 5
	verificationLockWindow  = 15 * time.Minute
)

// IsLocked reports whether the account is under a login lockout.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// RegisterFailedLogin increments the login attempt counter and starts a
// lockout once the limit is hit. An expired lock restarts the count at 1.
func (u *User) RegisterFailedLogin(now time.Time) {
	if u.LockUntil != nil && u.LockUntil.Before(now) {
		u.LockUntil = nil
		u.LoginAttempts = 1
		return
	}
	u.LoginAttempts++
	if u.LoginAttempts >= maxLoginAttempts && !u.IsLocked(now) {
		until := now.Add(loginLockDuration)
		u.LockUntil = &until
	}
}

// ResetLoginAttempts clears the lockout state after a successful login.
func (u *User) ResetLoginAttempts() {
	u.LoginAttempts = 0
	u.LockUntil = nil
}

// CanAttemptVerification reports whether an OTP attempt is allowed. Once the
// attempt limit is reached the user must wait out the lockout window; after
// the window elapses the counter resets silently and the attempt proceeds.
func (u *User) CanAttemptVerification(now time.Time) bool {
	if u.Verification.Attempts < maxVerificationAttempts {
		return true
	}
	if u.Verification.LastAttemptAt == nil {
		return false
	}
	if now.Sub(*u.Verification.LastAttemptAt) < verificationLockWindow {
		return false
	}
	u.Verification.Attempts = 0
	return true
}

// SetVerificationOTP stores a fresh OTP and the candidate sender address.
func (u *User) SetVerificationOTP(email, otp string, expiry, now time.Time) {
	u.Credentials.SenderEmail = email
	u.Credentials.IsVerified = false
	u.Credentials.VerifiedAt = nil
	u.Verification.OTP = otp
	u.Verification.OTPExpiry = &expiry
	u.Verification.LastAttemptAt = &now
}

// MarkEmailVerified flips the credentials to verified and wipes the OTP state.
// Clearing is mandatory: the code must not remain usable after success.
func (u *User) MarkEmailVerified(now time.Time) {
	u.Credentials.IsVerified = true
	u.Credentials.VerifiedAt = &now
	u.Verification.OTP = ""
	u.Verification.OTPExpiry = nil
	u.Verification.Attempts = 0
}

// RegisterFailedVerification counts a failed OTP attempt.
func (u *User) RegisterFailedVerification(now time.Time) {
	u.Verification.Attempts++
	u.Verification.LastAttemptAt = &now
}

// ClearCredentials returns the verification state machine to unset.
func (u *User) ClearCredentials() {
	u.Credentials = EmailCredentials{}
	u.Verification = EmailVerification{}
}

// CampaignStatus is the coarse campaign-level state.
type CampaignStatus string

const (
	CampaignDraft      CampaignStatus = "draft"
	CampaignPending    CampaignStatus = "pending"
	CampaignQueued     CampaignStatus = "queued"
	CampaignScheduled  CampaignStatus = "scheduled"
	CampaignProcessing CampaignStatus = "processing"
	CampaignRunning    CampaignStatus = "running"
	CampaignCompleted  CampaignStatus = "completed"
	CampaignFailed     CampaignStatus = "failed"
)

// Terminal reports whether the campaign has reached a final state.
func (s CampaignStatus) Terminal() bool {
	return s == CampaignCompleted || s == CampaignFailed
}

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:      {CampaignPending, CampaignScheduled},
	CampaignPending:    {CampaignQueued, CampaignProcessing, CampaignFailed},
	CampaignScheduled:  {CampaignPending, CampaignQueued, CampaignProcessing, CampaignFailed},
	CampaignQueued:     {CampaignProcessing, CampaignRunning, CampaignFailed},
	CampaignProcessing: {CampaignRunning, CampaignCompleted, CampaignFailed},
	CampaignRunning:    {CampaignCompleted, CampaignFailed},
}

// CanTransition reports whether moving from s to next is a legal step.
func (s CampaignStatus) CanTransition(next CampaignStatus) bool {
	for _, allowed := range campaignTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RecipientStatus is the per-recipient delivery state.
type RecipientStatus string

const (
	RecipientPending RecipientStatus = "pending"
	RecipientSent    RecipientStatus = "sent"
	RecipientFailed  RecipientStatus = "failed"
)

// Recipient is one addressee of a campaign.
type Recipient struct {
	Email      string            `bson:"email" json:"email"`
	Name       string            `bson:"name" json:"name"`
	CustomData map[string]string `bson:"customData,omitempty" json:"customData,omitempty"`
	Status     RecipientStatus   `bson:"status" json:"status"`
	SentAt     *time.Time        `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	Error      string            `bson:"error,omitempty" json:"error,omitempty"`
}

// MarkSent records successful delivery. Transitions only move forward:
// a terminal recipient never returns to pending.
func (r *Recipient) MarkSent(now time.Time) {
	if r.Status != RecipientPending {
		return
	}
	r.Status = RecipientSent
	r.SentAt = &now
	r.Error = ""
}

// MarkFailed records a delivery failure with the causing error.
func (r *Recipient) MarkFailed(errMsg string) {
	if r.Status != RecipientPending {
		return
	}
	r.Status = RecipientFailed
	r.Error = errMsg
}

// Campaign is a named batch of personalized emails.
type Campaign struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	Name            string             `bson:"name" json:"name"`
	Subject         string             `bson:"subject" json:"subject"`
	Body            string             `bson:"body" json:"body"`
	Recipients      []Recipient        `bson:"recipients" json:"recipients"`
	TotalRecipients int                `bson:"totalRecipients" json:"totalRecipients"`
	SentCount       int                `bson:"sentCount" json:"sentCount"`
	FailedCount     int                `bson:"failedCount" json:"failedCount"`
	Status          CampaignStatus     `bson:"status" json:"status"`
	JobID           string             `bson:"jobId,omitempty" json:"jobId,omitempty"`
	IsPersonalized  bool               `bson:"isPersonalized" json:"isPersonalized"`
	ScheduledTime   *time.Time         `bson:"scheduledTime,omitempty" json:"scheduledTime,omitempty"`
	Error           string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RecomputeCounters derives sent/failed counts from recipient states.
func (c *Campaign) RecomputeCounters() {
	sent, failed := 0, 0
	for i := range c.Recipients {
		switch c.Recipients[i].Status {
		case RecipientSent:
			sent++
		case RecipientFailed:
			failed++
		}
	}
	c.SentCount = sent
	c.FailedCount = failed
}

// AllRecipientsTerminal reports whether every recipient settled.
func (c *Campaign) AllRecipientsTerminal() bool {
	for i := range c.Recipients {
		if c.Recipients[i].Status == RecipientPending {
			return false
		}
	}
	return true
}
