package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// GenerateOTP returns a 6-digit numeric code in [100000, 999999], so the
// code never carries a leading zero.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// VerifyOTP reports whether the supplied code matches the stored one and
// the code has not expired. A missing code or expiry never matches.
func VerifyOTP(stored string, expiry *time.Time, supplied string, now time.Time) bool {
	if stored == "" || expiry == nil || expiry.Before(now) {
		return false
	}
	return strings.TrimSpace(supplied) == stored
}
