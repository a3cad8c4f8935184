package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

// PasswordServiceImpl implements domain.PasswordService.
type PasswordServiceImpl struct {
	cost int
}

// NewPasswordService creates a bcrypt-backed password service.
func NewPasswordService() domain.PasswordService {
	return &PasswordServiceImpl{cost: 12}
}

// Hash implements domain.PasswordService.
func (p *PasswordServiceImpl) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify implements domain.PasswordService.
func (p *PasswordServiceImpl) Verify(hashedPassword, password string) bool {
	if hashedPassword == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
