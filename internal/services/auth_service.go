package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

// AuthServiceImpl implements registration, login and Google sign-in.
type AuthServiceImpl struct {
	users     domain.UserRepository
	passwords domain.PasswordService
	tokens    domain.TokenService
	log       *zap.Logger
}

// NewAuthService creates an authentication service.
func NewAuthService(users domain.UserRepository, passwords domain.PasswordService, tokens domain.TokenService, log *zap.Logger) domain.AuthService {
	return &AuthServiceImpl{users: users, passwords: passwords, tokens: tokens, log: log}
}

// Register implements domain.AuthService.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password, name string) (*domain.AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         "user",
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(user.ID.Hex())
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.Hex()))
	return &domain.AuthResult{User: user, Token: token}, nil
}

// Login implements domain.AuthService. Failed attempts count toward a
// lockout; a successful login clears the counter.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.IsBlacklisted {
		return nil, domain.ErrAccountBlacklisted
	}

	now := time.Now()
	if user.IsLocked(now) {
		return nil, domain.ErrAccountLocked
	}

	if user.PasswordHash == "" || !s.passwords.Verify(user.PasswordHash, password) {
		user.RegisterFailedLogin(now)
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
		if user.IsLocked(now) {
			s.log.Warn("account locked after repeated login failures", zap.String("user_id", user.ID.Hex()))
			return nil, domain.ErrAccountLocked
		}
		return nil, domain.ErrInvalidCredentials
	}

	if user.LoginAttempts > 0 || user.LockUntil != nil {
		user.ResetLoginAttempts()
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	token, err := s.tokens.Generate(user.ID.Hex())
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{User: user, Token: token}, nil
}

// LoginWithGoogle implements domain.AuthService. An existing account with
// the same email is linked to the Google identity; otherwise a fresh
// account is created without a password.
func (s *AuthServiceImpl) LoginWithGoogle(ctx context.Context, profile *domain.GoogleProfile) (*domain.AuthResult, error) {
	user, err := s.users.FindByGoogleID(ctx, profile.Subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		user, err = s.linkOrCreate(ctx, profile)
	}
	if err != nil {
		return nil, err
	}

	if user.IsBlacklisted {
		return nil, domain.ErrAccountBlacklisted
	}

	token, err := s.tokens.Generate(user.ID.Hex())
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{User: user, Token: token}, nil
}

func (s *AuthServiceImpl) linkOrCreate(ctx context.Context, profile *domain.GoogleProfile) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, profile.Email)
	if err == nil {
		user.GoogleID = profile.Subject
		if user.ProfilePhoto == "" {
			user.ProfilePhoto = profile.Picture
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
		s.log.Info("google identity linked to existing account", zap.String("user_id", user.ID.Hex()))
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	user = &domain.User{
		GoogleID:     profile.Subject,
		Email:        strings.ToLower(profile.Email),
		Name:         profile.Name,
		ProfilePhoto: profile.Picture,
		Role:         "user",
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered via google", zap.String("user_id", user.ID.Hex()))
	return user, nil
}

// Profile implements domain.AuthService.
func (s *AuthServiceImpl) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}
