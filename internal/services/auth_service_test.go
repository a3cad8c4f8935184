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

func authFixture() (*mocks.MockUserRepository, domain.AuthService) {
	users := mocks.NewMockUserRepository()
	svc := NewAuthService(users, mocks.NewMockPasswordService(), mocks.NewMockTokenService(), zap.NewNop())
	return users, svc
}

func TestAuthService_Register(t *testing.T) {
	users, svc := authFixture()

	var created *domain.User
	users.CreateFunc = func(ctx context.Context, user *domain.User) error {
		user.ID = primitive.NewObjectID()
		created = user
		return nil
	}

	result, err := svc.Register(context.Background(), "  New@Example.COM ", "secret123", "New User")
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", created.Email)
	assert.Equal(t, "hashed_secret123", created.PasswordHash)
	assert.Equal(t, "user", created.Role)
	assert.NotEmpty(t, result.Token)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	users, svc := authFixture()
	users.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
		return &domain.User{Email: email}, nil
	}

	_, err := svc.Register(context.Background(), "taken@example.com", "secret123", "X")
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestAuthService_Login(t *testing.T) {
	existing := &domain.User{
		ID:           primitive.NewObjectID(),
		Email:        "user@example.com",
		PasswordHash: "hashed_rightpass",
	}

	tests := []struct {
		name        string
		password    string
		prepare     func(u *domain.User)
		expectedErr error
	}{
		{
			name:     "valid credentials",
			password: "rightpass",
		},
		{
			name:        "wrong password",
			password:    "wrongpass",
			expectedErr: domain.ErrInvalidCredentials,
		},
		{
			name:     "blacklisted account",
			password: "rightpass",
			prepare: func(u *domain.User) {
				u.IsBlacklisted = true
			},
			expectedErr: domain.ErrAccountBlacklisted,
		},
		{
			name:     "locked account",
			password: "rightpass",
			prepare: func(u *domain.User) {
				until := time.Now().Add(time.Hour)
				u.LockUntil = &until
			},
			expectedErr: domain.ErrAccountLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := *existing
			if tt.prepare != nil {
				tt.prepare(&user)
			}

			users, svc := authFixture()
			users.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
				return &user, nil
			}

			result, err := svc.Login(context.Background(), user.Email, tt.password)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, result.Token)
		})
	}
}

func TestAuthService_Login_LockoutAfterRepeatedFailures(t *testing.T) {
	user := &domain.User{
		ID:           primitive.NewObjectID(),
		Email:        "user@example.com",
		PasswordHash: "hashed_rightpass",
	}
	users, svc := authFixture()
	users.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
		return user, nil
	}
	users.UpdateFunc = func(ctx context.Context, u *domain.User) error {
		user = u
		return nil
	}

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := svc.Login(ctx, user.Email, "wrongpass")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}

	// The fifth failure trips the lock; the correct password no longer helps.
	_, err := svc.Login(ctx, user.Email, "wrongpass")
	assert.ErrorIs(t, err, domain.ErrAccountLocked)
	_, err = svc.Login(ctx, user.Email, "rightpass")
	assert.ErrorIs(t, err, domain.ErrAccountLocked)
}

func TestAuthService_Login_ResetsCounterOnSuccess(t *testing.T) {
	user := &domain.User{
		ID:            primitive.NewObjectID(),
		Email:         "user@example.com",
		PasswordHash:  "hashed_rightpass",
		LoginAttempts: 3,
	}
	users, svc := authFixture()
	users.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
		return user, nil
	}
	users.UpdateFunc = func(ctx context.Context, u *domain.User) error {
		user = u
		return nil
	}

	_, err := svc.Login(context.Background(), user.Email, "rightpass")
	require.NoError(t, err)
	assert.Zero(t, user.LoginAttempts)
}

func TestAuthService_LoginWithGoogle(t *testing.T) {
	profile := &domain.GoogleProfile{
		Subject: "google-sub-1",
		Email:   "User@Example.com",
		Name:    "G User",
		Picture: "https://photos.example.com/u.png",
	}

	t.Run("creates a fresh account", func(t *testing.T) {
		users, svc := authFixture()
		var created *domain.User
		users.CreateFunc = func(ctx context.Context, user *domain.User) error {
			user.ID = primitive.NewObjectID()
			created = user
			return nil
		}

		result, err := svc.LoginWithGoogle(context.Background(), profile)
		require.NoError(t, err)
		assert.Equal(t, "google-sub-1", created.GoogleID)
		assert.Equal(t, "user@example.com", created.Email)
		assert.Empty(t, created.PasswordHash)
		assert.NotEmpty(t, result.Token)
	})

	t.Run("links an existing password account", func(t *testing.T) {
		existing := &domain.User{
			ID:           primitive.NewObjectID(),
			Email:        "user@example.com",
			PasswordHash: "hashed_pw",
		}
		users, svc := authFixture()
		users.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
			return existing, nil
		}
		users.UpdateFunc = func(ctx context.Context, u *domain.User) error {
			existing = u
			return nil
		}

		result, err := svc.LoginWithGoogle(context.Background(), profile)
		require.NoError(t, err)
		assert.Equal(t, "google-sub-1", existing.GoogleID)
		assert.Equal(t, existing.ID.Hex(), result.User.ID.Hex())
	})

	t.Run("blacklisted google account is rejected", func(t *testing.T) {
		users, svc := authFixture()
		users.FindByGoogleIDFunc = func(ctx context.Context, googleID string) (*domain.User, error) {
			return &domain.User{ID: primitive.NewObjectID(), IsBlacklisted: true}, nil
		}

		_, err := svc.LoginWithGoogle(context.Background(), profile)
		assert.ErrorIs(t, err, domain.ErrAccountBlacklisted)
	})
}
