package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

// AuthMW carries the dependencies of the JWT middleware.
type AuthMW struct {
	tokens domain.TokenService
	users  domain.UserRepository
}

// NewAuthMW creates new auth middleware
func NewAuthMW(tokens domain.TokenService, users domain.UserRepository) *AuthMW {
	return &AuthMW{tokens: tokens, users: users}
}

// WithJWT validates the Bearer token, loads the account and rejects
// blacklisted users before any handler runs.
func (mw *AuthMW) WithJWT() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := mw.tokens.Validate(tokenParts[1])
		if err != nil {
			switch err {
			case domain.ErrTokenExpired:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			case domain.ErrTokenInvalid:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			default:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token validation failed"})
			}
			c.Abort()
			return
		}

		user, err := mw.users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Account no longer exists"})
			c.Abort()
			return
		}
		if user.IsBlacklisted {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is blacklisted"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_role", user.Role)
		c.Set("user", user)

		c.Next()
	})
}

// CurrentUserID returns the authenticated user ID from the context.
func CurrentUserID(c *gin.Context) string {
	return c.GetString("user_id")
}
