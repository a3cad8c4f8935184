package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
	"github.com/AdityaKushwaha94/Email-Sender/internal/http/middleware"
	"github.com/AdityaKushwaha94/Email-Sender/internal/infrastructure/auth"
)

const oauthStateCookie = "oauth_state"

// AuthHandlers handles authentication HTTP requests
type AuthHandlers struct {
	authSvc     domain.AuthService
	oauth       *auth.GoogleOAuth
	frontendURL string
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.AuthService, oauth *auth.GoogleOAuth, frontendURL string) *AuthHandlers {
	return &AuthHandlers{authSvc: authSvc, oauth: oauth, frontendURL: frontendURL}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register handles user registration
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authSvc.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if err == domain.ErrUserAlreadyExists {
			c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"token": result.Token,
			"user":  result.User,
		},
	})
}

// Login handles user login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch err {
		case domain.ErrInvalidCredentials:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		case domain.ErrAccountLocked:
			c.JSON(http.StatusForbidden, gin.H{"error": "Account temporarily locked. Try again later"})
		case domain.ErrAccountBlacklisted:
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is blacklisted"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"token": result.Token,
			"user":  result.User,
		},
	})
}

// GoogleLogin redirects to the Google consent screen
func (h *AuthHandlers) GoogleLogin(c *gin.Context) {
	if !h.oauth.Enabled() {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Google login is not configured"})
		return
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start login"})
		return
	}
	state := hex.EncodeToString(buf)

	c.SetCookie(oauthStateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, h.oauth.AuthURL(state))
}

// GoogleCallback exchanges the provider code and signs the user in
func (h *AuthHandlers) GoogleCallback(c *gin.Context) {
	state := c.Query("state")
	cookieState, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != cookieState {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OAuth state"})
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}

	profile, err := h.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Google sign-in failed"})
		return
	}

	result, err := h.authSvc.LoginWithGoogle(c.Request.Context(), profile)
	if err != nil {
		if err == domain.ErrAccountBlacklisted {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is blacklisted"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	if h.frontendURL != "" {
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/auth/callback?token="+result.Token)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"token": result.Token,
			"user":  result.User,
		},
	})
}

// Logout acknowledges sign-out. Tokens are stateless, so the client
// discards its copy; nothing is revoked server-side.
func (h *AuthHandlers) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Logged out"}})
}

// Me returns the authenticated user's profile
func (h *AuthHandlers) Me(c *gin.Context) {
	user, err := h.authSvc.Profile(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}
