package httpx

import (
	"github.com/gin-gonic/gin"

	"github.com/AdityaKushwaha94/Email-Sender/internal/http/handlers"
	"github.com/AdityaKushwaha94/Email-Sender/internal/http/middleware"
)

// BuildRouter wires every endpoint of the API surface.
func BuildRouter(
	ah *handlers.AuthHandlers,
	vh *handlers.VerificationHandlers,
	eh *handlers.EmailHandlers,
	ch *handlers.CampaignHandlers,
	adh *handlers.AdminHandlers,
	jwtmw *middleware.AuthMW,
	cb *middleware.CasbinMW,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	auth := r.Group("/api/auth")
	auth.POST("/register", ah.Register)
	auth.POST("/login", ah.Login)
	auth.GET("/google", ah.GoogleLogin)
	auth.GET("/google/callback", ah.GoogleCallback)

	api := r.Group("/api").Use(jwtmw.WithJWT())
	api.GET("/auth/me", ah.Me)
	api.POST("/auth/logout", ah.Logout)

	api.POST("/user/email-credentials", vh.AddCredentials)
	api.POST("/user/email-credentials/verify", vh.VerifyOTP)
	api.POST("/user/email-credentials/resend", vh.ResendOTP)
	api.PUT("/user/email-credentials/smtp", vh.ConfigureSMTP)
	api.DELETE("/user/email-credentials", vh.RemoveCredentials)
	api.GET("/user/email-credentials", vh.Status)

	api.POST("/email/send", eh.SendSingle)
	api.POST("/email/send-multiple", eh.SendMultiple)
	api.POST("/email/send-bulk", eh.SendBulk)
	api.POST("/email/extract-recipients", eh.ExtractRecipients)

	api.POST("/campaigns", ch.Create)
	api.GET("/campaigns", ch.List)
	api.GET("/campaigns/:id", ch.Get)
	api.POST("/campaigns/:id/send", ch.Send)
	api.GET("/campaigns/:id/job", ch.JobStatus)
	api.GET("/queue/stats", ch.QueueStats)

	adm := r.Group("/api/admin").Use(jwtmw.WithJWT(), cb.Enforce())
	adm.GET("/users/:id", adh.GetUser)
	adm.POST("/users/:id/blacklist", adh.SetBlacklist)

	return r
}
