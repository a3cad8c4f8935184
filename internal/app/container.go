package app

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
	"github.com/AdityaKushwaha94/Email-Sender/internal/config"
	"github.com/AdityaKushwaha94/Email-Sender/internal/infrastructure/auth"
	"github.com/AdityaKushwaha94/Email-Sender/internal/infrastructure/database"
	"github.com/AdityaKushwaha94/Email-Sender/internal/infrastructure/mail"
	"github.com/AdityaKushwaha94/Email-Sender/internal/infrastructure/repositories"
	"github.com/AdityaKushwaha94/Email-Sender/internal/queue"
	"github.com/AdityaKushwaha94/Email-Sender/internal/services"
)

// Container holds the wired application graph shared by the API server
// and the worker binary.
type Container struct {
	Config *config.Config
	Log    *zap.Logger

	Mongo *database.Mongo
	Redis *redis.Client

	Users     domain.UserRepository
	Campaigns domain.CampaignRepository

	Passwords domain.PasswordService
	Tokens    domain.TokenService
	OAuth     *auth.GoogleOAuth
	Casbin    *auth.CasbinService

	Sender  *mail.Sender
	Monitor *queue.HealthMonitor

	AuthSvc     domain.AuthService
	VerifySvc   domain.VerificationService
	EmailSvc    domain.EmailService
	CampaignSvc *services.CampaignService
	DispatchSvc *services.DispatchServiceImpl
}

// Build connects infrastructure and wires the service graph. The broker
// probe runs once here; a down broker leaves queueing disabled without
// failing startup.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	mongo, err := database.OpenMongo(cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}

	rdb := database.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	monitor := queue.NewHealthMonitor(cfg.QueueName, cfg.QueueProbeTimeout, log)
	monitor.Probe(ctx, rdb)

	cas, err := auth.NewCasbinService(cfg.CasbinModelPath, cfg.CasbinPolicyPath)
	if err != nil {
		return nil, err
	}

	users := repositories.NewUserRepository(mongo.Database)
	campaigns := repositories.NewCampaignRepository(mongo.Database)

	passwords := auth.NewPasswordService()
	tokens := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	oauth := auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)

	sender := mail.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom, cfg.SendTimeout)

	dispatchSvc := services.NewDispatchService(campaigns, users, sender, monitor, services.DispatchOptions{
		QueueAttempts: cfg.QueueAttempts,
		QueueBackoff:  cfg.QueueBackoff,
		QueueDelay:    cfg.QueueDelay,
		BatchSize:     cfg.DispatchBatchSize,
		BatchDelay:    cfg.DispatchBatchDelay,
		SendTimeout:   cfg.SendTimeout,
		SendRate:      cfg.SendRate,
	}, log)

	return &Container{
		Config:      cfg,
		Log:         log,
		Mongo:       mongo,
		Redis:       rdb,
		Users:       users,
		Campaigns:   campaigns,
		Passwords:   passwords,
		Tokens:      tokens,
		OAuth:       oauth,
		Casbin:      cas,
		Sender:      sender,
		Monitor:     monitor,
		AuthSvc:     services.NewAuthService(users, passwords, tokens, log),
		VerifySvc:   services.NewVerificationService(users, sender, cfg.OTPTTL, log),
		EmailSvc:    services.NewEmailService(users, sender, cfg.SendRate, log),
		CampaignSvc: services.NewCampaignService(campaigns, monitor, log),
		DispatchSvc: dispatchSvc,
	}, nil
}

// Close releases infrastructure connections.
func (c *Container) Close(ctx context.Context) {
	if err := c.Redis.Close(); err != nil {
		c.Log.Warn("failed to close redis client", zap.Error(err))
	}
	if err := c.Mongo.Close(ctx); err != nil {
		c.Log.Warn("failed to close mongo client", zap.Error(err))
	}
}
