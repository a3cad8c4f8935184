package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpx "github.com/AdityaKushwaha94/Email-Sender/internal/http"
	"github.com/AdityaKushwaha94/Email-Sender/internal/http/handlers"
	"github.com/AdityaKushwaha94/Email-Sender/internal/http/middleware"
	"github.com/AdityaKushwaha94/Email-Sender/internal/metrics"
)

// Run starts the API server plus the metrics endpoint and blocks until a
// shutdown signal arrives.
func Run(c *Container) error {
	cfg, log := c.Config, c.Log

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	metrics.Init()

	authH := handlers.NewAuthHandlers(c.AuthSvc, c.OAuth, cfg.FrontendURL)
	verifyH := handlers.NewVerificationHandlers(c.VerifySvc)
	emailH := handlers.NewEmailHandlers(c.EmailSvc, c.DispatchSvc)
	campaignH := handlers.NewCampaignHandlers(c.CampaignSvc, c.DispatchSvc)
	adminH := handlers.NewAdminHandlers(c.Users)

	jwtMW := middleware.NewAuthMW(c.Tokens, c.Users)
	casbinMW := middleware.NewCasbinMW(c.Casbin.E)

	router := httpx.BuildRouter(authH, verifyH, emailH, campaignH, adminH, jwtMW, casbinMW)

	apiServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("api server started", zap.String("port", cfg.Port))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		log.Info("metrics server started", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("api shutdown failed", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics shutdown failed", zap.Error(err))
	}
	c.Close(shutdownCtx)

	log.Info("shutdown complete")
	return nil
}
