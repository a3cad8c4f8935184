package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/AdityaKushwaha94/Email-Sender/internal/app"
	"github.com/AdityaKushwaha94/Email-Sender/internal/config"
	"github.com/AdityaKushwaha94/Email-Sender/internal/metrics"
	"github.com/AdityaKushwaha94/Email-Sender/internal/queue"
	"github.com/AdityaKushwaha94/Email-Sender/internal/services"
)

const consumerConcurrency = 4

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build application", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		container.Close(closeCtx)
	}()

	metrics.Init()

	// The worker is useless without the broker, so keep probing until it
	// comes up or the process is told to stop.
	for container.Monitor.Queue() == nil {
		logger.Warn("broker unavailable, retrying", zap.String("addr", cfg.RedisAddr))
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
		container.Monitor.Probe(ctx, container.Redis)
	}

	worker := queue.NewWorker(container.Monitor.Queue(), consumerConcurrency, logger)

	worker.Register(services.JobCampaignProcess, func(ctx context.Context, job *queue.Job) (any, error) {
		payload, err := services.DecodeCampaignPayload(job.Payload)
		if err != nil {
			return nil, err
		}
		return container.DispatchSvc.ProcessViaWorker(ctx, payload.CampaignID)
	})

	worker.Register(services.JobCampaignSend, func(ctx context.Context, job *queue.Job) (any, error) {
		payload, err := services.DecodeSendPayload(job.Payload)
		if err != nil {
			return nil, err
		}
		if err := container.DispatchSvc.SendRecipient(ctx, payload.CampaignID, payload.RecipientIndex); err != nil {
			return nil, err
		}
		return map[string]any{"campaignId": payload.CampaignID, "recipientIndex": payload.RecipientIndex}, nil
	})

	logger.Info("worker started",
		zap.String("queue", cfg.QueueName),
		zap.Int("concurrency", consumerConcurrency),
	)
	worker.Run(ctx)
	logger.Info("worker stopped")
}
