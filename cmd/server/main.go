package main

import (
	"context"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/AdityaKushwaha94/Email-Sender/internal/app"
	"github.com/AdityaKushwaha94/Email-Sender/internal/config"
)

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

	container, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to build application", zap.Error(err))
	}

	if err := app.Run(container); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
