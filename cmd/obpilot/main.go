package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"obpilot/internal/application/usecase/runner"
	"obpilot/internal/infrastructure/config"
	"obpilot/internal/infrastructure/logger"
	"obpilot/internal/infrastructure/svc"
)

func main() {
	// secrets layer: .env is optional, shell env always wins
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer sc.Close()

	log.Info().
		Str("config", *configPath).
		Str("symbol", cfg.App.Symbol).
		Float64("bucket_width", cfg.App.BucketWidth).
		Msg("obpilot started")

	// stop-advance sweeper runs beside the entry pipeline
	go func() {
		if err := sc.Protection().Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("protection sweeper exited")
		}
	}()

	service := runner.NewService(sc.BuildRunnerDeps())
	if err := service.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("runner exited")
	}
}
