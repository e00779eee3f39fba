package main

import (
	"context"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/nikhilbhutani/speakpost/internal/app"
	"github.com/nikhilbhutani/speakpost/internal/config"
	"github.com/nikhilbhutani/speakpost/internal/logger"
	"github.com/nikhilbhutani/speakpost/internal/queue"
	"github.com/nikhilbhutani/speakpost/internal/queue/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.Log)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	svcs, err := app.NewServices(startCtx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise services")
	}
	defer svcs.Close()

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.Redis),
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Logger:      queue.NewAsynqLogger(log),
		},
	)

	registry := queue.NewHandlersRegistry(log)

	// Register workers
	pipelineWorker := workers.NewPipelineWorker(svcs.Pipeline, svcs.Jobs)
	registry.Register(queue.TypeUploadProcess, asynq.HandlerFunc(pipelineWorker.ProcessTask))

	log.Info().Int("concurrency", cfg.Worker.Concurrency).Msg("starting worker")
	if err := srv.Run(registry.Mux()); err != nil {
		log.Error().Err(err).Msg("worker error")
		os.Exit(1)
	}
}
