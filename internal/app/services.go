// Package app assembles the services shared by the API server and the
// worker.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nikhilbhutani/speakpost/internal/blog"
	"github.com/nikhilbhutani/speakpost/internal/cache"
	"github.com/nikhilbhutani/speakpost/internal/config"
	"github.com/nikhilbhutani/speakpost/internal/database"
	"github.com/nikhilbhutani/speakpost/internal/gemini"
	"github.com/nikhilbhutani/speakpost/internal/pipeline"
	"github.com/nikhilbhutani/speakpost/internal/posts"
	"github.com/nikhilbhutani/speakpost/internal/queue"
	"github.com/nikhilbhutani/speakpost/internal/storage"
	"github.com/nikhilbhutani/speakpost/internal/transcription"
)

const cachePrefix = "speakpost"

// Services holds long-lived connections and the services built on them.
type Services struct {
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Cache    *cache.Cache
	Posts    *posts.CachedStore
	Jobs     *queue.StatusStore
	Pipeline *pipeline.Service
	Gemini   *gemini.Client
}

// NewServices connects to Postgres and Redis, applies migrations and wires
// the generation pipeline.
func NewServices(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Services, error) {
	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(ctx, db, database.Migrations(), log); err != nil {
		db.Close()
		return nil, err
	}

	rdb := cache.NewClient(cfg.Redis)
	kv := cache.NewCache(rdb, cachePrefix)
	if err := kv.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, recent posts will not be cached")
	}

	client := NewGeminiClient(cfg.Gemini, log)
	if !client.HasCredential() {
		log.Warn().Msg("GEMINI_API_KEY is not set, generation requests will fail")
	}

	store := posts.NewCachedStore(posts.NewStore(db), kv, log)
	fetcher := storage.NewFetcher(storage.WithMaxBytes(cfg.Upload.MaxBytes), storage.WithLogger(log))
	transcriber := transcription.NewWorkflow(fetcher, client, cfg.Gemini.TranscribeModel, cfg.Upload.MaxBytes, log)
	writer := blog.NewGenerator(client, cfg.Gemini.BlogModel, log)

	return &Services{
		DB:       db,
		Redis:    rdb,
		Cache:    kv,
		Posts:    store,
		Jobs:     queue.NewStatusStore(kv),
		Pipeline: pipeline.NewService(transcriber, writer, store, log),
		Gemini:   client,
	}, nil
}

// NewGeminiClient builds the generation client from configuration.
func NewGeminiClient(cfg config.GeminiConfig, log zerolog.Logger) *gemini.Client {
	policy := gemini.DefaultRetryPolicy()
	if cfg.MaxRetries > 0 {
		policy.MaxRetries = cfg.MaxRetries
	}
	if cfg.BaseDelay > 0 {
		policy.BaseDelay = cfg.BaseDelay
	}
	if cfg.MaxDelay > 0 {
		policy.MaxDelay = cfg.MaxDelay
	}

	return gemini.New(gemini.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.RequestTimeout,
		Policy:     policy,
		MaxElapsed: cfg.MaxElapsed,
	}, gemini.WithLogger(log))
}

func (s *Services) Close() error {
	s.DB.Close()
	if err := s.Redis.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
