package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/nikhilbhutani/speakpost/internal/api/handlers"
	"github.com/nikhilbhutani/speakpost/internal/api/middleware"
	"github.com/nikhilbhutani/speakpost/internal/config"
)

// PostRepository is everything the post and user routes need from storage.
type PostRepository interface {
	handlers.PostStore
	handlers.UserStore
}

// Deps are the services behind the HTTP routes. Health checks with a nil
// pinger are skipped.
type Deps struct {
	Pipeline interface {
		handlers.Transcriber
		handlers.PostGenerator
	}
	Posts    PostRepository
	Queue    handlers.Enqueuer
	Jobs     handlers.JobStore
	Database handlers.Pinger
	Cache    handlers.Pinger
}

type Router struct {
	mux  *chi.Mux
	cfg  *config.Config
	deps Deps
	log  zerolog.Logger
	rl   *middleware.RateLimiter
}

func NewRouter(cfg *config.Config, deps Deps, log zerolog.Logger) *Router {
	return &Router{
		mux:  chi.NewRouter(),
		cfg:  cfg,
		deps: deps,
		log:  log,
		rl:   middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}
}

// RateLimiter exposes the limiter so the caller can run its eviction loop.
func (rt *Router) RateLimiter() *middleware.RateLimiter {
	return rt.rl
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(rt.log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.AllowedOrigins))

	// Health endpoints (no identity, no rate limit)
	health := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"database": rt.deps.Database,
		"redis":    rt.deps.Cache,
	})
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.rl.Limit)
		r.Use(middleware.Identity)

		transcriptionH := handlers.NewTranscriptionHandler(rt.deps.Pipeline)
		r.Post("/transcriptions", transcriptionH.Create)

		postH := handlers.NewPostHandler(rt.deps.Pipeline, rt.deps.Posts)
		r.Route("/posts", func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Post("/", postH.Create)
			r.Get("/", postH.List)
			r.Get("/{id}", postH.Get)
			r.Put("/{id}", postH.Update)
			r.Get("/{id}/export", postH.Export)
		})

		userH := handlers.NewUserHandler(rt.deps.Posts)
		r.With(middleware.RequireUser).Put("/users/me", userH.UpsertMe)

		jobH := handlers.NewJobHandler(rt.deps.Queue, rt.deps.Jobs)
		r.Route("/jobs", func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Post("/", jobH.Create)
			r.Get("/{id}", jobH.Get)
		})
	})

	return r
}
