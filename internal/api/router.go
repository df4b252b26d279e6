package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"territory-arena/internal/avatar"
	"territory-arena/internal/game"
	"territory-arena/internal/repository"
)

// RouterConfig contains all dependencies needed to construct the HTTP
// router. This struct is designed for dependency injection and
// testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Registry: reg,
//	    Broker:   broker,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Registry tracks live matches (required)
	Registry matchCreator

	// Broker fans out match events to WebSocket subscribers (required)
	Broker matchBroker

	// Repo persists match/player rows. Optional - if nil, matches run
	// without durable state (useful for tests).
	Repo *repository.Store

	// Publisher is what matches publish their events to. Usually Broker
	// itself, but kept separate so tests can substitute a recorder.
	Publisher game.Publisher

	// Avatars caches and re-serves player avatar images. Optional - if
	// nil, a default-sized cache is created.
	Avatars *avatar.Cache

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the default local-dev origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: Its side effects are limited:
//   - No network listeners are opened
//   - No background workers are launched
//   - The only goroutine it can start is the cleanup loop of the
//     IPRateLimiter it builds when cfg.RateLimiter is nil
//
// This makes it safe to use in tests with httptest.NewServer.
//
// Example:
//
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/matches")
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	// CORS configuration
	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	avatars := cfg.Avatars
	if avatars == nil {
		avatars = avatar.NewCache(avatar.DefaultMaxAvatars)
	}

	h := &matchHandlers{
		registry: cfg.Registry,
		repo:     cfg.Repo,
		pub:      cfg.Publisher,
		avatars:  avatars,
	}
	ws := NewMatchSocketHandler(cfg.Registry, cfg.Broker, avatars)

	r.Route("/api/matches", func(r chi.Router) {
		r.Post("/", h.handleCreateMatch)
		r.Get("/", h.handleListAvailable)
		r.Post("/{id}/join", h.handleJoinMatch)
	})

	r.Get("/ws/matches/{id}", ws.ServeHTTP)
	r.Get("/api/avatars", avatars.ServeHTTP)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}

// GetRateLimiterFromRouter is a helper to extract the rate limiter from a configured router.
// This is useful for tests that need to verify rate limiting behavior.
// Note: when cfg.RateLimiter is nil this builds a new limiter (with its own
// cleanup goroutine), not the one a NewRouter call built from the same config.
func GetRateLimiterFromRouter(cfg RouterConfig) *IPRateLimiter {
	if cfg.RateLimiter != nil {
		return cfg.RateLimiter
	}
	rateLimitCfg := DefaultRateLimitConfig
	if cfg.RateLimitConfig != nil {
		rateLimitCfg = *cfg.RateLimitConfig
	}
	return NewIPRateLimiter(rateLimitCfg)
}
