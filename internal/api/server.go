package api

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"territory-arena/internal/avatar"
	"territory-arena/internal/pubsub"
	"territory-arena/internal/registry"
	"territory-arena/internal/repository"
)

// Server is the HTTP API server with WebSocket support. It combines the
// HTTP router with the match registry, its pub/sub broker and the
// janitor that reaps stale matches.
type Server struct {
	registry    *registry.Registry
	broker      *pubsub.Broker
	repo        *repository.Store
	janitor     *registry.Janitor
	router      *chi.Mux
	rateLimiter *IPRateLimiter
}

// NewServer creates a new API server with default production
// configuration.
//
// IMPORTANT: The janitor and the HTTP listener do NOT start until Start()
// is called. The one goroutine NewServer starts is the rate limiter's
// cleanup loop, which Stop() ends. This enables testing by allowing the
// server to be constructed without opening network listeners.
//
// For testing HTTP endpoints without WebSocket support, use NewRouter()
// directly.
func NewServer(reg *registry.Registry, broker *pubsub.Broker, repo *repository.Store, janitor *registry.Janitor, rateLimit RateLimitConfig) *Server {
	s := &Server{
		registry: reg,
		broker:   broker,
		repo:     repo,
		janitor:  janitor,
	}

	s.rateLimiter = NewIPRateLimiter(rateLimit)

	s.router = NewRouter(RouterConfig{
		Registry:    reg,
		Broker:      broker,
		Repo:        repo,
		Publisher:   broker,
		Avatars:     avatar.NewCache(avatar.DefaultMaxAvatars),
		RateLimiter: s.rateLimiter,
	})

	return s
}

// Start begins the HTTP server AND starts the janitor.
// Apart from the rate limiter's cleanup loop started by NewServer, this is
// the only method that starts goroutines or opens network listeners.
//
// Call this method only once. To stop the server, signal the process.
func (s *Server) Start(addr string) error {
	if s.janitor != nil {
		go s.janitor.Run()
	}

	log.Printf("territory-arena API listening on %s", addr)

	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler for use with httptest.
// Use this in integration tests instead of calling Start().
//
// Example:
//
//	server := api.NewServer(reg, broker, repo, janitor, api.DefaultRateLimitConfig)
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/matches")
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop performs graceful shutdown of background workers.
// Call this before process exit to ensure clean cleanup.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.janitor != nil {
		s.janitor.Stop()
	}
	for _, m := range s.registry.All() {
		m.Stop()
	}
}
