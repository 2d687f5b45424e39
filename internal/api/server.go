// SPDX-License-Identifier: MIT

// Package api provides the HTTP surface of the rewind service: the OAuth
// login flow, the authenticated provider proxy endpoints and the recap
// endpoint.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rewindtv/rewind/internal/api/middleware"
	"github.com/rewindtv/rewind/internal/auth"
	"github.com/rewindtv/rewind/internal/cache"
	"github.com/rewindtv/rewind/internal/config"
	"github.com/rewindtv/rewind/internal/helix"
	"github.com/rewindtv/rewind/internal/log"
)

// Server wires the provider client, the OAuth service and the cache into the
// HTTP routes.
type Server struct {
	cfg       config.AppConfig
	helix     *helix.Client
	oauth     *auth.Service
	validator *auth.Validator
	store     cache.Store
	logger    zerolog.Logger
}

// New creates a Server. The validator caches positive token verdicts in
// store so per-request auth does not re-hit the provider.
func New(cfg config.AppConfig, client *helix.Client, oauth *auth.Service, store cache.Store) *Server {
	return &Server{
		cfg:       cfg,
		helix:     client,
		oauth:     oauth,
		validator: auth.NewValidator(client, store),
		store:     store,
		logger:    log.WithComponent("api"),
	}
}

// Router builds the chi router with the canonical middleware stack and all
// routes attached.
func (s *Server) Router() http.Handler {
	tracingService := ""
	if s.cfg.TracingEnabled {
		tracingService = "rewind-api"
	}
	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins:    s.cfg.AllowedOrigins,
		EnableMetrics:     true,
		TracingService:    tracingService,
		EnableLogging:     true,
		RateLimitRequests: s.cfg.RateLimitRequests,
		RateLimitWindow:   s.cfg.RateLimitWindow,
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", s.handleLogin)
		r.Get("/callback", s.handleCallback)
		r.Get("/validate", s.handleValidate)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/logout", s.handleLogout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/user", s.handleUser)
		r.Get("/followed", s.handleFollowed)
		r.Get("/streamer-data", s.handleStreamerData)
		r.Get("/vods", s.handleVODs)
		r.Get("/clips", s.handleClips)
		r.Get("/stream-status", s.handleStreamStatus)
		r.Get("/stream-status-batch", s.handleStreamStatusBatch)
		r.Get("/streams", s.handleStreams)
		r.Get("/streamer-info", s.handleStreamerInfo)
		r.Get("/followers", s.handleFollowers)
		r.Get("/following", s.handleFollowing)
		r.Get("/check-subscription", s.handleCheckSubscription)
		r.Get("/check-subscription-batch", s.handleCheckSubscriptionBatch)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"cache":  s.store.Stats(),
	})
}
