// SPDX-License-Identifier: MIT

// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// CacheBackend selects the cache store implementation.
type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheRedis  CacheBackend = "redis"
)

// AppConfig holds the complete runtime configuration for the rewind daemon.
type AppConfig struct {
	// HTTP server
	ListenAddr     string
	FrontendURL    string
	AllowedOrigins []string

	// Provider (Twitch Helix + OAuth)
	ClientID     string
	ClientSecret string
	RedirectURL  string
	HelixURL     string
	OAuthURL     string

	// Outbound client
	RequestTimeout time.Duration
	UpstreamRPS    int
	UpstreamBurst  int

	// Cache
	CacheBackend  CacheBackend
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Ingress rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Observability
	LogLevel        string
	TracingEnabled  bool
	TracingExporter string
	TracingEndpoint string
}

// FromEnv builds an AppConfig from REWIND_* environment variables,
// applying defaults where unset.
func FromEnv() AppConfig {
	return AppConfig{
		ListenAddr:     ParseString("REWIND_LISTEN", ":4000"),
		FrontendURL:    ParseString("REWIND_FRONTEND_URL", "http://localhost:5173"),
		AllowedOrigins: ParseStringSlice("REWIND_ALLOWED_ORIGINS", nil),

		ClientID:     ParseString("REWIND_CLIENT_ID", ""),
		ClientSecret: ParseString("REWIND_CLIENT_SECRET", ""),
		RedirectURL:  ParseString("REWIND_REDIRECT_URL", "http://localhost:4000/auth/callback"),
		HelixURL:     ParseString("REWIND_HELIX_URL", "https://api.twitch.tv/helix"),
		OAuthURL:     ParseString("REWIND_OAUTH_URL", "https://id.twitch.tv/oauth2"),

		RequestTimeout: ParseDuration("REWIND_REQUEST_TIMEOUT", 15*time.Second),
		UpstreamRPS:    ParseInt("REWIND_UPSTREAM_RPS", 12),
		UpstreamBurst:  ParseInt("REWIND_UPSTREAM_BURST", 24),

		CacheBackend:  CacheBackend(ParseString("REWIND_CACHE_BACKEND", string(CacheMemory))),
		CacheTTL:      ParseDuration("REWIND_CACHE_TTL", 5*time.Minute),
		RedisAddr:     ParseString("REWIND_REDIS_ADDR", "localhost:6379"),
		RedisPassword: ParseString("REWIND_REDIS_PASSWORD", ""),
		RedisDB:       ParseInt("REWIND_REDIS_DB", 0),

		RateLimitRequests: ParseInt("REWIND_RATE_LIMIT_REQUESTS", 1000),
		RateLimitWindow:   ParseDuration("REWIND_RATE_LIMIT_WINDOW", 15*time.Minute),

		LogLevel:        ParseString("REWIND_LOG_LEVEL", "info"),
		TracingEnabled:  ParseBool("REWIND_TRACING_ENABLED", false),
		TracingExporter: ParseString("REWIND_TRACING_EXPORTER", "noop"),
		TracingEndpoint: ParseString("REWIND_TRACING_ENDPOINT", ""),
	}
}

// Validate checks the configuration for fatal misconfigurations.
func (c AppConfig) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("REWIND_CLIENT_ID is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("REWIND_CLIENT_SECRET is required")
	}
	for _, raw := range []struct{ name, value string }{
		{"REWIND_FRONTEND_URL", c.FrontendURL},
		{"REWIND_REDIRECT_URL", c.RedirectURL},
		{"REWIND_HELIX_URL", c.HelixURL},
		{"REWIND_OAUTH_URL", c.OAuthURL},
	} {
		u, err := url.Parse(raw.value)
		if err != nil || !strings.HasPrefix(u.Scheme, "http") {
			return fmt.Errorf("%s: invalid URL %q", raw.name, raw.value)
		}
	}
	switch c.CacheBackend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("REWIND_CACHE_BACKEND: unknown backend %q", c.CacheBackend)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("REWIND_CACHE_TTL must be positive")
	}
	return nil
}
