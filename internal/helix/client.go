// SPDX-License-Identifier: MIT

// Package helix wraps outbound calls to the streaming provider's HTTP API,
// multiplexing them through a TTL-bounded cache and batch helpers that respect
// the provider's per-request ID limits.
package helix

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/rewindtv/rewind/internal/cache"
	"github.com/rewindtv/rewind/internal/log"
	"github.com/rewindtv/rewind/internal/metrics"
)

// MaxIDsPerRequest is the provider's observed limit on IDs per bulk lookup.
const MaxIDsPerRequest = 100

// maxResponseBytes caps provider response bodies read into memory.
const maxResponseBytes = 10 << 20

// Options configures a Client.
type Options struct {
	// BaseURL is the provider API root, e.g. "https://api.twitch.tv/helix".
	BaseURL string
	// ClientID identifies this application to the provider.
	ClientID string
	// Store caches successful responses. Nil disables caching.
	Store cache.Store
	// Timeout bounds each outbound request. A hung upstream must not stall
	// the caller indefinitely. Zero means 15s.
	Timeout time.Duration
	// RPS and Burst shape outbound traffic toward the rate-limited provider.
	// Zero disables shaping.
	RPS   int
	Burst int
	// HTTPClient overrides the outbound client (tests). When set, Timeout is
	// ignored.
	HTTPClient *http.Client
}

// Client performs authenticated GETs against the provider, transparently
// reusing recent prior results from the cache store.
type Client struct {
	baseURL  string
	clientID string
	http     *http.Client
	store    cache.Store
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// New creates a provider client.
func New(opts Options) *Client {
	store := opts.Store
	if store == nil {
		store = cache.NewNoOpStore()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	var limiter *rate.Limiter
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = opts.RPS
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		clientID: opts.ClientID,
		http:     httpClient,
		store:    store,
		limiter:  limiter,
		logger:   log.WithComponent("helix"),
	}
}

// BaseURL returns the provider API root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs one authenticated GET against resourceURL and returns the raw
// JSON payload. When cacheKey is non-empty, a fresh cached value short-circuits
// the call entirely (no network, no credential use) and a successful response
// unconditionally overwrites the prior entry. Failures are never cached and
// are reported as *UpstreamError or *MalformedResponseError. The client does
// not retry; retry policy belongs to the caller.
func (c *Client) Do(ctx context.Context, resourceURL, accessToken, cacheKey string) (json.RawMessage, error) {
	if cacheKey != "" {
		if val, ok := c.store.Get(cacheKey); ok {
			metrics.CacheHitsTotal.Inc()
			c.logger.Debug().
				Str(log.FieldCacheKey, cacheKey).
				Msg("cache hit")
			return val, nil
		}
		metrics.CacheMissesTotal.Inc()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	endpoint := endpointLabel(resourceURL)
	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}

	metrics.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, statusClass(res.StatusCode)).Inc()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.Warn().
			Str(log.FieldEndpoint, endpoint).
			Int(log.FieldStatus, res.StatusCode).
			Msg("provider request failed")
		return nil, &UpstreamError{StatusCode: res.StatusCode, Body: string(body)}
	}

	if !json.Valid(body) {
		return nil, &MalformedResponseError{Err: errInvalidJSON}
	}

	if cacheKey != "" {
		c.store.Set(cacheKey, body)
	}
	return body, nil
}

var errInvalidJSON = errors.New("body is not valid JSON")

// endpointLabel reduces a resource URL to its logical endpoint name for
// metrics, keeping label cardinality bounded.
func endpointLabel(resourceURL string) string {
	u, err := url.Parse(resourceURL)
	if err != nil {
		return "unknown"
	}
	path := strings.Trim(u.Path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		// "helix/users/follows" -> "follows" is too generic; keep the
		// trailing two segments when the parent is not the API root.
		parent := path[:i]
		if j := strings.LastIndexByte(parent, '/'); j >= 0 && parent[j+1:] != "helix" {
			return parent[j+1:] + "/" + path[i+1:]
		}
		return path[i+1:]
	}
	if path == "" {
		return "unknown"
	}
	return path
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
