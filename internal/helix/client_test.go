// SPDX-License-Identifier: MIT

package helix

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewindtv/rewind/internal/cache"
)

// fakeClock mirrors the cache package's test clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestClient(t *testing.T, handler http.Handler, store cache.Store) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := New(Options{
		BaseURL:    srv.URL,
		ClientID:   "test-client-id",
		Store:      store,
		HTTPClient: srv.Client(),
	})
	return client, srv
}

func TestDoSendsIdentityHeaders(t *testing.T) {
	var gotClientID, gotAuth string
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClientID = r.Header.Get("Client-Id")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}), nil)

	_, err := client.Do(context.Background(), srv.URL+"/users", "tok123", "")
	require.NoError(t, err)
	assert.Equal(t, "test-client-id", gotClientID)
	assert.Equal(t, "Bearer tok123", gotAuth)
}

func TestDoCacheHitSkipsNetworkEntirely(t *testing.T) {
	var calls atomic.Int32
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) > 1 {
			// A second network call means the cache was bypassed.
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"1"}]}`))
	}), cache.NewMemoryStore(5*time.Minute))

	first, err := client.Do(context.Background(), srv.URL+"/users?id=1", "tok", "key1")
	require.NoError(t, err)

	second, err := client.Do(context.Background(), srv.URL+"/users?id=1", "tok", "key1")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load(), "second call must be served from cache")
	assert.Equal(t, json.RawMessage(first), json.RawMessage(second))
}

func TestDoWithoutCacheKeyNeverCaches(t *testing.T) {
	var calls atomic.Int32
	store := cache.NewMemoryStore(5 * time.Minute)
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}), store)

	for i := 0; i < 2; i++ {
		_, err := client.Do(context.Background(), srv.URL+"/streams", "tok", "")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 0, store.Stats().CurrentSize)
}

func TestDoStaleEntryTriggersFreshFetch(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := cache.NewMemoryStoreWithClock(5*time.Minute, clock.Now)

	var calls atomic.Int32
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		_, _ = w.Write([]byte(`{"call":` + string(rune('0'+n)) + `}`))
	}), store)

	_, err := client.Do(context.Background(), srv.URL+"/users", "tok", "k")
	require.NoError(t, err)

	// Inside the TTL: cached.
	clock.Advance(5*time.Minute - time.Second)
	_, err = client.Do(context.Background(), srv.URL+"/users", "tok", "k")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	// Past the TTL: refetched and overwritten.
	clock.Advance(2 * time.Second)
	raw, err := client.Do(context.Background(), srv.URL+"/users", "tok", "k")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.JSONEq(t, `{"call":2}`, string(raw))
}

func TestDoUpstreamErrorNotCached(t *testing.T) {
	var calls atomic.Int32
	store := cache.NewMemoryStore(5 * time.Minute)
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}), store)

	_, err := client.Do(context.Background(), srv.URL+"/users", "tok", "k")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "rate limited")
	assert.Equal(t, 0, store.Stats().CurrentSize, "failures must not be cached")

	// The next call goes back to the network.
	_, _ = client.Do(context.Background(), srv.URL+"/users", "tok", "k")
	assert.Equal(t, int32(2), calls.Load())
}

func TestDoMalformedResponse(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}), cache.NewMemoryStore(5*time.Minute))

	_, err := client.Do(context.Background(), srv.URL+"/users", "tok", "k")

	var malformed *MalformedResponseError
	require.ErrorAs(t, err, &malformed)
}

func TestDoContextCancellation(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Do(ctx, srv.URL+"/users", "tok", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded))
}

func TestUpstreamErrorIsAuthError(t *testing.T) {
	assert.True(t, (&UpstreamError{StatusCode: 401}).IsAuthError())
	assert.True(t, (&UpstreamError{StatusCode: 403}).IsAuthError())
	assert.False(t, (&UpstreamError{StatusCode: 500}).IsAuthError())
}

func TestEndpointLabel(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://api.twitch.tv/helix/users?id=1", "users"},
		{"https://api.twitch.tv/helix/streams?user_id=1", "streams"},
		{"https://api.twitch.tv/helix/subscriptions/user?x=1", "subscriptions/user"},
		{"https://api.twitch.tv/helix/users/follows?to_id=1", "users/follows"},
		{"https://api.twitch.tv/helix/channels/followed", "channels/followed"},
		{"https://api.twitch.tv", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, endpointLabel(tt.url), tt.url)
	}
}
