// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rewindtv/rewind/internal/auth"
	"github.com/rewindtv/rewind/internal/cache"
	"github.com/rewindtv/rewind/internal/config"
	"github.com/rewindtv/rewind/internal/helix"
)

const testToken = "test-access-token"

// providerStub fakes the provider API and identity host for handler tests.
type providerStub struct {
	mux *http.ServeMux
	srv *httptest.Server
}

func newProviderStub(t *testing.T) *providerStub {
	t.Helper()
	p := &providerStub{mux: http.NewServeMux()}
	p.srv = httptest.NewServer(p.mux)
	t.Cleanup(p.srv.Close)

	// Token validation target. Individual tests may override /helix/users
	// via mux precedence on more specific patterns only, so the default
	// answers both validation (no id params) and profile lookups.
	p.mux.HandleFunc("/helix/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			http.Error(w, `{"message":"invalid token"}`, http.StatusUnauthorized)
			return
		}
		if ids := r.URL.Query()["id"]; len(ids) > 0 {
			users := make([]map[string]any, 0, len(ids))
			for _, id := range ids {
				users = append(users, map[string]any{
					"id":                id,
					"login":             "login-" + id,
					"display_name":      "Display " + id,
					"profile_image_url": "https://img.example/" + id,
				})
			}
			writeStubJSON(w, map[string]any{"data": users})
			return
		}
		writeStubJSON(w, map[string]any{"data": []map[string]any{{
			"id":           "self-1",
			"login":        "selfuser",
			"display_name": "Self User",
		}}})
	})
	return p
}

func (p *providerStub) handle(pattern string, fn http.HandlerFunc) {
	p.mux.HandleFunc(pattern, fn)
}

func writeStubJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// newTestServer wires a Server against the stub with an in-memory cache.
func newTestServer(t *testing.T, stub *providerStub) *Server {
	t.Helper()
	cfg := config.AppConfig{
		FrontendURL:       "http://frontend.test",
		ClientID:          "client-id",
		ClientSecret:      "client-secret",
		RedirectURL:       stub.srv.URL + "/auth/callback",
		HelixURL:          stub.srv.URL + "/helix",
		OAuthURL:          stub.srv.URL + "/oauth2",
		RateLimitRequests: 0, // unlimited in tests
	}
	client := helix.New(helix.Options{
		BaseURL:    cfg.HelixURL,
		ClientID:   cfg.ClientID,
		Store:      cache.NewMemoryStore(time.Minute),
		HTTPClient: stub.srv.Client(),
	})
	oauth := auth.NewService(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURL, cfg.OAuthURL)
	return New(cfg, client, oauth, cache.NewMemoryStore(time.Minute))
}

func doRequest(t *testing.T, h http.Handler, method, target string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, newProviderStub(t))
	rec := doRequest(t, s.Router(), http.MethodGet, "/healthz", false)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decodeBody(t, rec, &body)
	require.Equal(t, "ok", body["status"])
}

func TestAPIRejectsMissingToken(t *testing.T) {
	s := newTestServer(t, newProviderStub(t))
	rec := doRequest(t, s.Router(), http.MethodGet, "/api/user", false)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIRejectsInvalidToken(t *testing.T) {
	s := newTestServer(t, newProviderStub(t))
	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserReturnsAuthenticatedProfile(t *testing.T) {
	s := newTestServer(t, newProviderStub(t))
	rec := doRequest(t, s.Router(), http.MethodGet, "/api/user", true)

	require.Equal(t, http.StatusOK, rec.Code)
	var user helix.User
	decodeBody(t, rec, &user)
	require.Equal(t, "self-1", user.ID)
	require.Equal(t, "selfuser", user.Login)
}

func TestFollowedMergesProfilesAndLiveness(t *testing.T) {
	stub := newProviderStub(t)
	stub.handle("/helix/channels/followed", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "self-1", r.URL.Query().Get("user_id"))
		writeStubJSON(w, map[string]any{"data": []map[string]any{
			{"broadcaster_id": "b1", "broadcaster_login": "one", "broadcaster_name": "One"},
			{"broadcaster_id": "b2", "broadcaster_login": "two", "broadcaster_name": "Two"},
		}})
	})
	stub.handle("/helix/streams", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, map[string]any{"data": []map[string]any{
			{"id": "s1", "user_id": "b2", "type": "live"},
		}})
	})

	s := newTestServer(t, stub)
	rec := doRequest(t, s.Router(), http.MethodGet, "/api/followed", true)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []struct {
			BroadcasterID   string `json:"broadcaster_id"`
			DisplayName     string `json:"display_name"`
			ProfileImageURL string `json:"profile_image_url"`
			IsLive          bool   `json:"is_live"`
		} `json:"data"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Data, 2)
	require.Equal(t, "Display b1", body.Data[0].DisplayName)
	require.False(t, body.Data[0].IsLive)
	require.True(t, body.Data[1].IsLive)
	require.Equal(t, "https://img.example/b2", body.Data[1].ProfileImageURL)
}

func TestVODsRequiresParams(t *testing.T) {
	s := newTestServer(t, newProviderStub(t))

	rec := doRequest(t, s.Router(), http.MethodGet, "/api/vods", true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s.Router(), http.MethodGet, "/api/vods?user_id=b1&started_at=not-a-time&ended_at=also-not", true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVODsFiltersWindow(t *testing.T) {
	stub := newProviderStub(t)
	stub.handle("/helix/videos", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, map[string]any{"data": []map[string]any{
			{"id": "v-in", "created_at": "2026-08-20T12:00:00Z"},
			{"id": "v-out", "created_at": "2026-08-01T12:00:00Z"},
		}})
	})

	s := newTestServer(t, stub)
	rec := doRequest(t, s.Router(), http.MethodGet,
		"/api/vods?user_id=b1&started_at=2026-08-17T00:00:00Z&ended_at=2026-08-24T00:00:00Z", true)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []helix.Video `json:"data"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Data, 1)
	require.Equal(t, "v-in", body.Data[0].ID)
}

func TestClipsGroupedWithHighlights(t *testing.T) {
	stub := newProviderStub(t)
	stub.handle("/helix/videos", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, map[string]any{"data": []map[string]any{
			{"id": "vod1", "created_at": "2026-08-20T12:00:00Z", "title": "stream day"},
		}})
	})
	stub.handle("/helix/clips", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, map[string]any{"data": []map[string]any{
			{"id": "c-low", "video_id": "vod1", "view_count": 5, "duration": 20.0},
			{"id": "c-high", "video_id": "vod1", "view_count": 500, "duration": 30.0},
			{"id": "c-orphan", "video_id": "other", "view_count": 9, "duration": 10.0},
		}})
	})

	s := newTestServer(t, stub)
	rec := doRequest(t, s.Router(), http.MethodGet,
		"/api/clips?broadcaster_id=b1&started_at=2026-08-17T00:00:00Z&ended_at=2026-08-24T00:00:00Z", true)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data map[string]struct {
			VOD   helix.Video  `json:"vod"`
			Clips []helix.Clip `json:"clips"`
		} `json:"data"`
		Highlights []helix.Clip `json:"highlights"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Data, 1)
	group := body.Data["vod1"]
	require.Equal(t, "stream day", group.VOD.Title)
	require.Equal(t, []string{"c-high", "c-low"}, []string{group.Clips[0].ID, group.Clips[1].ID})
	// All three clips fit the default budget; playback order falls back to
	// view count when no offsets are known.
	require.Len(t, body.Highlights, 3)
	require.Equal(t, "c-high", body.Highlights[0].ID)
}

func TestClipsRejectsBadBudget(t *testing.T) {
	s := newTestServer(t, newProviderStub(t))
	rec := doRequest(t, s.Router(), http.MethodGet,
		"/api/clips?broadcaster_id=b1&started_at=2026-08-17T00:00:00Z&ended_at=2026-08-24T00:00:00Z&budget=-5", true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamStatusBatch(t *testing.T) {
	stub := newProviderStub(t)
	stub.handle("/helix/streams", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, map[string]any{"data": []map[string]any{
			{"id": "s1", "user_id": "b2", "type": "live"},
		}})
	})

	s := newTestServer(t, stub)
	rec := doRequest(t, s.Router(), http.MethodGet, "/api/stream-status-batch?broadcaster_ids=b1,b2,b3", true)

	require.Equal(t, http.StatusOK, rec.Code)
	var live map[string]bool
	decodeBody(t, rec, &live)
	require.Equal(t, map[string]bool{"b1": false, "b2": true, "b3": false}, live)
}

func TestCheckSubscriptionNotSubscribed(t *testing.T) {
	stub := newProviderStub(t)
	stub.handle("/helix/subscriptions/user", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"not subscribed"}`, http.StatusNotFound)
	})

	s := newTestServer(t, stub)
	rec := doRequest(t, s.Router(), http.MethodGet, "/api/check-subscription?broadcaster_id=b1", true)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Subscribed   bool                `json:"subscribed"`
		Subscription *helix.Subscription `json:"subscription"`
	}
	decodeBody(t, rec, &body)
	require.False(t, body.Subscribed)
	require.Nil(t, body.Subscription)
}

func TestCheckSubscriptionBatchIsolatesFailures(t *testing.T) {
	stub := newProviderStub(t)
	stub.handle("/helix/subscriptions/user", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("broadcaster_id") {
		case "sub":
			writeStubJSON(w, map[string]any{"data": []map[string]any{
				{"broadcaster_id": "sub", "tier": "1000"},
			}})
		case "boom":
			http.Error(w, `{"message":"oops"}`, http.StatusInternalServerError)
		default:
			http.Error(w, `{"message":"not subscribed"}`, http.StatusNotFound)
		}
	})

	s := newTestServer(t, stub)
	rec := doRequest(t, s.Router(), http.MethodGet, "/api/check-subscription-batch?broadcaster_ids=sub,none,boom", true)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]*helix.Subscription
	decodeBody(t, rec, &body)
	require.Len(t, body, 3)
	require.NotNil(t, body["sub"])
	require.Equal(t, "1000", body["sub"].Tier)
	require.Nil(t, body["none"])
	require.Nil(t, body["boom"])
}

func TestFollowersCount(t *testing.T) {
	stub := newProviderStub(t)
	stub.handle("/helix/users/follows", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("to_id") != "" {
			writeStubJSON(w, map[string]any{"total": 123, "data": []any{}})
			return
		}
		writeStubJSON(w, map[string]any{"total": 45, "data": []any{}})
	})

	s := newTestServer(t, stub)

	rec := doRequest(t, s.Router(), http.MethodGet, "/api/followers", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]int
	decodeBody(t, rec, &body)
	require.Equal(t, 123, body["total"])

	rec = doRequest(t, s.Router(), http.MethodGet, "/api/following", true)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &body)
	require.Equal(t, 45, body["total"])
}

func TestUpstreamFailureMapsToBadGateway(t *testing.T) {
	stub := newProviderStub(t)
	stub.handle("/helix/channels/followed", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"provider down"}`, http.StatusInternalServerError)
	})

	s := newTestServer(t, stub)
	rec := doRequest(t, s.Router(), http.MethodGet, "/api/followed", true)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStreamStatusDegradesToOffline(t *testing.T) {
	stub := newProviderStub(t)
	stub.handle("/helix/streams", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"down"}`, http.StatusInternalServerError)
	})

	s := newTestServer(t, stub)
	rec := doRequest(t, s.Router(), http.MethodGet, "/api/stream-status?broadcaster_id=b1", true)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decodeBody(t, rec, &body)
	require.Equal(t, false, body["live"])
}

func TestResponsesCarryRequestID(t *testing.T) {
	s := newTestServer(t, newProviderStub(t))
	rec := doRequest(t, s.Router(), http.MethodGet, "/healthz", false)

	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSecurityHeadersApplied(t *testing.T) {
	s := newTestServer(t, newProviderStub(t))
	rec := doRequest(t, s.Router(), http.MethodGet, "/healthz", false)

	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestMetricsEndpointExposed(t *testing.T) {
	s := newTestServer(t, newProviderStub(t))
	rec := doRequest(t, s.Router(), http.MethodGet, "/metrics", false)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "go_goroutines") ||
		strings.Contains(rec.Body.String(), "rewind_"),
		"expected prometheus exposition output")
}

func TestStreamerInfo(t *testing.T) {
	s := newTestServer(t, newProviderStub(t))
	rec := doRequest(t, s.Router(), http.MethodGet, "/api/streamer-info?broadcaster_id=b7", true)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []helix.User `json:"data"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Data, 1)
	require.Equal(t, "b7", body.Data[0].ID)
}

func TestStreamsRequiresUserIDs(t *testing.T) {
	s := newTestServer(t, newProviderStub(t))
	rec := doRequest(t, s.Router(), http.MethodGet, "/api/streams", true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitEnforced(t *testing.T) {
	stub := newProviderStub(t)
	s := newTestServer(t, stub)
	s.cfg.RateLimitRequests = 2
	s.cfg.RateLimitWindow = time.Minute
	router := s.Router()

	var last int
	for i := 0; i < 3; i++ {
		rec := doRequest(t, router, http.MethodGet, "/healthz", false)
		last = rec.Code
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}

func TestSplitIDs(t *testing.T) {
	require.Nil(t, splitIDs(""))
	require.Equal(t, []string{"a", "b"}, splitIDs("a,b"))
	require.Equal(t, []string{"a", "b"}, splitIDs("a, b,"))
	for i, id := range splitIDs(fmt.Sprintf("%s,%s", "x", "y")) {
		require.NotEmpty(t, id, "index %d", i)
	}
}
