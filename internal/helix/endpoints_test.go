// SPDX-License-Identifier: MIT

package helix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideosInWindowFiltersByCreation(t *testing.T) {
	from := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	videos := []Video{
		{ID: "before", CreatedAt: from.Add(-time.Hour), Type: "archive"},
		{ID: "start", CreatedAt: from, Type: "archive"}, // inclusive lower bound
		{ID: "inside", CreatedAt: from.Add(72 * time.Hour), Type: "archive"},
		{ID: "end", CreatedAt: to, Type: "archive"}, // exclusive upper bound
	}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "archive", r.URL.Query().Get("type"))
		_ = json.NewEncoder(w).Encode(map[string]any{"data": videos})
	}), nil)

	got, err := client.VideosInWindow(context.Background(), "tok", "42", from, to)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "start", got[0].ID)
	assert.Equal(t, "inside", got[1].ID)
}

func TestClipsFollowsPaginationCursor(t *testing.T) {
	pages := map[string]struct {
		clips []Clip
		next  string
	}{
		"":    {clips: []Clip{{ID: "c1"}, {ID: "c2"}}, next: "cur1"},
		"cur1": {clips: []Clip{{ID: "c3"}}, next: "cur2"},
		"cur2": {clips: []Clip{{ID: "c4"}}, next: ""},
	}
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		page := pages[r.URL.Query().Get("after")]
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":       page.clips,
			"pagination": map[string]string{"cursor": page.next},
		})
	}), nil)

	from := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	clips, err := client.Clips(context.Background(), "tok", "42", from, from.AddDate(0, 0, 7))
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, clips, 4)
	assert.Equal(t, "c4", clips[3].ID)
}

func TestClipsStopsAtPageCap(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		// Endless cursor chain: someone has to pull the plug.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":       []Clip{{ID: fmt.Sprintf("c%d", n)}},
			"pagination": map[string]string{"cursor": fmt.Sprintf("cur%d", n)},
		})
	}), nil)

	from := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	clips, err := client.Clips(context.Background(), "tok", "42", from, from.AddDate(0, 0, 7))
	require.NoError(t, err)

	assert.Equal(t, int32(maxClipPages), calls.Load())
	assert.Len(t, clips, maxClipPages)
}

func TestClipsStopsOnEmptyPage(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":       []Clip{},
			"pagination": map[string]string{"cursor": "more"},
		})
	}), nil)

	from := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	clips, err := client.Clips(context.Background(), "tok", "42", from, from.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Empty(t, clips)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUserSubscriptionNotFoundMeansNotSubscribed(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not Found","message":"user not subscribed"}`))
	}), nil)

	sub, err := client.UserSubscription(context.Background(), "tok", "1", "2")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestUserSubscriptionFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "2", r.URL.Query().Get("broadcaster_id"))
		_, _ = w.Write([]byte(`{"data":[{"broadcaster_id":"2","tier":"1000","is_gift":false}]}`))
	}), nil)

	sub, err := client.UserSubscription(context.Background(), "tok", "1", "2")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "1000", sub.Tier)
}

func TestFollowerCount(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("to_id"))
		_, _ = w.Write([]byte(`{"total":1234,"data":[]}`))
	}), nil)

	total, err := client.FollowerCount(context.Background(), "tok", "42")
	require.NoError(t, err)
	assert.Equal(t, 1234, total)
}

func TestCurrentUser(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"9","login":"streamer","display_name":"Streamer"}]}`))
	}), nil)

	user, err := client.CurrentUser(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "9", user.ID)
	assert.Equal(t, "Streamer", user.DisplayName)
}

func TestCurrentUserEmptyResponse(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}), nil)

	_, err := client.CurrentUser(context.Background(), "tok")
	require.Error(t, err)
}

func TestStreamStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"user_id":"42","type":"live","viewer_count":99}]}`))
	}), nil)

	stream, err := client.StreamStatus(context.Background(), "tok", "42")
	require.NoError(t, err)
	require.NotNil(t, stream)
	assert.Equal(t, 99, stream.ViewerCount)
}

func TestVideoDurationSeconds(t *testing.T) {
	assert.Equal(t, float64(0), Video{}.DurationSeconds())
	assert.Equal(t, float64(0), Video{Duration: "garbage"}.DurationSeconds())
	assert.Equal(t, 11313.0, Video{Duration: "3h8m33s"}.DurationSeconds())
	assert.Equal(t, 40.0, Video{Duration: "40s"}.DurationSeconds())
}
