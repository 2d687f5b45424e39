// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rewindtv/rewind/internal/helix"
	"github.com/rewindtv/rewind/internal/log"
	"github.com/rewindtv/rewind/internal/recap"
)

// followedChannel is a follow-list entry enriched with the broadcaster's
// profile image and live state.
type followedChannel struct {
	helix.FollowedChannel
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	IsLive          bool   `json:"is_live"`
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, requestUser(r))
}

// enrichedFollowed loads the follow list and joins it with batch profile and
// liveness lookups. Partial batch failures degrade the enrichment, not the
// response.
func (s *Server) enrichedFollowed(r *http.Request) ([]followedChannel, map[string]helix.User, map[string]bool, error) {
	user, token := requestUser(r), requestToken(r)

	followed, err := s.helix.FollowedChannels(r.Context(), token, user.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	ids := make([]string, 0, len(followed))
	for _, ch := range followed {
		ids = append(ids, ch.BroadcasterID)
	}

	var users helix.UserBatch
	var live helix.LiveStatusBatch
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		users = s.helix.Users(r.Context(), ids, token)
	}()
	go func() {
		defer wg.Done()
		live = s.helix.LiveStatus(r.Context(), ids, token)
	}()
	wg.Wait()

	profiles := make(map[string]helix.User, len(users.Users))
	for _, u := range users.Users {
		profiles[u.ID] = u
	}

	enriched := make([]followedChannel, 0, len(followed))
	for _, ch := range followed {
		fc := followedChannel{
			FollowedChannel: ch,
			DisplayName:     ch.BroadcasterName,
			IsLive:          live.Live[ch.BroadcasterID],
		}
		if profile, ok := profiles[ch.BroadcasterID]; ok {
			fc.DisplayName = profile.DisplayName
			fc.ProfileImageURL = profile.ProfileImageURL
		}
		enriched = append(enriched, fc)
	}
	return enriched, profiles, live.Live, nil
}

func (s *Server) handleFollowed(w http.ResponseWriter, r *http.Request) {
	enriched, _, _, err := s.enrichedFollowed(r)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": enriched})
}

func (s *Server) handleStreamerData(w http.ResponseWriter, r *http.Request) {
	enriched, profiles, live, err := s.enrichedFollowed(r)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"followed":   enriched,
		"profiles":   profiles,
		"liveStatus": live,
	})
}

// timeWindow parses the started_at/ended_at query parameters.
func timeWindow(r *http.Request) (from, to time.Time, err error) {
	from, err = time.Parse(time.RFC3339, r.URL.Query().Get("started_at"))
	if err != nil {
		return
	}
	to, err = time.Parse(time.RFC3339, r.URL.Query().Get("ended_at"))
	return
}

func (s *Server) handleVODs(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeBadRequest(w, "missing user_id parameter")
		return
	}
	from, to, err := timeWindow(r)
	if err != nil {
		writeBadRequest(w, "missing or invalid started_at/ended_at parameters")
		return
	}

	vods, err := s.helix.VideosInWindow(r.Context(), requestToken(r), userID, from, to)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": vods})
}

// handleClips assembles the recap payload: VODs in the window, every clip
// recorded from them, grouped per VOD with the most-viewed clips first.
func (s *Server) handleClips(w http.ResponseWriter, r *http.Request) {
	broadcasterID := r.URL.Query().Get("broadcaster_id")
	if broadcasterID == "" {
		writeBadRequest(w, "missing broadcaster_id parameter")
		return
	}
	from, to, err := timeWindow(r)
	if err != nil {
		writeBadRequest(w, "missing or invalid started_at/ended_at parameters")
		return
	}
	budget := float64(recap.DefaultBudgetSeconds)
	if raw := r.URL.Query().Get("budget"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "invalid budget parameter")
			return
		}
		budget = parsed
	}
	token := requestToken(r)

	vods, err := s.helix.VideosInWindow(r.Context(), token, broadcasterID, from, to)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	if len(vods) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"data":       map[string]recap.DayRecap{},
			"highlights": []helix.Clip{},
		})
		return
	}

	clips, err := s.helix.Clips(r.Context(), token, broadcasterID, from, to)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":       recap.GroupClipsByVOD(vods, clips),
		"highlights": recap.SelectHighlights(clips, budget),
	})
}

func (s *Server) handleStreamStatus(w http.ResponseWriter, r *http.Request) {
	broadcasterID := r.URL.Query().Get("broadcaster_id")
	if broadcasterID == "" {
		writeBadRequest(w, "missing broadcaster_id parameter")
		return
	}

	stream, err := s.helix.StreamStatus(r.Context(), requestToken(r), broadcasterID)
	if err != nil {
		// Status checks are best-effort; report offline like the
		// dashboard expects rather than failing the widget.
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).
			Str(log.FieldEndpoint, r.URL.Path).
			Msg("stream status lookup failed")
		writeJSON(w, http.StatusOK, map[string]any{"live": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"live": stream != nil, "stream": stream})
}

func (s *Server) handleStreamStatusBatch(w http.ResponseWriter, r *http.Request) {
	ids := splitIDs(r.URL.Query().Get("broadcaster_ids"))
	if len(ids) == 0 {
		writeBadRequest(w, "missing broadcaster_ids parameter")
		return
	}

	batch := s.helix.LiveStatus(r.Context(), ids, requestToken(r))
	writeJSON(w, http.StatusOK, batch.Live)
}

func (s *Server) handleStreams(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["user_id"]
	if len(ids) == 0 {
		writeBadRequest(w, "missing user_id parameter")
		return
	}

	streams, err := s.helix.Streams(r.Context(), requestToken(r), ids)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": streams})
}

func (s *Server) handleStreamerInfo(w http.ResponseWriter, r *http.Request) {
	broadcasterID := r.URL.Query().Get("broadcaster_id")
	if broadcasterID == "" {
		writeBadRequest(w, "missing broadcaster_id parameter")
		return
	}

	user, err := s.helix.UserByID(r.Context(), requestToken(r), broadcasterID)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": []any{user}})
}

func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) {
	total, err := s.helix.FollowerCount(r.Context(), requestToken(r), requestUser(r).ID)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total": total})
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	total, err := s.helix.FollowingCount(r.Context(), requestToken(r), requestUser(r).ID)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total": total})
}

func (s *Server) handleCheckSubscription(w http.ResponseWriter, r *http.Request) {
	broadcasterID := r.URL.Query().Get("broadcaster_id")
	if broadcasterID == "" {
		writeBadRequest(w, "broadcaster_id is required")
		return
	}

	sub, err := s.helix.UserSubscription(r.Context(), requestToken(r), requestUser(r).ID, broadcasterID)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subscribed":   sub != nil,
		"subscription": sub,
	})
}

// handleCheckSubscriptionBatch resolves each broadcaster independently. A
// failed lookup yields a null entry rather than failing the whole batch.
func (s *Server) handleCheckSubscriptionBatch(w http.ResponseWriter, r *http.Request) {
	ids := splitIDs(r.URL.Query().Get("broadcaster_ids"))
	if len(ids) == 0 {
		writeBadRequest(w, "missing broadcaster_ids parameter")
		return
	}
	user, token := requestUser(r), requestToken(r)

	results := make([]*helix.Subscription, len(ids))
	var g errgroup.Group
	g.SetLimit(8)
	for i, id := range ids {
		g.Go(func() error {
			sub, err := s.helix.UserSubscription(r.Context(), token, user.ID, id)
			if err != nil {
				logger := log.WithComponentFromContext(r.Context(), "api")
				logger.Warn().Err(err).
					Str("broadcaster_id", id).
					Msg("subscription lookup failed")
				return nil
			}
			results[i] = sub
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]*helix.Subscription, len(ids))
	for i, id := range ids {
		out[id] = results[i]
	}
	writeJSON(w, http.StatusOK, out)
}

// splitIDs parses a comma-separated ID list, dropping empty segments.
func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
