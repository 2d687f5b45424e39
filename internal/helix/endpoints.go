// SPDX-License-Identifier: MIT

package helix

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// clipPageSize is the page size requested from the clips endpoint.
const clipPageSize = 50

// maxClipPages caps cursor-following on the clips endpoint so a
// runaway cursor chain cannot loop forever.
const maxClipPages = 10

// FollowedChannels returns the channels the given user follows.
func (c *Client) FollowedChannels(ctx context.Context, accessToken, userID string) ([]FollowedChannel, error) {
	u := fmt.Sprintf("%s/channels/followed?user_id=%s&first=100", c.baseURL, url.QueryEscape(userID))
	raw, err := c.Do(ctx, u, accessToken, "followed_"+userID)
	if err != nil {
		return nil, err
	}
	p, err := decodePage[FollowedChannel](raw)
	if err != nil {
		return nil, err
	}
	return p.Data, nil
}

// VideosInWindow returns the user's archived broadcasts created in [from, to).
// The provider call is not window-scoped (the archive listing endpoint has no
// date filter), so the window is applied client-side; the cache key carries
// the window to keep distinct recap weeks distinct.
func (c *Client) VideosInWindow(ctx context.Context, accessToken, userID string, from, to time.Time) ([]Video, error) {
	u := fmt.Sprintf("%s/videos?user_id=%s&type=archive&first=100", c.baseURL, url.QueryEscape(userID))
	key := fmt.Sprintf("vods_%s_%s_%s", userID, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	raw, err := c.Do(ctx, u, accessToken, key)
	if err != nil {
		return nil, err
	}
	p, err := decodePage[Video](raw)
	if err != nil {
		return nil, err
	}
	videos := make([]Video, 0, len(p.Data))
	for _, v := range p.Data {
		if !v.CreatedAt.Before(from) && v.CreatedAt.Before(to) {
			videos = append(videos, v)
		}
	}
	return videos, nil
}

// Clips returns the broadcaster's clips created in the given window, following
// the provider's pagination cursor until it runs out or maxClipPages is hit.
// Each page is independently cacheable.
func (c *Client) Clips(ctx context.Context, accessToken, broadcasterID string, from, to time.Time) ([]Clip, error) {
	base := fmt.Sprintf("%s/clips?broadcaster_id=%s&started_at=%s&ended_at=%s&first=%d",
		c.baseURL,
		url.QueryEscape(broadcasterID),
		url.QueryEscape(from.UTC().Format(time.RFC3339)),
		url.QueryEscape(to.UTC().Format(time.RFC3339)),
		clipPageSize,
	)
	keyPrefix := fmt.Sprintf("clips_%s_%s_%s", broadcasterID,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))

	var clips []Clip
	cursor := ""
	for pageNum := 0; pageNum < maxClipPages; pageNum++ {
		u := base
		key := fmt.Sprintf("%s_page%d_start", keyPrefix, pageNum)
		if cursor != "" {
			u += "&after=" + url.QueryEscape(cursor)
			key = fmt.Sprintf("%s_page%d_%s", keyPrefix, pageNum, cursor)
		}

		raw, err := c.Do(ctx, u, accessToken, key)
		if err != nil {
			return nil, err
		}
		p, err := decodePage[Clip](raw)
		if err != nil {
			return nil, err
		}

		clips = append(clips, p.Data...)
		if len(p.Data) == 0 || p.Pagination.Cursor == "" {
			break
		}
		cursor = p.Pagination.Cursor
	}
	return clips, nil
}

// Streams returns the active live sessions among the given user IDs.
// The list must fit in one provider request; larger lookups belong to
// LiveStatus.
func (c *Client) Streams(ctx context.Context, accessToken string, userIDs []string) ([]Stream, error) {
	query := idQuery("user_id", userIDs)
	raw, err := c.Do(ctx, fmt.Sprintf("%s/streams?%s", c.baseURL, query), accessToken, "streams_"+query)
	if err != nil {
		return nil, err
	}
	p, err := decodePage[Stream](raw)
	if err != nil {
		return nil, err
	}
	return p.Data, nil
}

// StreamStatus returns the broadcaster's active stream, or nil when offline.
func (c *Client) StreamStatus(ctx context.Context, accessToken, broadcasterID string) (*Stream, error) {
	u := fmt.Sprintf("%s/streams?user_id=%s", c.baseURL, url.QueryEscape(broadcasterID))
	raw, err := c.Do(ctx, u, accessToken, "stream_status_"+broadcasterID)
	if err != nil {
		return nil, err
	}
	p, err := decodePage[Stream](raw)
	if err != nil {
		return nil, err
	}
	if len(p.Data) == 0 {
		return nil, nil
	}
	return &p.Data[0], nil
}

// UserByID returns the profile of a single user.
func (c *Client) UserByID(ctx context.Context, accessToken, id string) (*User, error) {
	u := fmt.Sprintf("%s/users?id=%s", c.baseURL, url.QueryEscape(id))
	raw, err := c.Do(ctx, u, accessToken, "streamer_info_"+id)
	if err != nil {
		return nil, err
	}
	p, err := decodePage[User](raw)
	if err != nil {
		return nil, err
	}
	if len(p.Data) == 0 {
		return nil, nil
	}
	return &p.Data[0], nil
}

// CurrentUser resolves the user who owns the access token. Never cached:
// the result is the basis for authentication decisions.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	raw, err := c.Do(ctx, c.baseURL+"/users", accessToken, "")
	if err != nil {
		return nil, err
	}
	p, err := decodePage[User](raw)
	if err != nil {
		return nil, err
	}
	if len(p.Data) == 0 {
		return nil, errors.New("provider returned no user for token")
	}
	return &p.Data[0], nil
}

// UserSubscription checks whether userID subscribes to broadcasterID.
// The provider signals "not subscribed" with a 404, which is not an error
// here; it maps to a nil subscription.
func (c *Client) UserSubscription(ctx context.Context, accessToken, userID, broadcasterID string) (*Subscription, error) {
	u := fmt.Sprintf("%s/subscriptions/user?user_id=%s&broadcaster_id=%s",
		c.baseURL, url.QueryEscape(userID), url.QueryEscape(broadcasterID))
	key := fmt.Sprintf("subscription_%s_%s", userID, broadcasterID)

	raw, err := c.Do(ctx, u, accessToken, key)
	if err != nil {
		var upstream *UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	p, err := decodePage[Subscription](raw)
	if err != nil {
		return nil, err
	}
	if len(p.Data) == 0 {
		return nil, nil
	}
	return &p.Data[0], nil
}

// FollowerCount returns how many users follow userID.
func (c *Client) FollowerCount(ctx context.Context, accessToken, userID string) (int, error) {
	u := fmt.Sprintf("%s/users/follows?to_id=%s", c.baseURL, url.QueryEscape(userID))
	raw, err := c.Do(ctx, u, accessToken, "followers_"+userID)
	if err != nil {
		return 0, err
	}
	p, err := decodePage[FollowedChannel](raw)
	if err != nil {
		return 0, err
	}
	return p.Total, nil
}

// FollowingCount returns how many users userID follows.
func (c *Client) FollowingCount(ctx context.Context, accessToken, userID string) (int, error) {
	u := fmt.Sprintf("%s/users/follows?from_id=%s", c.baseURL, url.QueryEscape(userID))
	raw, err := c.Do(ctx, u, accessToken, "following_"+userID)
	if err != nil {
		return 0, err
	}
	p, err := decodePage[FollowedChannel](raw)
	if err != nil {
		return 0, err
	}
	return p.Total, nil
}
