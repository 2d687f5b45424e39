// SPDX-License-Identifier: MIT

package helix

import (
	"encoding/json"
	"time"
)

// User is a provider user/channel profile.
type User struct {
	ID              string    `json:"id"`
	Login           string    `json:"login"`
	DisplayName     string    `json:"display_name"`
	Type            string    `json:"type"`
	BroadcasterType string    `json:"broadcaster_type"`
	Description     string    `json:"description"`
	ProfileImageURL string    `json:"profile_image_url"`
	OfflineImageURL string    `json:"offline_image_url"`
	CreatedAt       time.Time `json:"created_at"`
}

// Stream is an active live session.
type Stream struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserLogin    string    `json:"user_login"`
	UserName     string    `json:"user_name"`
	GameID       string    `json:"game_id"`
	GameName     string    `json:"game_name"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	ViewerCount  int       `json:"viewer_count"`
	StartedAt    time.Time `json:"started_at"`
	ThumbnailURL string    `json:"thumbnail_url"`
}

// Video is a recorded past broadcast (VOD).
type Video struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserLogin    string    `json:"user_login"`
	UserName     string    `json:"user_name"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	PublishedAt  time.Time `json:"published_at"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	ViewCount    int       `json:"view_count"`
	Language     string    `json:"language"`
	Type         string    `json:"type"`
	Duration     string    `json:"duration"` // provider format, e.g. "3h8m33s"
}

// DurationSeconds parses the provider duration string. Unparsable or missing
// durations read as zero.
func (v Video) DurationSeconds() float64 {
	if v.Duration == "" {
		return 0
	}
	d, err := time.ParseDuration(v.Duration)
	if err != nil {
		return 0
	}
	return d.Seconds()
}

// Clip is a short excerpt of a VOD with its own view count and optional
// offset into the parent VOD. VodOffset is nil when the provider does not
// know the position.
type Clip struct {
	ID              string    `json:"id"`
	URL             string    `json:"url"`
	EmbedURL        string    `json:"embed_url"`
	BroadcasterID   string    `json:"broadcaster_id"`
	BroadcasterName string    `json:"broadcaster_name"`
	CreatorID       string    `json:"creator_id"`
	CreatorName     string    `json:"creator_name"`
	VideoID         string    `json:"video_id"`
	GameID          string    `json:"game_id"`
	Language        string    `json:"language"`
	Title           string    `json:"title"`
	ViewCount       int       `json:"view_count"`
	CreatedAt       time.Time `json:"created_at"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	Duration        float64   `json:"duration"`
	VodOffset       *int      `json:"vod_offset"`
}

// FollowedChannel is one entry of the authenticated user's follow list.
type FollowedChannel struct {
	BroadcasterID    string    `json:"broadcaster_id"`
	BroadcasterLogin string    `json:"broadcaster_login"`
	BroadcasterName  string    `json:"broadcaster_name"`
	FollowedAt       time.Time `json:"followed_at"`
}

// Subscription describes the authenticated user's subscription to a broadcaster.
type Subscription struct {
	BroadcasterID    string `json:"broadcaster_id"`
	BroadcasterLogin string `json:"broadcaster_login"`
	BroadcasterName  string `json:"broadcaster_name"`
	GifterName       string `json:"gifter_name,omitempty"`
	IsGift           bool   `json:"is_gift"`
	Tier             string `json:"tier"`
}

// Pagination carries the provider's cursor for list endpoints.
type Pagination struct {
	Cursor string `json:"cursor"`
}

// page is the provider's standard list envelope.
type page[T any] struct {
	Data       []T        `json:"data"`
	Total      int        `json:"total"`
	Pagination Pagination `json:"pagination"`
}

// decodePage unmarshals a raw gateway payload into a typed list envelope.
// A payload that passed the gateway's JSON check but does not fit the
// expected shape is reported as malformed.
func decodePage[T any](raw json.RawMessage) (page[T], error) {
	var p page[T]
	if err := json.Unmarshal(raw, &p); err != nil {
		return page[T]{}, &MalformedResponseError{Err: err}
	}
	return p, nil
}
