// SPDX-License-Identifier: MIT

// Package auth implements the provider OAuth2 authorization-code flow and
// bearer-token validation for the HTTP surface.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/rewindtv/rewind/internal/log"
)

// Scopes requested during login. They cover the follow list, subscription
// checks and reading the authenticated user's own profile.
var Scopes = []string{
	"user:read:follows",
	"user:read:subscriptions",
	"user:read:email",
}

// Token is the credential set handed back to the frontend after a code
// exchange or refresh.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Service drives the authorization-code flow against the provider's identity
// host.
type Service struct {
	cfg       *oauth2.Config
	revokeURL string
	logger    zerolog.Logger
}

// NewService builds a Service from application credentials. oauthURL is the
// identity host root, e.g. "https://id.twitch.tv/oauth2".
func NewService(clientID, clientSecret, redirectURL, oauthURL string) *Service {
	base := strings.TrimRight(oauthURL, "/")
	return &Service{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/authorize",
				TokenURL: base + "/token",
			},
		},
		revokeURL: base + "/revoke",
		logger:    log.WithComponent("auth"),
	}
}

// NewState returns an unguessable state value for one login round trip.
func NewState() string {
	return uuid.NewString()
}

// LoginURL is the provider consent page the browser is sent to.
func (s *Service) LoginURL(state string) string {
	return s.cfg.AuthCodeURL(state)
}

// Exchange redeems an authorization code for tokens.
func (s *Service) Exchange(ctx context.Context, code string) (*Token, error) {
	tok, err := s.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	s.logger.Info().Str(log.FieldEvent, "auth.exchange").Msg("authorization code redeemed")
	return fromOAuth2(tok), nil
}

// Refresh trades a refresh token for a fresh access token. The provider may
// rotate the refresh token; callers must persist the returned one.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	src := s.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	s.logger.Info().Str(log.FieldEvent, "auth.refresh").Msg("access token refreshed")
	return fromOAuth2(tok), nil
}

// Revoke invalidates an access token at the provider. Revocation failures are
// logged, not returned; the session is gone for us either way.
func (s *Service) Revoke(ctx context.Context, accessToken string) {
	form := url.Values{
		"client_id": {s.cfg.ClientID},
		"token":     {accessToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.logger.Warn().Err(err).Str(log.FieldEvent, "auth.revoke").Msg("token revocation failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		s.logger.Warn().Int(log.FieldStatus, resp.StatusCode).
			Str(log.FieldEvent, "auth.revoke").
			Msg("provider rejected token revocation")
	}
}

func fromOAuth2(tok *oauth2.Token) *Token {
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
	}
}
