// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/rewindtv/rewind/internal/auth"
	"github.com/rewindtv/rewind/internal/helix"
	"github.com/rewindtv/rewind/internal/log"
)

type contextKey string

const (
	ctxUser  contextKey = "user"
	ctxToken contextKey = "token"
)

// stateCookie carries the OAuth state value across the login round trip.
const stateCookie = "rewind_oauth_state"

// requireAuth validates the bearer token against the provider and attaches
// the resolved user plus the raw token to the request context. Requests
// without a valid credential never reach the handler.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractToken(r)
		if token == "" {
			writeUnauthorized(w, "no access token provided")
			return
		}

		user, err := s.validator.Validate(r.Context(), token)
		if err != nil {
			writeUpstreamError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxUser, user)
		ctx = context.WithValue(ctx, ctxToken, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestUser returns the authenticated user attached by requireAuth.
func requestUser(r *http.Request) *helix.User {
	u, _ := r.Context().Value(ctxUser).(*helix.User)
	return u
}

// requestToken returns the bearer token attached by requireAuth.
func requestToken(r *http.Request) string {
	t, _ := r.Context().Value(ctxToken).(string)
	return t
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := auth.NewState()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int((5 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.oauth.LoginURL(state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	fail := func(reason string) {
		http.Redirect(w, r, s.cfg.FrontendURL+"/?error="+reason, http.StatusFound)
	}

	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		logger.Warn().Str("oauth_error", errParam).Msg("provider returned oauth error")
		fail("auth_failed")
		return
	}
	code := q.Get("code")
	if code == "" {
		fail("auth_failed")
		return
	}
	if c, err := r.Cookie(stateCookie); err != nil || c.Value == "" || c.Value != q.Get("state") {
		logger.Warn().Msg("oauth state mismatch")
		fail("auth_failed")
		return
	}
	// State is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth", MaxAge: -1})

	tok, err := s.oauth.Exchange(r.Context(), code)
	if err != nil {
		logger.Error().Err(err).Msg("code exchange failed")
		fail("token_exchange_failed")
		return
	}

	user, err := s.helix.CurrentUser(r.Context(), tok.AccessToken)
	if err != nil {
		logger.Error().Err(err).Msg("user fetch after exchange failed")
		fail("user_fetch_failed")
		return
	}
	logger.Info().
		Str(log.FieldUserID, user.ID).
		Str(log.FieldEvent, "auth.login").
		Msg("user authenticated")

	redirect := s.cfg.FrontendURL + "/dashboard?token=" + url.QueryEscape(tok.AccessToken) +
		"&refresh_token=" + url.QueryEscape(tok.RefreshToken)
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractToken(r)
	if token == "" {
		writeUnauthorized(w, "no access token provided")
		return
	}

	user, err := s.validator.Validate(r.Context(), token)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "user": user})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		writeBadRequest(w, "no refresh token provided")
		return
	}

	tok, err := s.oauth.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		writeUnauthorized(w, "token refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := auth.ExtractToken(r); token != "" {
		s.oauth.Revoke(r.Context(), token)
	}
	http.SetCookie(w, &http.Cookie{Name: auth.SessionCookie, Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
