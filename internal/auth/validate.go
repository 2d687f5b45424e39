// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rewindtv/rewind/internal/cache"
	"github.com/rewindtv/rewind/internal/helix"
)

// UserLookup resolves a bearer token to the provider profile it belongs to.
// *helix.Client satisfies it.
type UserLookup interface {
	CurrentUser(ctx context.Context, accessToken string) (*helix.User, error)
}

// Validator checks bearer tokens against the provider and remembers recent
// verdicts so every API request does not cost an upstream round trip. Only
// positive verdicts are cached; a revoked token is rejected as soon as the
// cached entry lapses.
type Validator struct {
	lookup UserLookup
	store  cache.Store
}

// NewValidator builds a Validator. Nil store disables verdict caching.
func NewValidator(lookup UserLookup, store cache.Store) *Validator {
	if store == nil {
		store = cache.NewNoOpStore()
	}
	return &Validator{lookup: lookup, store: store}
}

// Validate resolves the user behind accessToken. Invalid or expired tokens
// surface as an *helix.UpstreamError with an auth status.
func (v *Validator) Validate(ctx context.Context, accessToken string) (*helix.User, error) {
	key := "validate_" + TokenHash(accessToken)
	if raw, ok := v.store.Get(key); ok {
		var u helix.User
		if err := json.Unmarshal(raw, &u); err == nil {
			return &u, nil
		}
	}

	user, err := v.lookup.CurrentUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(user); err == nil {
		v.store.Set(key, raw)
	}
	return user, nil
}

// TokenHash derives a short stable identifier from a token, safe for cache
// keys and logs where the raw credential must never appear.
func TokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:16]
}

// SessionCookie carries the access token for browser clients that cannot set
// an Authorization header on navigation requests.
const SessionCookie = "rewind_session"

// ExtractToken pulls the bearer token from a request, preferring the
// Authorization header over the session cookie.
func ExtractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}
