// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rewindtv/rewind/internal/helix"
	"github.com/rewindtv/rewind/internal/log"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeBadRequest reports a missing or malformed request parameter.
func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// writeUnauthorized reports a missing or rejected credential.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msg})
}

// writeUpstreamError translates a provider-layer failure into an HTTP status.
// Auth failures map to 401, other provider failures to 502, malformed
// provider payloads and everything else to 500. This is the only place the
// mapping happens; the provider layer itself never sees HTTP responses.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	var upstream *helix.UpstreamError
	if errors.As(err, &upstream) {
		if upstream.IsAuthError() {
			writeUnauthorized(w, "provider rejected credentials")
			return
		}
		logger.Warn().Err(err).
			Str(log.FieldEndpoint, r.URL.Path).
			Msg("upstream request failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream request failed"})
		return
	}

	var malformed *helix.MalformedResponseError
	if errors.As(err, &malformed) {
		logger.Error().Err(err).
			Str(log.FieldEndpoint, r.URL.Path).
			Msg("malformed upstream response")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "invalid upstream response"})
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "request timed out"})
		return
	}

	logger.Error().Err(err).
		Str(log.FieldEndpoint, r.URL.Path).
		Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
