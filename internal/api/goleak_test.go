// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"testing"

	"go.uber.org/goleak"
)

func TestFollowedLeavesNoGoroutinesBehind(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	stub := newProviderStub(t)
	stub.handle("/helix/channels/followed", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, map[string]any{"data": []map[string]any{
			{"broadcaster_id": "b1", "broadcaster_name": "One"},
		}})
	})
	stub.handle("/helix/streams", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, map[string]any{"data": []any{}})
	})

	s := newTestServer(t, stub)
	rec := doRequest(t, s.Router(), http.MethodGet, "/api/streamer-data", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	stub.srv.Client().CloseIdleConnections()
	stub.srv.CloseClientConnections()
	stub.srv.Close()
}
