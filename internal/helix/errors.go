// SPDX-License-Identifier: MIT

package helix

import "fmt"

// UpstreamError reports a non-success HTTP status from the provider. The raw
// body is carried for diagnostics; failures are never cached.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.StatusCode)
}

// IsAuthError reports whether the upstream rejected the credential.
func (e *UpstreamError) IsAuthError() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// MalformedResponseError reports a provider body that could not be parsed as
// JSON despite a success status.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("provider returned malformed JSON: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
