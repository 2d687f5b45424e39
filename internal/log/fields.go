// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Provider fields
	FieldEndpoint = "endpoint"
	FieldCacheKey = "cache_key"
	FieldChunk    = "chunk"
	FieldStatus   = "status"
)
