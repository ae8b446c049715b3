package constants

import "time"

const (
	// ContextKeyUserID is the gin context key holding the authenticated user's ID.
	ContextKeyUserID = "user_id"
	// ContextKeyIdentity holds the verified identity of the caller.
	ContextKeyIdentity = "identity"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 50
	MaxPageSize     = 200
)

const (
	DefaultAttachmentName = "Unknown"
	DefaultAttachmentMime = "application/octet-stream"

	// NotificationHandlerTimeout bounds a single fan-out write.
	NotificationHandlerTimeout = 5 * time.Second
	// DedupeTTL is how long a delivered event id is remembered.
	DedupeTTL = 24 * time.Hour
)
