package middleware

// ContextKey is the type used for values stored in the gin context by
// middleware in this package.
type ContextKey string

const (
	// UserIDKey carries the owner ID extracted from the gateway header.
	UserIDKey ContextKey = "user_id"
)
