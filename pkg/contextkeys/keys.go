package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for the ID of a caller-facing request.
	RequestIDKey contextKey = "request_id"

	// TaskIDKey is the context key for the ID of a detached background
	// task (revalidation, stale-run refresh).
	TaskIDKey contextKey = "task_id"

	// CacheKeyKey is the context key for the cache key a background
	// task is refreshing.
	CacheKeyKey contextKey = "cache_key"
)

// String makes contextKey satisfy fmt.Stringer for logging of the keys themselves.
func (c contextKey) String() string {
	return string(c)
}
