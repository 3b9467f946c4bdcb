package ports

import "context"

// HealthChecker is one backing store probed by GET /health. Name is the key
// reported in the response body; Ping returns nil when the store is usable.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}
