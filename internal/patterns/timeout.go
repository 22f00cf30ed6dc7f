package patterns

import (
	"context"
	"time"
)

// DefaultTimeout is the default timeout for calls to the storefront service
const DefaultTimeout = 3 * time.Second

// SlowServiceTimeout covers the payment gateway, whose simulated processing takes seconds
const SlowServiceTimeout = 10 * time.Second

// AcquireTimeout bounds how long a caller waits for a bulkhead slot
const AcquireTimeout = 1 * time.Second

// WithTimeout derives a context that fails fast after duration
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, duration)
}
