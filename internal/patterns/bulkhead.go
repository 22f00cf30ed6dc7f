package patterns

import (
	"context"
	"fmt"

	"github.com/ashendes/pickle-storefront/internal/metrics"
)

// Bulkhead caps the number of concurrent calls into one dependency
type Bulkhead struct {
	semaphore chan struct{}
	name      string
	service   string
}

// NewBulkhead creates a new bulkhead with specified capacity
func NewBulkhead(size int, name, service string) *Bulkhead {
	return &Bulkhead{
		semaphore: make(chan struct{}, size),
		name:      name,
		service:   service,
	}
}

// Execute runs fn once a slot is free. It gives up when ctx is done or after
// AcquireTimeout, whichever comes first.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	ctx, cancel := WithTimeout(ctx, AcquireTimeout)
	defer cancel()

	select {
	case b.semaphore <- struct{}{}:
		metrics.BulkheadActiveRequests.WithLabelValues(b.service, b.name).Inc()

		defer func() {
			<-b.semaphore
			metrics.BulkheadActiveRequests.WithLabelValues(b.service, b.name).Dec()
		}()

		return fn()

	case <-ctx.Done():
		metrics.BulkheadRejectedRequests.WithLabelValues(b.service, b.name).Inc()
		return fmt.Errorf("bulkhead %s: timeout acquiring resource: %w", b.name, ErrUnavailable)
	}
}

// GetName returns the bulkhead name
func (b *Bulkhead) GetName() string {
	return b.name
}
