package activity

import (
	"context"
	"time"
)

// Store is the append-only activity log. The store's id is monotonically
// assigned by the implementation (spec.md §5 ordering guarantees).
type Store interface {
	// Append records a terminal decision. Implementations must not block the
	// caller for long — on failure the response path still completes and
	// the event is lost (UpstreamStoreFailure, spec.md §7).
	Append(ctx context.Context, evt Event) error

	// Range returns events in [start, end) ordered by Timestamp, for radar
	// consumption (spec.md §1 Out of scope: radar is a downstream consumer
	// only, never mutates).
	Range(ctx context.Context, start, end time.Time) ([]Event, error)
}
