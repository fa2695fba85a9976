package memory

import (
	"context"
	"sync"
	"time"

	"github.com/latchagent/latch-core/internal/domain/activity"
)

// ActivityStore implements activity.Store in memory, assigning
// monotonically increasing ids (spec.md §5 ordering guarantees). Intended
// for tests and short-lived sessions; see
// internal/adapter/outbound/activityfile for durable persistence.
type ActivityStore struct {
	mu     sync.RWMutex
	events []activity.Event
	nextID int64
}

// NewActivityStore creates an empty activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{nextID: 1}
}

func (s *ActivityStore) Append(ctx context.Context, evt activity.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	evt.ID = s.nextID
	s.nextID++
	s.events = append(s.events, evt)
	return nil
}

func (s *ActivityStore) Range(ctx context.Context, start, end time.Time) ([]activity.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]activity.Event, 0)
	for _, e := range s.events {
		if (e.Timestamp.Equal(start) || e.Timestamp.After(start)) && e.Timestamp.Before(end) {
			out = append(out, e)
		}
	}
	return out, nil
}
