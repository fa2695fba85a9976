// Package feed is an in-memory implementation of the ui.Publisher port,
// fanning events out to per-session subscriber channels (adapted from
// internal/adapter/inbound/http's SSE sessionRegistry: register/unregister
// channels per session, terminate/closeAll tear them all down).
package feed

import (
	"sync"

	"github.com/latchagent/latch-core/internal/domain/ui"
)

// subscriberBuffer bounds how many unread events a slow subscriber can
// accumulate before new events are dropped for it. The feed is
// best-effort; a stuck UI must never back-pressure the authorization path.
const subscriberBuffer = 64

// Broadcaster fans ui.Event values out to per-session channel subscribers.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string][]chan ui.Event
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string][]chan ui.Event)}
}

// Subscribe registers a new channel for sessionID's feed. Callers must
// call the returned cancel function when done watching.
func (b *Broadcaster) Subscribe(sessionID string) (ch <-chan ui.Event, cancel func()) {
	c := make(chan ui.Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[sessionID] = append(b.subs[sessionID], c)
	b.mu.Unlock()

	return c, func() { b.unsubscribe(sessionID, c) }
}

func (b *Broadcaster) unsubscribe(sessionID string, c chan ui.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[sessionID]
	for i, s := range subs {
		if s == c {
			b.subs[sessionID] = append(subs[:i], subs[i+1:]...)
			close(c)
			break
		}
	}
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
}

// Publish implements ui.Publisher. A subscriber whose buffer is full has
// the event dropped rather than blocking the publisher.
func (b *Broadcaster) Publish(evt ui.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.subs[evt.SessionID] {
		select {
		case c <- evt:
		default:
		}
	}
}

// Close implements ui.Publisher: it tears down every subscriber channel
// for sessionID, e.g. when a session unregisters.
func (b *Broadcaster) Close(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.subs[sessionID] {
		close(c)
	}
	delete(b.subs, sessionID)
}

// CloseAll tears down every subscriber channel for every session, for
// server shutdown.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subs := range b.subs {
		for _, c := range subs {
			close(c)
		}
	}
	b.subs = make(map[string][]chan ui.Event)
}
