package feed

import (
	"sync"

	"github.com/courtside/scoresync/internal/telemetry"
)

// DefaultSize is how many lines the live screen shows.
const DefaultSize = 5

// Feed is the bounded, most-recent-first play-by-play list. Every insert
// is checked against all ids ever seen, not just the retained window, so
// a retried poll that re-derives the same events cannot sneak a duplicate
// in after the original scrolled off.
type Feed struct {
	mu     sync.Mutex
	max    int
	events []Event
	seen   map[string]struct{}
}

func NewFeed(max int) *Feed {
	if max <= 0 {
		max = DefaultSize
	}
	return &Feed{
		max:  max,
		seen: make(map[string]struct{}),
	}
}

// Add inserts new events at the front, preserving their order within the
// batch, and evicts the oldest beyond the cap. Returns how many were
// actually inserted after dedup.
func (f *Feed) Add(events []Event) int {
	if len(events) == 0 {
		return 0
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var fresh []Event
	for _, e := range events {
		if _, dup := f.seen[e.ID]; dup {
			telemetry.Metrics.FeedDupesDropped.Inc()
			continue
		}
		f.seen[e.ID] = struct{}{}
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return 0
	}

	f.events = append(fresh, f.events...)
	if len(f.events) > f.max {
		f.events = f.events[:f.max]
	}

	telemetry.Metrics.FeedEvents.Add(int64(len(fresh)))
	return len(fresh)
}

// Events returns a copy of the retained lines, most recent first.
func (f *Feed) Events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

// Reset clears the feed and its dedup history for a fresh session.
func (f *Feed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
	f.seen = make(map[string]struct{})
}
