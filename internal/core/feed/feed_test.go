package feed

import (
	"fmt"
	"testing"
	"time"
)

func ev(id string) Event {
	return Event{ID: id, Type: EventSteal, Text: id, CreatedAt: time.Now()}
}

func TestFeedDropsDuplicateIDs(t *testing.T) {
	f := NewFeed(5)

	if n := f.Add([]Event{ev("a"), ev("b")}); n != 2 {
		t.Fatalf("first Add inserted %d, want 2", n)
	}
	if n := f.Add([]Event{ev("a"), ev("c")}); n != 1 {
		t.Fatalf("second Add inserted %d, want 1 (a is a duplicate)", n)
	}
	if got := len(f.Events()); got != 3 {
		t.Errorf("feed holds %d events, want 3", got)
	}
}

func TestFeedIsMostRecentFirstAndBounded(t *testing.T) {
	f := NewFeed(3)
	for i := 0; i < 5; i++ {
		f.Add([]Event{ev(fmt.Sprintf("e%d", i))})
	}

	evs := f.Events()
	if len(evs) != 3 {
		t.Fatalf("feed holds %d events, want 3", len(evs))
	}
	for i, want := range []string{"e4", "e3", "e2"} {
		if evs[i].ID != want {
			t.Errorf("events[%d].ID = %s, want %s", i, evs[i].ID, want)
		}
	}
}

func TestFeedBatchKeepsIntraPassOrder(t *testing.T) {
	f := NewFeed(5)
	f.Add([]Event{ev("old")})
	f.Add([]Event{ev("x"), ev("y")})

	evs := f.Events()
	if evs[0].ID != "x" || evs[1].ID != "y" || evs[2].ID != "old" {
		t.Errorf("order = [%s, %s, %s], want [x, y, old]", evs[0].ID, evs[1].ID, evs[2].ID)
	}
}

func TestFeedDedupSurvivesEviction(t *testing.T) {
	// An id that scrolled off the window must still be rejected if a
	// retried poll re-derives it.
	f := NewFeed(2)
	f.Add([]Event{ev("a")})
	f.Add([]Event{ev("b")})
	f.Add([]Event{ev("c")}) // evicts a

	if n := f.Add([]Event{ev("a")}); n != 0 {
		t.Errorf("evicted id re-inserted, want dedup to hold")
	}
}

func TestFeedReset(t *testing.T) {
	f := NewFeed(2)
	f.Add([]Event{ev("a")})
	f.Reset()

	if len(f.Events()) != 0 {
		t.Error("feed not empty after Reset")
	}
	if n := f.Add([]Event{ev("a")}); n != 1 {
		t.Error("Reset did not clear dedup history")
	}
}
