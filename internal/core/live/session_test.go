package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/courtside/scoresync/internal/config"
	"github.com/courtside/scoresync/internal/core/feed"
	"github.com/courtside/scoresync/internal/core/model"
	"github.com/courtside/scoresync/internal/events"
)

func snapshotFixture() *model.GameSnapshot {
	return &model.GameSnapshot{
		ID:                    "g1",
		HomeTeamName:          "Wildcats",
		OpponentName:          "Riverside",
		OurScore:              10,
		OpponentScore:         8,
		CurrentPeriod:         1,
		ClockSecondsRemaining: 600,
		HomeTimeoutsLeft:      4,
		AwayTimeoutsLeft:      4,
		PlayerStats: []model.PlayerStatLine{
			{
				PlayerID:   "p1",
				PlayerName: "Jordan Lee",
				Stats:      model.StatCounters{Points: 6, Steals: 2, FGMade: 3, FGAttempted: 5},
			},
		},
	}
}

func clone(s *model.GameSnapshot) *model.GameSnapshot {
	c := *s
	c.PlayerStats = make([]model.PlayerStatLine, len(s.PlayerStats))
	copy(c.PlayerStats, s.PlayerStats)
	if s.LastMadeShot != nil {
		ms := *s.LastMadeShot
		c.LastMadeShot = &ms
	}
	return &c
}

// viewRecorder collects every view update published on the bus.
type viewRecorder struct {
	mu    sync.Mutex
	views []ViewState
}

func (r *viewRecorder) attach(bus *events.Bus) {
	bus.Subscribe(events.EventViewUpdate, func(e events.Event) error {
		r.mu.Lock()
		r.views = append(r.views, e.Payload.(ViewState))
		r.mu.Unlock()
		return nil
	})
}

func (r *viewRecorder) last(t *testing.T) ViewState {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.views) == 0 {
		t.Fatal("no view updates published")
	}
	return r.views[len(r.views)-1]
}

// newTestSession returns a session in the polling state whose inbox is
// never drained: tests drive applyPoll and friends directly on the test
// goroutine, which is the same single-writer discipline the run loop
// provides.
func newTestSession(t *testing.T) (*Session, *viewRecorder) {
	t.Helper()
	bus := events.NewBus()
	rec := &viewRecorder{}
	rec.attach(bus)
	s := NewSession("g1", nil, nil, feed.NewDetector(config.DefaultFeedLabels()), bus, time.Second)
	s.state = statePolling
	t.Cleanup(func() {
		if s.pollTimer != nil {
			s.pollTimer.Stop()
		}
	})
	return s, rec
}

func TestFirstPollPopulatesView(t *testing.T) {
	s, rec := newTestSession(t)

	s.applyPoll(1, snapshotFixture(), nil)

	v := rec.last(t)
	if v.Game == nil || v.Game.OurScore != 10 {
		t.Fatalf("view game = %+v, want score 10", v.Game)
	}
	if v.ClockSeconds != 600 {
		t.Errorf("ClockSeconds = %d, want 600", v.ClockSeconds)
	}
	if v.FirstLoadFailed {
		t.Error("FirstLoadFailed = true after a successful load")
	}
}

func TestStalePollResultDropped(t *testing.T) {
	s, _ := newTestSession(t)

	newer := snapshotFixture()
	newer.OurScore = 14
	older := snapshotFixture()

	// Two polls in flight; the later request's result lands first.
	s.nextSeq = 2
	s.applyPoll(2, newer, nil)
	s.applyPoll(1, older, nil)

	if s.current.OurScore != 14 {
		t.Errorf("score = %d after stale apply, want 14", s.current.OurScore)
	}
}

func TestPollFailureKeepsLastSnapshot(t *testing.T) {
	s, rec := newTestSession(t)

	s.applyPoll(1, snapshotFixture(), nil)
	s.nextSeq = 2
	s.applyPoll(2, nil, errors.New("dial tcp: connection refused"))

	v := rec.last(t)
	if v.Game == nil || v.Game.OurScore != 10 {
		t.Fatalf("failed poll blanked the view: %+v", v.Game)
	}
	if v.LastError == "" {
		t.Error("LastError empty after a failed poll")
	}
	if v.FirstLoadFailed {
		t.Error("FirstLoadFailed = true after the game had loaded once")
	}
}

func TestFirstLoadFailureFlaggedUntilSuccess(t *testing.T) {
	s, rec := newTestSession(t)

	s.applyPoll(1, nil, errors.New("dial tcp: connection refused"))
	if v := rec.last(t); !v.FirstLoadFailed {
		t.Error("FirstLoadFailed = false with no snapshot ever applied")
	}

	s.nextSeq = 2
	s.applyPoll(2, snapshotFixture(), nil)
	if v := rec.last(t); v.FirstLoadFailed {
		t.Error("FirstLoadFailed still set after a successful load")
	}
}

func TestPollBackoffDoublesAndResets(t *testing.T) {
	s, _ := newTestSession(t)
	s.pollInterval = 3 * time.Second

	want := []time.Duration{3 * time.Second, 6 * time.Second, 12 * time.Second, 24 * time.Second, maxPollBackoff, maxPollBackoff}
	for fails, w := range want {
		s.consecFails = fails
		if got := s.backoffInterval(); got != w {
			t.Errorf("backoffInterval() with %d failures = %v, want %v", fails, got, w)
		}
	}

	s.consecFails = 0
	if got := s.backoffInterval(); got != 3*time.Second {
		t.Errorf("backoffInterval() after reset = %v, want 3s", got)
	}
}

func TestMutationEchoNotDuplicatedByNextPoll(t *testing.T) {
	s, _ := newTestSession(t)

	base := snapshotFixture()
	s.reconcile(base)

	echo := clone(base)
	echo.PlayerStats[0].Stats.Steals = 3
	s.mergeEcho(echo)

	if got := len(s.feed.Events()); got != 1 {
		t.Fatalf("feed has %d events after echo, want 1", got)
	}

	// The next poll reports the same steal; the deterministic event id
	// must keep it from appearing twice.
	s.reconcile(clone(echo))
	if got := len(s.feed.Events()); got != 1 {
		t.Errorf("feed has %d events after poll re-reported the play, want 1", got)
	}
}

func TestClockTicksBetweenPolls(t *testing.T) {
	s, rec := newTestSession(t)

	running := snapshotFixture()
	running.ClockRunning = true
	s.reconcile(running)

	s.tickClock()
	s.tickClock()

	if v := rec.last(t); v.ClockSeconds != 598 || !v.ClockTicking {
		t.Errorf("view clock = %d ticking=%v, want 598 ticking", v.ClockSeconds, v.ClockTicking)
	}
}

func TestBackgroundStopsPollTimerButClockKeepsTicking(t *testing.T) {
	s, _ := newTestSession(t)

	running := snapshotFixture()
	running.ClockRunning = true
	s.reconcile(running)
	s.schedulePoll()

	// Background inline rather than via the inbox: no run loop here.
	s.state = stateBackgrounded
	if s.pollTimer != nil {
		s.pollTimer.Stop()
		s.pollTimer = nil
	}

	s.tickClock()
	if got := s.predictor.Seconds(); got != 599 {
		t.Errorf("clock = %d while backgrounded, want 599", got)
	}
	s.schedulePoll()
	if s.pollTimer != nil {
		t.Error("schedulePoll armed a timer while backgrounded")
	}
}

func TestStopTwiceBeforeLoopRunsIsSafe(t *testing.T) {
	// Both Stop closures can be buffered before the loop executes either
	// (a store Delete racing an explicit Stop). Running them in order
	// must close the stop channel exactly once.
	s, _ := newTestSession(t)
	s.Stop()
	s.Stop()

	for i := 0; i < 2; i++ {
		select {
		case fn := <-s.inbox:
			fn()
		default:
			t.Fatalf("expected two buffered closures, got %d", i)
		}
	}

	select {
	case <-s.stop:
	default:
		t.Fatal("stop channel not closed")
	}

	// A Stop after shutdown is dropped by the send guard.
	s.Stop()
	select {
	case <-s.inbox:
		t.Fatal("Stop enqueued a closure after shutdown")
	default:
	}
}

type stubFetcher struct {
	snap *model.GameSnapshot
}

func (f *stubFetcher) GetGame(ctx context.Context, gameID string) (*model.GameSnapshot, error) {
	return f.snap, nil
}

func TestStartFetchesAndStopSilences(t *testing.T) {
	bus := events.NewBus()
	got := make(chan ViewState, 16)
	bus.Subscribe(events.EventViewUpdate, func(e events.Event) error {
		got <- e.Payload.(ViewState)
		return nil
	})

	s := NewSession("g1", &stubFetcher{snap: snapshotFixture()}, nil, feed.NewDetector(config.DefaultFeedLabels()), bus, time.Hour)
	s.Start()

	select {
	case v := <-got:
		if v.Game == nil || v.Game.ID != "g1" {
			t.Fatalf("first view = %+v", v.Game)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no view update after Start")
	}

	s.Stop()

	// A closure sent after Stop must never execute.
	ran := make(chan struct{})
	s.send(func() { close(ran) })
	select {
	case <-ran:
		t.Fatal("inbox closure ran after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionStoreDeleteStopsSession(t *testing.T) {
	store := NewStore()
	bus := events.NewBus()
	s := NewSession("g1", &stubFetcher{snap: snapshotFixture()}, nil, feed.NewDetector(config.DefaultFeedLabels()), bus, time.Hour)
	s.Start()
	store.Put(s)

	if _, ok := store.Get("g1"); !ok {
		t.Fatal("session missing from store")
	}
	store.Delete("g1")
	if store.Count() != 0 {
		t.Errorf("store count = %d after delete, want 0", store.Count())
	}

	select {
	case <-s.stop:
	case <-time.After(2 * time.Second):
		t.Fatal("session not stopped by store delete")
	}
}
