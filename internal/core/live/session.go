package live

import (
	"context"
	"time"

	"github.com/courtside/scoresync/internal/api"
	"github.com/courtside/scoresync/internal/core/clock"
	"github.com/courtside/scoresync/internal/core/feed"
	"github.com/courtside/scoresync/internal/core/model"
	"github.com/courtside/scoresync/internal/core/queue"
	"github.com/courtside/scoresync/internal/events"
	"github.com/courtside/scoresync/internal/telemetry"
)

// Fetcher is the read side of the API client. Narrowed for tests.
type Fetcher interface {
	GetGame(ctx context.Context, gameID string) (*model.GameSnapshot, error)
}

const (
	defaultPollInterval = 3 * time.Second
	maxPollBackoff      = 30 * time.Second
	fetchTimeout        = 8 * time.Second
)

type sessionState int

const (
	stateIdle sessionState = iota
	statePolling
	stateBackgrounded
)

// Session reconciles one live game. It owns the poll cycle and is the
// only component that mutates session state: every fresh snapshot flows
// through the clock predictor and the diff detector before replacing the
// stored one, all within a single pass so the clock, feed, and score
// always describe the same fetched value.
//
// All state mutations are serialized through an inbox channel — one
// goroutine drains it, so no mutexes are needed on any field
// (same discipline as the per-game event loop in the state store).
type Session struct {
	gameID    string
	client    Fetcher
	queue     *queue.Queue
	predictor *clock.Predictor
	detector  *feed.Detector
	feed      *feed.Feed
	bus       *events.Bus

	pollInterval time.Duration

	// Owned by the session goroutine.
	state       sessionState
	stopped     bool
	current     *model.GameSnapshot
	everLoaded  bool
	lastErr     string
	consecFails int

	// Poll results are tagged with a monotonic sequence number; a slow
	// request completing after a faster later one is dropped as stale.
	nextSeq    uint64
	appliedSeq uint64

	pollTimer *time.Timer

	inbox chan func()
	stop  chan struct{}
}

func NewSession(gameID string, client Fetcher, q *queue.Queue, detector *feed.Detector, bus *events.Bus, pollInterval time.Duration) *Session {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Session{
		gameID:       gameID,
		client:       client,
		queue:        q,
		predictor:    clock.New(),
		detector:     detector,
		feed:         feed.NewFeed(feed.DefaultSize),
		bus:          bus,
		pollInterval: pollInterval,
		state:        stateIdle,
		inbox:        make(chan func(), 64),
		stop:         make(chan struct{}),
	}
}

// Start begins polling: an immediate fetch, then the interval timer.
// The one-second clock ticker runs for the whole session lifetime so the
// displayed clock stays on wall-clock time even while backgrounded.
func (s *Session) Start() {
	go s.run()
	s.send(func() {
		if s.state != stateIdle {
			return
		}
		s.state = statePolling
		telemetry.Metrics.ActiveSessions.Inc()
		s.fetchNow()
	})
}

// Stop tears the session down: timers cleared, in-flight fetch results
// discarded, no further view updates. Safe to call more than once: two
// Stop calls can both enqueue their closure before either runs, so the
// closure itself must be the idempotency point, not the send guard.
func (s *Session) Stop() {
	s.send(func() {
		if s.stopped {
			return
		}
		s.stopped = true
		if s.pollTimer != nil {
			s.pollTimer.Stop()
			s.pollTimer = nil
		}
		if s.state != stateIdle {
			telemetry.Metrics.ActiveSessions.Dec()
		}
		s.state = stateIdle
		close(s.stop)
	})
}

// Background pauses network work. Clock prediction keeps running so the
// displayed time does not freeze relative to real time; the next sync
// after foregrounding corrects any drift.
func (s *Session) Background() {
	s.send(func() {
		if s.state != statePolling {
			return
		}
		s.state = stateBackgrounded
		if s.pollTimer != nil {
			s.pollTimer.Stop()
			s.pollTimer = nil
		}
		telemetry.Infof("session %s: backgrounded, polling paused", s.gameID)
	})
}

// Foreground resumes polling with an immediate fetch, bypassing the
// interval wait, and triggers a queue replay.
func (s *Session) Foreground() {
	s.send(func() {
		if s.state != stateBackgrounded {
			return
		}
		s.state = statePolling
		s.consecFails = 0
		telemetry.Infof("session %s: foregrounded, fetching now", s.gameID)
		s.fetchNow()
		s.drainQueue()
	})
}

// run is the session's event loop. Closures sent via send() execute here
// one at a time; the ticker drives clock prediction.
func (s *Session) run() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case fn := <-s.inbox:
			fn()
		case <-ticker.C:
			s.tickClock()
		case <-s.stop:
			return
		}
	}
}

// send enqueues a closure for the session goroutine. Dropped once the
// session has stopped, which is what guards a late fetch result from
// mutating a dead view.
func (s *Session) send(fn func()) {
	select {
	case <-s.stop:
	case s.inbox <- fn:
	}
}

func (s *Session) tickClock() {
	if !s.predictor.Ticking() {
		return
	}
	s.predictor.Tick()
	s.emitView()
}

// fetchNow launches one poll. The network wait happens off the session
// goroutine; only the result application is serialized back through the
// inbox.
func (s *Session) fetchNow() {
	s.nextSeq++
	seq := s.nextSeq

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		snap, err := s.client.GetGame(ctx, s.gameID)
		s.send(func() { s.applyPoll(seq, snap, err) })
	}()
}

// applyPoll folds one poll result into session state and schedules the
// next poll.
func (s *Session) applyPoll(seq uint64, snap *model.GameSnapshot, err error) {
	if s.state == stateIdle {
		return
	}
	if seq <= s.appliedSeq {
		telemetry.Metrics.StaleDrops.Inc()
		telemetry.Debugf("session %s: dropping stale poll seq=%d applied=%d", s.gameID, seq, s.appliedSeq)
		return
	}

	if err != nil {
		// A missed poll never blanks an already-rendered view; the last
		// good snapshot plus the predicted clock carries the screen until
		// the next success.
		s.consecFails++
		s.lastErr = err.Error()
		telemetry.Metrics.PollFailures.Inc()
		telemetry.Warnf("session %s: poll failed (%d consecutive): %v", s.gameID, s.consecFails, err)
		s.emitView()
		s.schedulePoll()
		return
	}

	s.appliedSeq = seq
	wasFailing := s.consecFails > 0
	s.consecFails = 0
	s.lastErr = ""
	telemetry.Metrics.PollsOK.Inc()

	s.reconcile(snap)

	// First success after failures means connectivity is back: drain the
	// pending queue before more taps pile up behind it.
	if wasFailing || (s.queue != nil && s.queue.Pending() > 0) {
		s.drainQueue()
	}

	s.schedulePoll()
}

// reconcile applies one authoritative snapshot: clock sync, event diff,
// then wholesale replacement, all from the same value. Nothing in here
// suspends — a pass is atomic with respect to the session goroutine.
func (s *Session) reconcile(snap *model.GameSnapshot) {
	s.predictor.Sync(snap.ClockSecondsRemaining, snap.ClockRunning)

	detected := s.detector.Diff(s.current, snap)
	if len(detected) > 0 {
		s.feed.Add(detected)
		for _, e := range detected {
			s.bus.Publish(events.Event{
				ID:        e.ID,
				Type:      events.EventPlayDetected,
				GameID:    s.gameID,
				Timestamp: e.CreatedAt,
				Payload:   e,
			})
		}
	}

	s.current = snap
	s.everLoaded = true

	s.bus.Publish(events.Event{
		Type:      events.EventSnapshotApplied,
		GameID:    s.gameID,
		Timestamp: time.Now(),
		Payload:   snap,
	})
	s.emitView()
}

// schedulePoll arms the next poll. Consecutive failures back the
// interval off exponentially, capped; one success snaps it back.
func (s *Session) schedulePoll() {
	if s.state != statePolling {
		return
	}
	if s.pollTimer != nil {
		s.pollTimer.Stop()
	}
	s.pollTimer = time.AfterFunc(s.backoffInterval(), func() {
		s.send(func() {
			if s.state == statePolling {
				s.fetchNow()
			}
		})
	})
}

func (s *Session) backoffInterval() time.Duration {
	d := s.pollInterval
	for i := 0; i < s.consecFails; i++ {
		d *= 2
		if d >= maxPollBackoff {
			return maxPollBackoff
		}
	}
	return d
}

// drainQueue replays pending mutations off the session goroutine and
// merges the final server echo back in.
func (s *Session) drainQueue() {
	if s.queue == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		applied, last := s.queue.Replay(ctx)
		if applied > 0 && last != nil {
			s.send(func() { s.mergeEcho(last) })
		}
	}()
}

// mergeEcho folds a mutation response into session state. Server echoes
// are authoritative, so they take the same path as a poll result; the
// feed's id dedup keeps the next poll from double-reporting the plays.
func (s *Session) mergeEcho(snap *model.GameSnapshot) {
	if s.state == stateIdle {
		return
	}
	s.reconcile(snap)
}

// Record submits a stat tap through the mutation queue and merges the
// echo. Safe to call from any goroutine.
func (s *Session) Record(ctx context.Context, playerID string, statType model.StatType, value int, shot *model.ShotLocation) error {
	res, err := s.queue.Record(ctx, playerID, statType, value, shot)
	if err != nil {
		return err
	}
	if res.Queued {
		s.send(s.emitView)
		return nil
	}
	s.send(func() { s.mergeEcho(res.Snapshot) })
	return nil
}

// Adjust applies a manual correction. Corrections are not plays, so the
// echo replaces the snapshot without running the diff pipeline.
func (s *Session) Adjust(ctx context.Context, playerID string, statType model.StatType, delta int) error {
	snap, err := s.queue.Adjust(ctx, playerID, statType, delta)
	if err != nil {
		return err
	}
	s.send(func() {
		if s.state == stateIdle {
			return
		}
		s.predictor.Sync(snap.ClockSecondsRemaining, snap.ClockRunning)
		s.detector.ObserveCorrections(s.current, snap)
		s.current = snap
		s.emitView()
	})
	return nil
}

// Undo removes the most recently recorded stat. ok=false with nil error
// means the server had nothing to undo.
func (s *Session) Undo(ctx context.Context) (bool, error) {
	snap, ok, err := s.queue.UndoLast(ctx)
	if err != nil || !ok {
		return ok, err
	}
	s.send(func() {
		if s.state == stateIdle {
			return
		}
		s.predictor.Sync(snap.ClockSecondsRemaining, snap.ClockRunning)
		s.detector.ObserveCorrections(s.current, snap)
		s.current = snap
		s.emitView()
	})
	return true, nil
}

// SetManualClock writes an operator-entered clock straight through to
// the server and the predictor, bypassing prediction entirely.
func (s *Session) SetManualClock(ctx context.Context, client *api.Client, seconds int, running bool) error {
	snap, err := client.UpdateGame(ctx, s.gameID, api.GameUpdateRequest{
		ClockSecondsRemaining: &seconds,
		ClockRunning:          &running,
	})
	if err != nil {
		return err
	}
	s.send(func() {
		if s.state == stateIdle {
			return
		}
		s.predictor.SetManual(seconds, running)
		s.detector.ObserveCorrections(s.current, snap)
		s.current = snap
		s.emitView()
	})
	return nil
}

func (s *Session) emitView() {
	pending := 0
	if s.queue != nil {
		pending = s.queue.Pending()
	}
	view := ViewState{
		Game:            s.current,
		ClockSeconds:    s.predictor.Seconds(),
		ClockTicking:    s.predictor.Ticking(),
		Feed:            s.feed.Events(),
		PendingCount:    pending,
		LastError:       s.lastErr,
		FirstLoadFailed: !s.everLoaded && s.lastErr != "",
	}
	s.bus.Publish(events.Event{
		Type:      events.EventViewUpdate,
		GameID:    s.gameID,
		Timestamp: time.Now(),
		Payload:   view,
	})
}
