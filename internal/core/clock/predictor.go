package clock

import "github.com/courtside/scoresync/internal/telemetry"

// Predictor keeps the scoreboard clock smooth between polls. The server
// only reports the clock every few seconds, so while the game clock runs
// the predictor counts down locally and ignores the server's stale
// mid-countdown values; the next authoritative stop corrects any drift.
//
// Not safe for concurrent use. The session drives Sync and Tick from its
// own goroutine.
type Predictor struct {
	seconds int
	ticking bool
	synced  bool
}

func New() *Predictor {
	return &Predictor{}
}

// Sync folds one poll result into the predicted clock.
//
// A stopped report always wins: it is the authoritative end of a
// countdown, and re-adopting while already stopped picks up manual edits
// made during a pause. A running report only confirms that the clock is
// ticking — its value is already stale by the network round trip, and
// adopting it would jump the displayed clock backward.
func (p *Predictor) Sync(serverSeconds int, serverRunning bool) {
	if !p.synced {
		p.adopt(serverSeconds)
		p.ticking = serverRunning
		p.synced = true
		return
	}

	if !serverRunning {
		if p.ticking {
			telemetry.Metrics.ClockResyncs.Inc()
		}
		p.adopt(serverSeconds)
		p.ticking = false
		return
	}

	p.ticking = true
	if p.seconds == 0 && serverSeconds > 0 {
		// Local prediction already expired but the server says the clock
		// is live again (period restarted on another device). Adopting is
		// the only way forward from zero.
		p.adopt(serverSeconds)
	}
}

// Tick advances the countdown by one second. Reaching zero stops the
// clock immediately rather than waiting for the next poll to confirm.
func (p *Predictor) Tick() {
	if !p.ticking {
		return
	}
	p.seconds--
	if p.seconds <= 0 {
		p.seconds = 0
		p.ticking = false
	}
}

// SetManual writes an operator-entered clock value straight through,
// bypassing prediction. Equivalent to a first sync at the new value.
func (p *Predictor) SetManual(seconds int, running bool) {
	p.adopt(seconds)
	p.ticking = running && seconds > 0
	p.synced = true
}

// Reset clears all state for a fresh session.
func (p *Predictor) Reset() {
	p.seconds = 0
	p.ticking = false
	p.synced = false
}

func (p *Predictor) Seconds() int  { return p.seconds }
func (p *Predictor) Ticking() bool { return p.ticking }

func (p *Predictor) adopt(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	p.seconds = seconds
}
