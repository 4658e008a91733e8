package display

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/courtside/scoresync/internal/core/live"
	"github.com/courtside/scoresync/internal/core/stats"
	"github.com/courtside/scoresync/internal/events"
)

// Board renders the reconciled view as a terminal scoreboard: score
// line, predicted clock, play-by-play feed, and the offline banner when
// mutations are pending.
type Board struct {
	mu sync.Mutex
	w  io.Writer

	// 0 renders full-game stats; set via SetPeriodFilter.
	periodFilter int
}

func NewBoard(w io.Writer) *Board {
	return &Board{w: w}
}

// Attach subscribes the board to view updates on the bus.
func (b *Board) Attach(bus *events.Bus) {
	bus.Subscribe(events.EventViewUpdate, func(e events.Event) error {
		if v, ok := e.Payload.(live.ViewState); ok {
			b.Render(v)
		}
		return nil
	})
}

// SetPeriodFilter switches the stat table to one period; AllPeriods
// restores full-game totals.
func (b *Board) SetPeriodFilter(period int) {
	b.mu.Lock()
	b.periodFilter = period
	b.mu.Unlock()
}

// Render writes one complete frame. Every frame is self-contained so a
// scrollback reader can follow the game without diffing frames.
func (b *Board) Render(v live.ViewState) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if v.Game == nil {
		if v.FirstLoadFailed {
			fmt.Fprintf(b.w, "\n  Unable to load game: %s\n", v.LastError)
		} else {
			fmt.Fprintf(b.w, "\n  Loading game...\n")
		}
		return
	}

	g := v.Game
	fmt.Fprintf(b.w, "\n  %s %d : %d %s   %s %s",
		g.HomeTeamName, g.OurScore, g.OpponentScore, g.OpponentName,
		periodLabel(g.PeriodType, g.CurrentPeriod), FormatClock(v.ClockSeconds))
	if v.ClockTicking {
		fmt.Fprint(b.w, " ▶")
	}
	fmt.Fprintf(b.w, "   TO %d-%d\n", g.HomeTimeoutsLeft, g.AwayTimeoutsLeft)

	if v.PendingCount > 0 {
		fmt.Fprintf(b.w, "  OFFLINE: %d stat(s) queued, will sync when connection returns\n", v.PendingCount)
	} else if v.LastError != "" {
		fmt.Fprintf(b.w, "  refresh failed, showing last known state: %s\n", v.LastError)
	}

	for _, e := range v.Feed {
		fmt.Fprintf(b.w, "    %-34s %s\n", e.Text, humanize.Time(e.CreatedAt))
	}

	b.renderStatTable(v)
}

func (b *Board) renderStatTable(v live.ViewState) {
	lines := stats.Filter(v.Game, b.periodFilter)
	if len(lines) == 0 {
		return
	}

	tw := tabwriter.NewWriter(b.w, 2, 4, 2, ' ', 0)
	header := "PLAYER\tPTS\tREB\tAST\tSTL\tBLK\tFG\tFG%"
	if b.periodFilter != stats.AllPeriods {
		header = fmt.Sprintf("PLAYER (P%d shooting)\tPTS\tREB\tAST\tSTL\tBLK\tFG\tFG%%", b.periodFilter)
	}
	fmt.Fprintln(tw, header)
	for _, l := range lines {
		s := l.Stats
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d/%d\t%.0f\n",
			l.PlayerName, s.Points, s.ReboundsOff+s.ReboundsDef, s.Assists,
			s.Steals, s.Blocks, s.FGMade, s.FGAttempted,
			stats.FGPercent(s.FGMade, s.FGAttempted))
	}
	tw.Flush()
}

// FormatClock renders seconds as M:SS. The server tracks whole seconds
// only, so there are no tenths to show.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func periodLabel(periodType string, period int) string {
	switch periodType {
	case "halves":
		if period > 2 {
			return fmt.Sprintf("OT%d", period-2)
		}
		return fmt.Sprintf("H%d", period)
	default:
		if period > 4 {
			return fmt.Sprintf("OT%d", period-4)
		}
		return fmt.Sprintf("Q%d", period)
	}
}
