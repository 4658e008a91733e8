package stats

import "github.com/courtside/scoresync/internal/core/model"

// AllPeriods disables filtering: Filter returns counters unchanged.
const AllPeriods = 0

// Line is one player's row in a stat view, possibly period-filtered.
type Line struct {
	PlayerID   string
	PlayerName string
	Stats      model.StatCounters
}

// Filter builds a per-player stat view for one period, or for the whole
// game when period is AllPeriods.
//
// Shooting splits and points are recomputed from the shot log, which
// carries a period on every attempt. Rebounds, assists, and the other
// plain counters have no per-period record on the wire, so they stay
// full-game totals even under a filter. That mismatch is visible in the
// rendered table and is intentional: inventing per-period values for
// counters the server never breaks down would be worse than showing the
// game total.
func Filter(snap *model.GameSnapshot, period int) []Line {
	if snap == nil {
		return nil
	}
	out := make([]Line, 0, len(snap.PlayerStats))
	for i := range snap.PlayerStats {
		p := &snap.PlayerStats[i]
		line := Line{
			PlayerID:   p.PlayerID,
			PlayerName: p.PlayerName,
			Stats:      p.Stats,
		}
		if period != AllPeriods {
			rebuildShooting(&line.Stats, p.Shots, period)
		}
		out = append(out, line)
	}
	return out
}

// rebuildShooting replaces the shooting columns of c with totals
// recomputed from the shot log entries matching period.
func rebuildShooting(c *model.StatCounters, shots []model.ShotAttempt, period int) {
	c.Points = 0
	c.FGMade, c.FGAttempted = 0, 0
	c.ThreePtMade, c.ThreePtAttempted = 0, 0
	c.FTMade, c.FTAttempted = 0, 0

	for _, s := range shots {
		if s.Period != period {
			continue
		}
		switch s.ShotType {
		case "ft":
			c.FTAttempted++
			if s.Made {
				c.FTMade++
				c.Points++
			}
		case "3pt":
			c.FGAttempted++
			c.ThreePtAttempted++
			if s.Made {
				c.FGMade++
				c.ThreePtMade++
				c.Points += 3
			}
		default: // "2pt"
			c.FGAttempted++
			if s.Made {
				c.FGMade++
				c.Points += 2
			}
		}
	}
}

// FGPercent returns made/attempted as a 0-100 percentage, 0 when no
// attempts.
func FGPercent(made, attempted int) float64 {
	if attempted == 0 {
		return 0
	}
	return float64(made) / float64(attempted) * 100
}
