package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/courtside/scoresync/internal/config"
	"github.com/courtside/scoresync/internal/core/model"
)

type EventType string

const (
	EventMadeShot      EventType = "made_shot"
	EventMissedShot    EventType = "missed_shot"
	EventFreeThrowMade EventType = "free_throw_made"
	EventFreeThrowMiss EventType = "free_throw_miss"
	EventReboundOff    EventType = "rebound_off"
	EventReboundDef    EventType = "rebound_def"
	EventAssist        EventType = "assist"
	EventSteal         EventType = "steal"
	EventBlock         EventType = "block"
	EventTurnover      EventType = "turnover"
	EventFoul          EventType = "foul"
	EventTimeout       EventType = "timeout"
	EventOpponentScore EventType = "opponent_score"
)

// Event is one play-by-play line. ID is derived deterministically from
// the triggering stat identity, so diffing the same snapshot pair twice
// (a retried poll) produces identical ids and the feed can drop the
// duplicates.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"event_type"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Detector derives semantic events by comparing two successive snapshots.
// No event stream is pushed by the server; this is the only source of the
// play-by-play feed.
//
// Besides the labels, the detector carries one piece of state: a
// correction generation per counter, bumped whenever that counter is
// observed to decrease (undo, downward adjust). Without it a counter
// that goes 3 -> 2 -> 3 would reproduce the id of the first play and
// the feed would drop the genuinely new one as a duplicate. Retried
// polls are unaffected: re-diffing an unchanged pair bumps nothing, so
// their ids stay identical.
//
// Not safe for concurrent use; the session drives it from one goroutine.
type Detector struct {
	labels config.FeedLabels
	now    func() time.Time
	gens   map[string]int
}

func NewDetector(labels config.FeedLabels) *Detector {
	return &Detector{labels: labels, now: time.Now, gens: make(map[string]int)}
}

// keyedID builds an event id from the counter's key and new value,
// suffixed with the correction generation once one exists.
func (d *Detector) keyedID(key string, value int) string {
	id := fmt.Sprintf("%s:%d", key, value)
	if g := d.gens[key]; g > 0 {
		id = fmt.Sprintf("%s:r%d", id, g)
	}
	return id
}

// Diff returns one event per counter that increased between prev and next,
// in snapshot roster order. A nil prev yields no events: seeding a feed
// from an unknown baseline would mislabel historical stats as live plays.
// Decreases (corrections) never produce events.
func (d *Detector) Diff(prev, next *model.GameSnapshot) []Event {
	if prev == nil || next == nil {
		return nil
	}

	ts := d.now()
	var out []Event
	emit := func(id string, typ EventType, text string) {
		out = append(out, Event{ID: id, Type: typ, Text: text, CreatedAt: ts})
	}

	// Made shots come from the marker, not from raw point deltas: one
	// possession can add 1, 2, or 3 points, and only the marker says
	// which shot it was.
	if ms := next.LastMadeShot; ms != nil && !sameShot(prev.LastMadeShot, ms) {
		if p := next.PlayerByID(ms.PlayerID); p != nil {
			label := d.labels.MadeShot2
			if ms.ThreePoint {
				label = d.labels.MadeShot3
			}
			emit(
				fmt.Sprintf("shot:%s:%d:%t", ms.PlayerID, ms.Timestamp.UnixMilli(), ms.ThreePoint),
				EventMadeShot,
				renderPlayer(label, p),
			)
		}
	}

	for i := range next.PlayerStats {
		np := &next.PlayerStats[i]
		pp := prev.PlayerByID(np.PlayerID)
		if pp == nil {
			// Player added mid-game: no baseline, nothing to report yet.
			continue
		}
		out = append(out, d.diffPlayer(&pp.Stats, np, ts)...)
	}

	// Timeout counts are "remaining", so taking one shows up as a
	// decrease; an increase is a correction handing the timeout back.
	if next.HomeTimeoutsLeft < prev.HomeTimeoutsLeft {
		emit(
			d.keyedID("timeout:home", next.HomeTimeoutsLeft),
			EventTimeout,
			renderTeam(d.labels.Timeout, next.HomeTeamName),
		)
	} else if next.HomeTimeoutsLeft > prev.HomeTimeoutsLeft {
		d.gens["timeout:home"]++
	}
	if next.AwayTimeoutsLeft < prev.AwayTimeoutsLeft {
		emit(
			d.keyedID("timeout:away", next.AwayTimeoutsLeft),
			EventTimeout,
			renderTeam(d.labels.Timeout, next.OpponentName),
		)
	} else if next.AwayTimeoutsLeft > prev.AwayTimeoutsLeft {
		d.gens["timeout:away"]++
	}

	// The opponent's players are not stat-tracked, so their scoring is
	// only visible as a score delta.
	if next.OpponentScore > prev.OpponentScore {
		emit(
			d.keyedID("opp_score", next.OpponentScore),
			EventOpponentScore,
			renderTeam(d.labels.OpponentScore, next.OpponentName),
		)
	} else if next.OpponentScore < prev.OpponentScore {
		d.gens["opp_score"]++
	}

	return out
}

// counterDelta maps one tracked counter to its event type and label.
type counterDelta struct {
	kind  string
	typ   EventType
	field func(*model.StatCounters) int
}

var counterDeltas = []counterDelta{
	{"rebound_off", EventReboundOff, func(s *model.StatCounters) int { return s.ReboundsOff }},
	{"rebound_def", EventReboundDef, func(s *model.StatCounters) int { return s.ReboundsDef }},
	{"assist", EventAssist, func(s *model.StatCounters) int { return s.Assists }},
	{"steal", EventSteal, func(s *model.StatCounters) int { return s.Steals }},
	{"block", EventBlock, func(s *model.StatCounters) int { return s.Blocks }},
	{"turnover", EventTurnover, func(s *model.StatCounters) int { return s.Turnovers }},
	{"foul", EventFoul, func(s *model.StatCounters) int { return s.Fouls }},
}

func (d *Detector) diffPlayer(prev *model.StatCounters, next *model.PlayerStatLine, ts time.Time) []Event {
	var out []Event
	for _, cd := range counterDeltas {
		key := cd.kind + ":" + next.PlayerID
		switch nv, pv := cd.field(&next.Stats), cd.field(prev); {
		case nv > pv:
			out = append(out, Event{
				ID:        d.keyedID(key, nv),
				Type:      cd.typ,
				Text:      renderPlayer(d.labelFor(cd.typ), next),
				CreatedAt: ts,
			})
		case nv < pv:
			d.gens[key]++
		}
	}

	// Free throws: the made counter is authoritative for makes; an
	// attempt increase without a make is a miss.
	ftMadeDelta := next.Stats.FTMade - prev.FTMade
	ftAttDelta := next.Stats.FTAttempted - prev.FTAttempted
	if ftMadeDelta > 0 {
		out = append(out, Event{
			ID:        d.keyedID("ft_made:"+next.PlayerID, next.Stats.FTMade),
			Type:      EventFreeThrowMade,
			Text:      renderPlayer(d.labels.FreeThrowMade, next),
			CreatedAt: ts,
		})
	} else if ftMadeDelta < 0 {
		d.gens["ft_made:"+next.PlayerID]++
	}
	if ftAttDelta > 0 && ftMadeDelta <= 0 {
		out = append(out, Event{
			ID:        d.keyedID("ft_miss:"+next.PlayerID, next.Stats.FTAttempted),
			Type:      EventFreeThrowMiss,
			Text:      renderPlayer(d.labels.FreeThrowMiss, next),
			CreatedAt: ts,
		})
	} else if ftAttDelta < 0 {
		d.gens["ft_miss:"+next.PlayerID]++
	}

	// Missed field goal: attempts up, makes flat. Makes are already
	// covered by the made-shot marker.
	fgMadeDelta := next.Stats.FGMade - prev.FGMade
	fgAttDelta := next.Stats.FGAttempted - prev.FGAttempted
	if fgAttDelta > 0 && fgMadeDelta <= 0 {
		out = append(out, Event{
			ID:        d.keyedID("fg_miss:"+next.PlayerID, next.Stats.FGAttempted),
			Type:      EventMissedShot,
			Text:      renderPlayer(d.labels.MissedShot, next),
			CreatedAt: ts,
		})
	} else if fgAttDelta < 0 {
		d.gens["fg_miss:"+next.PlayerID]++
	}

	return out
}

// ObserveCorrections records counter decreases between prev and next
// without emitting anything. Undo and manual adjustment swap the
// snapshot in without a diff pass; the detector still has to see those
// decreases, or a later re-increase would land on a spent id and the
// feed would drop it.
func (d *Detector) ObserveCorrections(prev, next *model.GameSnapshot) {
	if prev == nil || next == nil {
		return
	}
	for i := range next.PlayerStats {
		np := &next.PlayerStats[i]
		pp := prev.PlayerByID(np.PlayerID)
		if pp == nil {
			continue
		}
		for _, cd := range counterDeltas {
			if cd.field(&np.Stats) < cd.field(&pp.Stats) {
				d.gens[cd.kind+":"+np.PlayerID]++
			}
		}
		if np.Stats.FTMade < pp.Stats.FTMade {
			d.gens["ft_made:"+np.PlayerID]++
		}
		if np.Stats.FTAttempted < pp.Stats.FTAttempted {
			d.gens["ft_miss:"+np.PlayerID]++
		}
		if np.Stats.FGAttempted < pp.Stats.FGAttempted {
			d.gens["fg_miss:"+np.PlayerID]++
		}
	}
	if next.HomeTimeoutsLeft > prev.HomeTimeoutsLeft {
		d.gens["timeout:home"]++
	}
	if next.AwayTimeoutsLeft > prev.AwayTimeoutsLeft {
		d.gens["timeout:away"]++
	}
	if next.OpponentScore < prev.OpponentScore {
		d.gens["opp_score"]++
	}
}

func (d *Detector) labelFor(typ EventType) string {
	switch typ {
	case EventReboundOff:
		return d.labels.ReboundOff
	case EventReboundDef:
		return d.labels.ReboundDef
	case EventAssist:
		return d.labels.Assist
	case EventSteal:
		return d.labels.Steal
	case EventBlock:
		return d.labels.Block
	case EventTurnover:
		return d.labels.Turnover
	case EventFoul:
		return d.labels.Foul
	default:
		return "{player}"
	}
}

func sameShot(a, b *model.MadeShot) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.PlayerID == b.PlayerID && a.Timestamp.Equal(b.Timestamp)
}

func renderPlayer(label string, p *model.PlayerStatLine) string {
	return strings.ReplaceAll(label, "{player}", p.FirstName())
}

func renderTeam(label, team string) string {
	return strings.ReplaceAll(label, "{team}", team)
}
