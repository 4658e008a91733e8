package model

import (
	"strings"
	"time"
)

// StatType is the wire name of a recordable stat, matching the
// POST /games/{id}/stats contract.
type StatType string

const (
	StatPoints2    StatType = "points_2"
	StatPoints3    StatType = "points_3"
	StatFTMade     StatType = "ft_made"
	StatFTMissed   StatType = "ft_missed"
	StatMiss2      StatType = "miss_2"
	StatMiss3      StatType = "miss_3"
	StatReboundOff StatType = "rebound_off"
	StatReboundDef StatType = "rebound_def"
	StatAssist     StatType = "assists"
	StatSteal      StatType = "steals"
	StatBlock      StatType = "blocks"
	StatTurnover   StatType = "turnovers"
	StatFoul       StatType = "fouls"
)

// ShotLocation is a court position in percent of court width/length.
type ShotLocation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ShotAttempt is one entry in a player's shot log.
type ShotAttempt struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Made      bool      `json:"made"`
	ShotType  string    `json:"shot_type"` // "2pt", "3pt", "ft"
	Period    int       `json:"period"`
	Timestamp time.Time `json:"timestamp"`
}

// StatCounters holds one player's accumulated counters for a game.
type StatCounters struct {
	Points           int `json:"points"`
	ReboundsOff      int `json:"rebounds_off"`
	ReboundsDef      int `json:"rebounds_def"`
	Assists          int `json:"assists"`
	Steals           int `json:"steals"`
	Blocks           int `json:"blocks"`
	Turnovers        int `json:"turnovers"`
	Fouls            int `json:"fouls"`
	FGMade           int `json:"fg_made"`
	FGAttempted      int `json:"fg_attempted"`
	ThreePtMade      int `json:"three_pt_made"`
	ThreePtAttempted int `json:"three_pt_attempted"`
	FTMade           int `json:"ft_made"`
	FTAttempted      int `json:"ft_attempted"`
	MinutesPlayed    int `json:"minutes_played"`
	PlusMinus        int `json:"plus_minus"`
}

// PlayerStatLine is one player's row in a snapshot: counters plus the
// raw shot log used for shot charts and period-filtered splits.
type PlayerStatLine struct {
	PlayerID   string        `json:"player_id"`
	PlayerName string        `json:"player_name"`
	Stats      StatCounters  `json:"stats"`
	Shots      []ShotAttempt `json:"shots"`
}

// FirstName returns the label the play-by-play feed uses for this player.
func (p *PlayerStatLine) FirstName() string {
	name := strings.TrimSpace(p.PlayerName)
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	return name
}

// MadeShot marks the most recent made field goal on a snapshot. The diff
// detector keys on (player id, timestamp) so a single marker is never
// reported twice, and ThreePoint disambiguates what a raw point delta cannot.
type MadeShot struct {
	PlayerID   string    `json:"player_id"`
	ThreePoint bool      `json:"three_point"`
	Timestamp  time.Time `json:"timestamp"`
}

// GameSnapshot is one complete server-authoritative game state.
// Replaced wholesale on every successful fetch, never mutated in place;
// the previous value is retained only long enough to diff against.
type GameSnapshot struct {
	ID           string `json:"id"`
	HomeTeamName string `json:"home_team_name"`
	OpponentName string `json:"opponent_name"`

	OurScore      int `json:"our_score"`
	OpponentScore int `json:"opponent_score"`

	Status        string `json:"status"`      // "in_progress", "completed"
	PeriodType    string `json:"period_type"` // "quarters" or "halves"
	CurrentPeriod int    `json:"current_period"`

	ClockSecondsRemaining int  `json:"clock_seconds_remaining"`
	ClockRunning          bool `json:"clock_running"`

	HomeTimeoutsLeft int `json:"home_timeouts_left"`
	AwayTimeoutsLeft int `json:"away_timeouts_left"`

	PlayerStats []PlayerStatLine `json:"player_stats"`

	LastMadeShot *MadeShot `json:"last_made_shot,omitempty"`
}

// PlayerByID returns the stat line for a player, or nil if the player
// is not in this game.
func (s *GameSnapshot) PlayerByID(playerID string) *PlayerStatLine {
	for i := range s.PlayerStats {
		if s.PlayerStats[i].PlayerID == playerID {
			return &s.PlayerStats[i]
		}
	}
	return nil
}
