package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FeedLabels holds the display templates for play-by-play lines.
// "{player}" and "{team}" are substituted at render time. Shipping these
// as a YAML file lets a league rebrand the feed wording without a rebuild.
type FeedLabels struct {
	MadeShot2     string `yaml:"made_shot_2"`
	MadeShot3     string `yaml:"made_shot_3"`
	MissedShot    string `yaml:"missed_shot"`
	FreeThrowMade string `yaml:"free_throw_made"`
	FreeThrowMiss string `yaml:"free_throw_miss"`
	ReboundOff    string `yaml:"rebound_off"`
	ReboundDef    string `yaml:"rebound_def"`
	Assist        string `yaml:"assist"`
	Steal         string `yaml:"steal"`
	Block         string `yaml:"block"`
	Turnover      string `yaml:"turnover"`
	Foul          string `yaml:"foul"`
	Timeout       string `yaml:"timeout"`
	OpponentScore string `yaml:"opponent_score"`
}

// DefaultFeedLabels is used when no labels file is configured.
func DefaultFeedLabels() FeedLabels {
	return FeedLabels{
		MadeShot2:     "{player} scores",
		MadeShot3:     "{player} hits a three",
		MissedShot:    "{player} misses a shot",
		FreeThrowMade: "{player} makes a free throw",
		FreeThrowMiss: "{player} misses a free throw",
		ReboundOff:    "{player} grabs an offensive board",
		ReboundDef:    "{player} grabs a defensive board",
		Assist:        "{player} with the assist",
		Steal:         "{player} with a steal",
		Block:         "{player} with a block",
		Turnover:      "{player} turns it over",
		Foul:          "Foul on {player}",
		Timeout:       "Timeout, {team}",
		OpponentScore: "{team} scores",
	}
}

// LoadFeedLabels reads a labels file, filling any label left empty with
// its default.
func LoadFeedLabels(path string) (FeedLabels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FeedLabels{}, fmt.Errorf("read feed labels: %w", err)
	}

	labels := DefaultFeedLabels()
	if err := yaml.Unmarshal(data, &labels); err != nil {
		return FeedLabels{}, fmt.Errorf("parse feed labels: %w", err)
	}

	return labels, nil
}
