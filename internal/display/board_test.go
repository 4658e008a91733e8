package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/courtside/scoresync/internal/core/feed"
	"github.com/courtside/scoresync/internal/core/live"
	"github.com/courtside/scoresync/internal/core/model"
)

func viewFixture() live.ViewState {
	return live.ViewState{
		Game: &model.GameSnapshot{
			ID:               "g1",
			HomeTeamName:     "Wildcats",
			OpponentName:     "Riverside",
			OurScore:         54,
			OpponentScore:    51,
			PeriodType:       "quarters",
			CurrentPeriod:    3,
			HomeTimeoutsLeft: 2,
			AwayTimeoutsLeft: 3,
			PlayerStats: []model.PlayerStatLine{
				{
					PlayerID:   "p1",
					PlayerName: "Jordan Lee",
					Stats:      model.StatCounters{Points: 21, ReboundsDef: 5, Assists: 3, FGMade: 8, FGAttempted: 14},
				},
			},
		},
		ClockSeconds: 125,
		ClockTicking: true,
		Feed: []feed.Event{
			{ID: "steal:p1:3", Type: feed.EventSteal, Text: "Jordan with a steal", CreatedAt: time.Now().Add(-40 * time.Second)},
		},
	}
}

func TestRenderScoreboardLine(t *testing.T) {
	var buf bytes.Buffer
	NewBoard(&buf).Render(viewFixture())
	out := buf.String()

	for _, want := range []string{
		"Wildcats 54 : 51 Riverside",
		"Q3 2:05",
		"TO 2-3",
		"Jordan with a steal",
		"Jordan Lee",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "OFFLINE") {
		t.Error("offline banner shown with nothing pending")
	}
}

func TestRenderOfflineBanner(t *testing.T) {
	v := viewFixture()
	v.PendingCount = 2
	v.LastError = "dial tcp: connection refused"

	var buf bytes.Buffer
	NewBoard(&buf).Render(v)
	if !strings.Contains(buf.String(), "OFFLINE: 2 stat(s) queued") {
		t.Errorf("missing offline banner:\n%s", buf.String())
	}
}

func TestRenderRefreshFailedKeepsBoard(t *testing.T) {
	v := viewFixture()
	v.LastError = "timeout"

	var buf bytes.Buffer
	NewBoard(&buf).Render(v)
	out := buf.String()
	if !strings.Contains(out, "Wildcats 54 : 51 Riverside") {
		t.Error("stale refresh blanked the scoreboard")
	}
	if !strings.Contains(out, "refresh failed, showing last known state") {
		t.Errorf("missing stale banner:\n%s", out)
	}
}

func TestRenderFirstLoadFailed(t *testing.T) {
	var buf bytes.Buffer
	NewBoard(&buf).Render(live.ViewState{FirstLoadFailed: true, LastError: "no route to host"})
	if !strings.Contains(buf.String(), "Unable to load game") {
		t.Errorf("missing first-load error state:\n%s", buf.String())
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{600, "10:00"},
		{125, "2:05"},
		{9, "0:09"},
		{0, "0:00"},
		{-3, "0:00"},
	}
	for _, c := range cases {
		if got := FormatClock(c.in); got != c.want {
			t.Errorf("FormatClock(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPeriodLabel(t *testing.T) {
	cases := []struct {
		periodType string
		period     int
		want       string
	}{
		{"quarters", 1, "Q1"},
		{"quarters", 5, "OT1"},
		{"halves", 2, "H2"},
		{"halves", 3, "OT1"},
	}
	for _, c := range cases {
		if got := periodLabel(c.periodType, c.period); got != c.want {
			t.Errorf("periodLabel(%s, %d) = %q, want %q", c.periodType, c.period, got, c.want)
		}
	}
}
