package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/courtside/scoresync/internal/api"
	"github.com/courtside/scoresync/internal/config"
	"github.com/courtside/scoresync/internal/core/feed"
	"github.com/courtside/scoresync/internal/core/live"
	"github.com/courtside/scoresync/internal/core/model"
	"github.com/courtside/scoresync/internal/core/queue"
	"github.com/courtside/scoresync/internal/core/stats"
	"github.com/courtside/scoresync/internal/display"
	"github.com/courtside/scoresync/internal/events"
	"github.com/courtside/scoresync/internal/fanout"
	"github.com/courtside/scoresync/internal/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))
	telemetry.Infof("Starting scorekeeper")

	if cfg.GameID == "" {
		telemetry.Errorf("No game configured — set SCORESYNC_GAME_ID in .env")
		os.Exit(1)
	}

	bus := events.NewBus()

	// ── Feed labels ─────────────────────────────────────────────
	labels, err := config.LoadFeedLabels(cfg.LabelsPath)
	if err != nil {
		telemetry.Warnf("Feed labels: %v (using defaults)", err)
		labels = config.DefaultFeedLabels()
	}

	// ── Durable mutation queue ──────────────────────────────────
	store, err := queue.OpenStore(cfg.QueueDBPath)
	if err != nil {
		telemetry.Errorf("Failed to open queue store: %v", err)
		os.Exit(1)
	}

	apiClient := api.NewClient(cfg.APIBaseURL, cfg.APIToken)
	q := queue.New(apiClient, store, cfg.GameID, bus)
	if n := q.Pending(); n > 0 {
		telemetry.Infof("Restored %d pending mutation(s) from %s", n, cfg.QueueDBPath)
	}

	// ── Live session ────────────────────────────────────────────
	sessions := live.NewStore()
	sess := live.NewSession(cfg.GameID, apiClient, q, feed.NewDetector(labels), bus, cfg.PollInterval)
	sessions.Put(sess)

	// ── Scoreboard + spectator fanout ───────────────────────────
	board := display.NewBoard(os.Stdout)
	board.Attach(bus)

	fanoutSrv := fanout.NewServer(bus)
	go func() {
		if err := fanoutSrv.ListenAndServe(cfg.FanoutAddr); err != nil {
			telemetry.Warnf("Fanout server: %v", err)
		}
	}()

	sess.Start()

	// ── Operator console ────────────────────────────────────────
	go readCommands(sess, board, apiClient, cfg.GameID)

	// ── Shutdown ────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	telemetry.Infof("Shutting down...")
	sessions.Delete(cfg.GameID)
	store.Close()

	telemetry.Infof("Shutdown complete  polls=%d  poll_errors=%d  plays=%d  sent=%d  queued=%d  replayed=%d",
		telemetry.Metrics.PollsOK.Value(),
		telemetry.Metrics.PollFailures.Value(),
		telemetry.Metrics.FeedEvents.Value(),
		telemetry.Metrics.MutationsSent.Value(),
		telemetry.Metrics.MutationsQueued.Value(),
		telemetry.Metrics.ReplaysOK.Value(),
	)
}

// readCommands drives the session from stdin, one command per line:
//
//	stat <player> <type> [x y]   record a stat (x y for shot charts)
//	adjust <player> <type> <±n>  manual correction
//	undo                         remove the last recorded stat
//	clock <M:SS> [run|stop]      manual clock edit
//	period <n>                   filter the stat table, 0 = full game
//	share                        print a spectator share link token
//	bg / fg                      simulate backgrounding the app
func readCommands(sess *live.Session, board *display.Board, client *api.Client, gameID string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		runCommand(ctx, sess, board, client, gameID, fields)
		cancel()
	}
}

func runCommand(ctx context.Context, sess *live.Session, board *display.Board, client *api.Client, gameID string, fields []string) {
	switch fields[0] {
	case "stat":
		if len(fields) < 3 {
			telemetry.Plainf("usage: stat <player> <type> [x y]")
			return
		}
		var loc *model.ShotLocation
		if len(fields) >= 5 {
			x, errX := strconv.ParseFloat(fields[3], 64)
			y, errY := strconv.ParseFloat(fields[4], 64)
			if errX == nil && errY == nil {
				loc = &model.ShotLocation{X: x, Y: y}
			}
		}
		if err := sess.Record(ctx, fields[1], model.StatType(fields[2]), 1, loc); err != nil {
			telemetry.Warnf("stat rejected: %v", err)
		}

	case "adjust":
		if len(fields) != 4 {
			telemetry.Plainf("usage: adjust <player> <type> <delta>")
			return
		}
		delta, err := strconv.Atoi(fields[3])
		if err != nil {
			telemetry.Plainf("bad delta %q", fields[3])
			return
		}
		if err := sess.Adjust(ctx, fields[1], model.StatType(fields[2]), delta); err != nil {
			telemetry.Warnf("adjust failed: %v", err)
		}

	case "undo":
		ok, err := sess.Undo(ctx)
		if err != nil {
			telemetry.Warnf("undo failed: %v", err)
		} else if !ok {
			telemetry.Plainf("Nothing to undo")
		}

	case "clock":
		if len(fields) < 2 {
			telemetry.Plainf("usage: clock <M:SS> [run|stop]")
			return
		}
		seconds, err := parseClock(fields[1])
		if err != nil {
			telemetry.Plainf("bad clock %q", fields[1])
			return
		}
		running := len(fields) > 2 && fields[2] == "run"
		if err := sess.SetManualClock(ctx, client, seconds, running); err != nil {
			telemetry.Warnf("clock edit failed: %v", err)
		}

	case "period":
		if len(fields) != 2 {
			telemetry.Plainf("usage: period <n> (0 = full game)")
			return
		}
		if n, err := strconv.Atoi(fields[1]); err == nil && n >= stats.AllPeriods {
			board.SetPeriodFilter(n)
		}

	case "share":
		token, err := client.CreateShareLink(ctx, gameID)
		if err != nil {
			telemetry.Warnf("share link failed: %v", err)
			return
		}
		telemetry.Plainf("Share token: %s  (liveview -token %s)", token, token)

	case "bg":
		sess.Background()
	case "fg":
		sess.Foreground()

	default:
		telemetry.Plainf("unknown command %q", fields[0])
	}
}

// parseClock accepts "M:SS" or a bare seconds count.
func parseClock(s string) (int, error) {
	if m, rest, ok := strings.Cut(s, ":"); ok {
		mins, err := strconv.Atoi(m)
		if err != nil {
			return 0, err
		}
		secs, err := strconv.Atoi(rest)
		if err != nil {
			return 0, err
		}
		return mins*60 + secs, nil
	}
	return strconv.Atoi(s)
}
