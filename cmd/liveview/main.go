package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courtside/scoresync/internal/api"
	"github.com/courtside/scoresync/internal/config"
	"github.com/courtside/scoresync/internal/core/live"
	"github.com/courtside/scoresync/internal/core/model"
	"github.com/courtside/scoresync/internal/display"
	"github.com/courtside/scoresync/internal/events"
	"github.com/courtside/scoresync/internal/fanout"
	"github.com/courtside/scoresync/internal/telemetry"
)

// liveview is the spectator mirror. By default it connects to an
// operator's fanout server and renders every view update it receives.
// With -token it skips the operator entirely and polls the read-only
// share endpoint.
func main() {
	var (
		addr  = flag.String("addr", "localhost:8787", "operator fanout address")
		game  = flag.String("game", "", "game id to mirror")
		token = flag.String("token", "", "share token: poll the live endpoint instead of the fanout server")
	)
	flag.Parse()

	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	board := display.NewBoard(os.Stdout)

	if *token != "" {
		pollShareToken(ctx, board, cfg, *token)
		return
	}

	if *game == "" {
		telemetry.Errorf("liveview: -game or -token required")
		os.Exit(1)
	}

	bus := events.NewBus()
	board.Attach(bus)

	telemetry.Infof("Mirroring game %s from %s", *game, *addr)
	fanout.NewClient(*addr, *game, bus).ConnectWithRetry(ctx)
}

// pollShareToken renders the read-only live endpoint on a fixed
// interval. Spectators get no clock prediction: the clock moves only
// when the server says so.
func pollShareToken(ctx context.Context, board *display.Board, cfg *config.Config, token string) {
	client := api.NewClient(cfg.APIBaseURL, "")
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	telemetry.Infof("Watching share token %s", token)

	var last *model.GameSnapshot
	for {
		snap, err := client.GetLiveGame(ctx, token)
		switch {
		case errors.Is(err, api.ErrNotFound):
			telemetry.Plainf("This game is no longer being shared.")
			return
		case err != nil:
			// Keep the last known board on screen; only the banner changes.
			view := live.ViewState{Game: last, LastError: err.Error(), FirstLoadFailed: last == nil}
			if last != nil {
				view.ClockSeconds = last.ClockSecondsRemaining
			}
			board.Render(view)
		default:
			last = snap
			board.Render(live.ViewState{
				Game:         snap,
				ClockSeconds: snap.ClockSecondsRemaining,
				ClockTicking: snap.ClockRunning,
			})
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
