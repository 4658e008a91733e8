package live

import (
	"github.com/courtside/scoresync/internal/core/feed"
	"github.com/courtside/scoresync/internal/core/model"
)

// ViewState is what the UI layer renders: the last good snapshot, the
// locally predicted clock, the play-by-play window, and enough error
// context to tell "first load failed" from "refresh failed". Recomputed
// after every reconciliation pass or mutation and pushed to subscribers;
// JSON-encodable so the fanout server can mirror it to spectator screens.
type ViewState struct {
	Game         *model.GameSnapshot `json:"game,omitempty"`
	ClockSeconds int                 `json:"clock_seconds"`
	ClockTicking bool                `json:"clock_ticking"`
	Feed         []feed.Event        `json:"feed"`
	PendingCount int                 `json:"pending_count"`

	// LastError is the most recent poll or mutation failure, empty once a
	// pass succeeds. While Game is non-nil the screen keeps rendering the
	// last good snapshot regardless.
	LastError string `json:"last_error,omitempty"`

	// FirstLoadFailed is true only when no snapshot has ever loaded; the
	// one case where the UI shows a blocking error state.
	FirstLoadFailed bool `json:"first_load_failed,omitempty"`
}
