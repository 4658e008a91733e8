package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/courtside/scoresync/internal/core/model"
	"github.com/courtside/scoresync/internal/telemetry"
)

// StatRecordRequest is the payload for POST /games/{id}/stats.
type StatRecordRequest struct {
	PlayerID     string              `json:"player_id"`
	StatType     model.StatType      `json:"stat_type"`
	Value        int                 `json:"value"`
	ShotLocation *model.ShotLocation `json:"shot_location,omitempty"`
	// ClientMutationID lets the server drop a replayed mutation it has
	// already applied. Generated once when the mutation is created.
	ClientMutationID string `json:"client_mutation_id,omitempty"`
}

// StatAdjustRequest is the payload for POST /games/{id}/stats/adjust.
type StatAdjustRequest struct {
	PlayerID   string         `json:"player_id"`
	StatType   model.StatType `json:"stat_type"`
	Adjustment int            `json:"adjustment"`
}

// GameUpdateRequest is the partial-update payload for PUT /games/{id}.
// Nil fields are omitted and left untouched by the server.
type GameUpdateRequest struct {
	OurScore              *int    `json:"our_score,omitempty"`
	OpponentScore         *int    `json:"opponent_score,omitempty"`
	CurrentPeriod         *int    `json:"current_period,omitempty"`
	ClockSecondsRemaining *int    `json:"clock_seconds_remaining,omitempty"`
	ClockRunning          *bool   `json:"clock_running,omitempty"`
	HomeTimeoutsLeft      *int    `json:"home_timeouts_left,omitempty"`
	AwayTimeoutsLeft      *int    `json:"away_timeouts_left,omitempty"`
	Status                *string `json:"status,omitempty"`
}

// GetGame fetches the full authoritative snapshot for a game.
func (c *Client) GetGame(ctx context.Context, gameID string) (*model.GameSnapshot, error) {
	start := time.Now()
	body, status, err := c.Get(ctx, "/api/games/"+gameID)
	if err != nil {
		return nil, err
	}
	telemetry.Metrics.PollLatency.Record(time.Since(start))
	return decodeSnapshot(body, status)
}

// GetLiveGame fetches the read-only snapshot behind a share token.
// A revoked or unknown token reports ErrNotFound.
func (c *Client) GetLiveGame(ctx context.Context, shareToken string) (*model.GameSnapshot, error) {
	body, status, err := c.Get(ctx, "/api/live/"+shareToken)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(body, status)
}

// RecordStat submits one stat tap and returns the server's updated snapshot.
func (c *Client) RecordStat(ctx context.Context, gameID string, req StatRecordRequest) (*model.GameSnapshot, error) {
	start := time.Now()
	body, status, err := c.Post(ctx, "/api/games/"+gameID+"/stats", req)
	if err != nil {
		return nil, err
	}
	telemetry.Metrics.SubmitLatency.Record(time.Since(start))
	return decodeSnapshot(body, status)
}

// AdjustStat applies a signed manual correction to a single counter.
func (c *Client) AdjustStat(ctx context.Context, gameID string, req StatAdjustRequest) (*model.GameSnapshot, error) {
	body, status, err := c.Post(ctx, "/api/games/"+gameID+"/stats/adjust", req)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(body, status)
}

// UndoLastStat asks the server to remove the most recently recorded stat.
// Reports ErrNothingToUndo when the server-side history is empty.
func (c *Client) UndoLastStat(ctx context.Context, gameID string) (*model.GameSnapshot, error) {
	body, status, err := c.Post(ctx, "/api/games/"+gameID+"/stats/undo", nil)
	if err != nil {
		return nil, err
	}
	if status == 400 && strings.Contains(string(body), "No stats to undo") {
		return nil, ErrNothingToUndo
	}
	return decodeSnapshot(body, status)
}

// UpdateGame applies a partial out-of-band edit (manual score, clock,
// period, timeouts) and returns the updated snapshot.
func (c *Client) UpdateGame(ctx context.Context, gameID string, req GameUpdateRequest) (*model.GameSnapshot, error) {
	body, status, err := c.Put(ctx, "/api/games/"+gameID, req)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(body, status)
}

type shareResponse struct {
	ShareToken string `json:"share_token"`
}

// CreateShareLink issues a share token for the read-only live view.
func (c *Client) CreateShareLink(ctx context.Context, gameID string) (string, error) {
	body, status, err := c.Post(ctx, "/api/games/"+gameID+"/share", nil)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", &StatusError{Code: status, Body: string(body)}
	}
	var resp shareResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal share response: %w", err)
	}
	return resp.ShareToken, nil
}

func decodeSnapshot(body []byte, status int) (*model.GameSnapshot, error) {
	if status < 200 || status >= 300 {
		return nil, &StatusError{Code: status, Body: string(body)}
	}
	var snap model.GameSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
