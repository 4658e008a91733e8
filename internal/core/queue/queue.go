package queue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/courtside/scoresync/internal/api"
	"github.com/courtside/scoresync/internal/core/model"
	"github.com/courtside/scoresync/internal/events"
	"github.com/courtside/scoresync/internal/telemetry"
)

// Submitter is the slice of the API client the queue needs. Narrowed for
// tests.
type Submitter interface {
	RecordStat(ctx context.Context, gameID string, req api.StatRecordRequest) (*model.GameSnapshot, error)
	AdjustStat(ctx context.Context, gameID string, req api.StatAdjustRequest) (*model.GameSnapshot, error)
	UndoLastStat(ctx context.Context, gameID string) (*model.GameSnapshot, error)
}

// Queue is the stat mutation pipeline: optimistic submission with a
// durable FIFO fallback. A recording that cannot reach the server is
// persisted and replayed in order once connectivity returns; a recording
// the server rejects is surfaced immediately and never queued.
type Queue struct {
	client Submitter
	store  *Store
	gameID string
	bus    *events.Bus

	draining atomic.Bool
}

func New(client Submitter, store *Store, gameID string, bus *events.Bus) *Queue {
	q := &Queue{client: client, store: store, gameID: gameID, bus: bus}
	telemetry.Metrics.PendingMutations.Set(int64(store.Count(gameID)))
	return q
}

// RecordResult reports what happened to one recording attempt.
type RecordResult struct {
	// Snapshot is the server's echo when the submission landed; nil when
	// the mutation was queued instead.
	Snapshot *model.GameSnapshot
	// Queued is true when the mutation was persisted for later replay.
	Queued bool
}

// Record submits one stat tap. On a network failure the mutation is
// persisted and the call succeeds from the operator's point of view — the
// visible stat simply lags until the next successful replay. A server
// rejection is returned as the error.
func (q *Queue) Record(ctx context.Context, playerID string, statType model.StatType, value int, shot *model.ShotLocation) (RecordResult, error) {
	req := api.StatRecordRequest{
		PlayerID:         playerID,
		StatType:         statType,
		Value:            value,
		ShotLocation:     shot,
		ClientMutationID: uuid.NewString(),
	}

	snap, err := q.client.RecordStat(ctx, q.gameID, req)
	if err == nil {
		telemetry.Metrics.MutationsSent.Inc()
		return RecordResult{Snapshot: snap}, nil
	}

	if !api.IsNetwork(err) {
		telemetry.Metrics.MutationsRejected.Inc()
		return RecordResult{}, err
	}

	m := PendingMutation{
		ClientID:     req.ClientMutationID,
		GameID:       q.gameID,
		PlayerID:     playerID,
		StatType:     statType,
		Value:        value,
		ShotLocation: shot,
		QueuedAt:     time.Now(),
	}
	if serr := q.store.Append(m); serr != nil {
		// Lost the network AND the local disk: nothing left to absorb it.
		return RecordResult{}, fmt.Errorf("queue mutation: %w", serr)
	}

	telemetry.Metrics.MutationsQueued.Inc()
	telemetry.Metrics.PendingMutations.Set(int64(q.store.Count(q.gameID)))
	telemetry.Warnf("queue: %s for player %s queued (offline)", statType, playerID)

	if q.bus != nil {
		q.bus.Publish(events.Event{
			Type:      events.EventMutationQueued,
			GameID:    q.gameID,
			Timestamp: time.Now(),
			Payload:   m,
		})
	}
	return RecordResult{Queued: true}, nil
}

// Adjust applies a signed manual correction to one counter. Corrections
// are not plays: they bypass the diff pipeline and are never queued — a
// failure is simply reported back to the operator.
func (q *Queue) Adjust(ctx context.Context, playerID string, statType model.StatType, delta int) (*model.GameSnapshot, error) {
	return q.client.AdjustStat(ctx, q.gameID, api.StatAdjustRequest{
		PlayerID:   playerID,
		StatType:   statType,
		Adjustment: delta,
	})
}

// UndoLast asks the server to remove the most recently recorded stat.
// ok=false with a nil error means there was nothing to undo; a non-nil
// error is a network failure or rejection. Local state is only replaced
// when the server confirms.
func (q *Queue) UndoLast(ctx context.Context) (snap *model.GameSnapshot, ok bool, err error) {
	snap, err = q.client.UndoLastStat(ctx, q.gameID)
	if errors.Is(err, api.ErrNothingToUndo) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

// Pending returns how many mutations await replay.
func (q *Queue) Pending() int {
	return q.store.Count(q.gameID)
}

// Replay drains the queue strictly in FIFO order, stopping at the first
// failure so game-event ordering survives an unreliable network. At most
// one drain runs at a time; concurrent calls are no-ops. Returns the
// number of mutations acknowledged and the server snapshot from the last
// successful submission, if any.
func (q *Queue) Replay(ctx context.Context) (int, *model.GameSnapshot) {
	if !q.draining.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer q.draining.Store(false)

	pending, err := q.store.All(q.gameID)
	if err != nil {
		telemetry.Errorf("queue: load pending: %v", err)
		return 0, nil
	}
	if len(pending) == 0 {
		return 0, nil
	}

	telemetry.Infof("queue: replaying %d pending mutations", len(pending))

	var (
		applied int
		last    *model.GameSnapshot
	)
	for _, m := range pending {
		snap, err := q.client.RecordStat(ctx, m.GameID, api.StatRecordRequest{
			PlayerID:         m.PlayerID,
			StatType:         m.StatType,
			Value:            m.Value,
			ShotLocation:     m.ShotLocation,
			ClientMutationID: m.ClientID,
		})
		if err != nil {
			// Stop on the first failure and keep the remainder queued in
			// order: a steal recorded before a turnover must never be
			// replayed after it.
			telemetry.Metrics.ReplayFailures.Inc()
			telemetry.Warnf("queue: replay stopped at %s (%d/%d done): %v",
				m.ClientID, applied, len(pending), err)
			break
		}

		if rerr := q.store.Remove(m.ClientID); rerr != nil {
			telemetry.Errorf("queue: remove acked mutation %s: %v", m.ClientID, rerr)
			break
		}
		applied++
		last = snap
		telemetry.Metrics.ReplaysOK.Inc()
	}

	telemetry.Metrics.PendingMutations.Set(int64(q.store.Count(q.gameID)))

	if applied > 0 && q.bus != nil {
		q.bus.Publish(events.Event{
			Type:      events.EventReplayDrained,
			GameID:    q.gameID,
			Timestamp: time.Now(),
			Payload:   applied,
		})
	}
	return applied, last
}
