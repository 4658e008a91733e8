package events

import "time"

// Event is the envelope that flows through the in-process bus.
// Every notable moment of a live session (snapshot applied, play detected,
// replay drained, view recomputed) is wrapped in one.
type Event struct {
	ID        string
	Type      EventType
	GameID    string
	Timestamp time.Time
	Payload   any
}

type EventType string

const (
	// Reconciliation loop
	EventSnapshotApplied EventType = "snapshot_applied"
	EventViewUpdate      EventType = "view_update"
	// Diff detector output
	EventPlayDetected EventType = "play_detected"
	// Mutation queue
	EventMutationQueued EventType = "mutation_queued"
	EventReplayDrained  EventType = "replay_drained"
)
