package queue

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/courtside/scoresync/internal/core/model"
	"github.com/courtside/scoresync/internal/telemetry"

	_ "modernc.org/sqlite"
)

// PendingMutation is one stat recording waiting for replay. It outlives
// app restarts: the queue reloads the table on startup and drains it when
// connectivity returns.
type PendingMutation struct {
	ClientID     string
	GameID       string
	PlayerID     string
	StatType     model.StatType
	Value        int
	ShotLocation *model.ShotLocation
	QueuedAt     time.Time
}

// Store persists pending mutations in SQLite, strictly FIFO by insertion
// id. Only the mutation queue touches it.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

const schema = `CREATE TABLE IF NOT EXISTS pending_mutations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	client_id  TEXT    NOT NULL UNIQUE,
	game_id    TEXT    NOT NULL,
	player_id  TEXT    NOT NULL,
	stat_type  TEXT    NOT NULL,
	value      INTEGER NOT NULL,
	shot_x     REAL,
	shot_y     REAL,
	queued_at  TEXT    NOT NULL
)`

func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create queue store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init queue schema: %w", err)
	}

	var count int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM pending_mutations`).Scan(&count); err != nil {
		db.Close()
		return nil, fmt.Errorf("count pending mutations: %w", err)
	}
	if count > 0 {
		telemetry.Infof("queue store: opened %s with %d pending mutations", path, count)
	}

	return &Store{db: db}, nil
}

// Append adds a mutation to the tail of the queue.
func (s *Store) Append(m PendingMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var shotX, shotY any
	if m.ShotLocation != nil {
		shotX = m.ShotLocation.X
		shotY = m.ShotLocation.Y
	}

	_, err := s.db.Exec(
		`INSERT INTO pending_mutations
		 (client_id, game_id, player_id, stat_type, value, shot_x, shot_y, queued_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		m.ClientID, m.GameID, m.PlayerID, string(m.StatType), m.Value,
		shotX, shotY, m.QueuedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append pending mutation: %w", err)
	}
	return nil
}

// All returns every pending mutation for a game in queue order.
func (s *Store) All(gameID string) ([]PendingMutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT client_id, game_id, player_id, stat_type, value, shot_x, shot_y, queued_at
		 FROM pending_mutations WHERE game_id = ? ORDER BY id ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list pending mutations: %w", err)
	}
	defer rows.Close()

	var out []PendingMutation
	for rows.Next() {
		var (
			m        PendingMutation
			statType string
			shotX    sql.NullFloat64
			shotY    sql.NullFloat64
			queuedAt string
		)
		if err := rows.Scan(&m.ClientID, &m.GameID, &m.PlayerID, &statType,
			&m.Value, &shotX, &shotY, &queuedAt); err != nil {
			return nil, err
		}
		m.StatType = model.StatType(statType)
		if shotX.Valid && shotY.Valid {
			m.ShotLocation = &model.ShotLocation{X: shotX.Float64, Y: shotY.Float64}
		}
		if t, err := time.Parse(time.RFC3339Nano, queuedAt); err == nil {
			m.QueuedAt = t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Remove deletes a mutation after the server acknowledged it.
func (s *Store) Remove(clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM pending_mutations WHERE client_id = ?`, clientID); err != nil {
		return fmt.Errorf("remove pending mutation: %w", err)
	}
	return nil
}

// Count returns how many mutations are queued for a game. A store that
// cannot be read reports zero, loudly: the pending badge feeds off this.
func (s *Store) Count(gameID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM pending_mutations WHERE game_id = ?`, gameID).Scan(&n); err != nil {
		telemetry.Errorf("queue store: count pending: %v", err)
		return 0
	}
	return n
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
