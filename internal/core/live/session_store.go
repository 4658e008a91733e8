package live

import "sync"

// SessionStore is a thread-safe map of active game sessions, keyed by
// game id.
//
// The store's RWMutex protects the map itself (lookups, inserts,
// deletes). It does NOT protect Session contents — each Session
// serializes its own state mutations through its inbox channel.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

func (s *SessionStore) Get(gameID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[gameID]
	return sess, ok
}

func (s *SessionStore) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.gameID] = sess
}

// Delete removes a session from the store and shuts down its goroutine.
func (s *SessionStore) Delete(gameID string) {
	s.mu.Lock()
	sess, ok := s.sessions[gameID]
	delete(s.sessions, gameID)
	s.mu.Unlock()

	if ok {
		sess.Stop()
	}
}

// All returns a snapshot of active sessions. Safe for iteration.
func (s *SessionStore) All() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
