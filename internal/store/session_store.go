package store

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tictactoe-history/internal/game"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrSessionClosed        = errors.New("session closed")
)

// Session holds the current game state of one player's page. Events are
// applied one at a time; each replaces the state wholesale.
type Session struct {
	mu sync.Mutex

	ID        string
	CreatedAt time.Time

	state  game.State
	closed bool
	done   chan struct{}

	updatedAt atomic.Int64 // unix nanos
}

// NewSession creates a session at the starting position
func NewSession(id string) *Session {
	now := time.Now()
	sess := &Session{
		ID:        id,
		CreatedAt: now,
		state:     game.NewState(),
		done:      make(chan struct{}),
	}
	sess.updatedAt.Store(now.UnixNano())
	return sess
}

// Apply runs transition against the current state and stores the result.
// It returns the states before and after the event. commit, if not nil,
// runs before the next event can start, so whatever it publishes is seen
// in application order. Closed sessions reject events with
// ErrSessionClosed.
func (s *Session) Apply(transition func(game.State) game.State, commit func(prev, next game.State)) (prev, next game.State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.state, s.state, ErrSessionClosed
	}

	prev = s.state
	next = transition(prev)
	s.state = next
	s.updatedAt.Store(time.Now().UnixNano())

	if commit != nil {
		commit(prev, next)
	}
	return prev, next, nil
}

// Close stops the session from accepting events and closes Done. It waits
// for an event in progress to commit.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

// Done is closed once the session is closed
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns the current game state
func (s *Session) State() game.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UpdatedAt returns the time of the last applied event
func (s *Session) UpdatedAt() time.Time {
	return time.Unix(0, s.updatedAt.Load())
}

// SessionStore provides thread-safe storage for sessions
// Uses sharding to reduce lock contention for scalability
type SessionStore struct {
	shards    []*sessionShard
	numShards int
}

type sessionShard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates a new session store with the specified number of shards
func NewSessionStore(numShards int) *SessionStore {
	if numShards < 1 {
		numShards = DefaultShards
	}

	shards := make([]*sessionShard, numShards)
	for i := range shards {
		shards[i] = &sessionShard{
			sessions: make(map[string]*Session),
		}
	}

	return &SessionStore{
		shards:    shards,
		numShards: numShards,
	}
}

func (s *SessionStore) getShard(sessionID string) *sessionShard {
	return s.shards[shardIndex(sessionID, s.numShards)]
}

// Create stores a new session
func (s *SessionStore) Create(sess *Session) error {
	shard := s.getShard(sess.ID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if _, exists := shard.sessions[sess.ID]; exists {
		return ErrSessionAlreadyExists
	}

	shard.sessions[sess.ID] = sess
	return nil
}

// Get retrieves a session by ID
func (s *SessionStore) Get(sessionID string) (*Session, error) {
	shard := s.getShard(sessionID)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	sess, exists := shard.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	return sess, nil
}

// Delete removes a session by ID and closes it
func (s *SessionStore) Delete(sessionID string) error {
	shard := s.getShard(sessionID)
	shard.mu.Lock()
	sess, exists := shard.sessions[sessionID]
	if !exists {
		shard.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(shard.sessions, sessionID)
	shard.mu.Unlock()

	sess.Close()
	return nil
}

// List returns sessions ordered by creation time with pagination
func (s *SessionStore) List(limit, offset int) ([]*Session, int) {
	var all []*Session

	for _, shard := range s.shards {
		shard.mu.RLock()
		for _, sess := range shard.sessions {
			all = append(all, sess)
		}
		shard.mu.RUnlock()
	}

	slices.SortFunc(all, func(a, b *Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	totalCount := len(all)

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []*Session{}, totalCount
	}

	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	return all, totalCount
}

// Count returns the total number of sessions
func (s *SessionStore) Count() int {
	count := 0
	for _, shard := range s.shards {
		shard.mu.RLock()
		count += len(shard.sessions)
		shard.mu.RUnlock()
	}
	return count
}
