package store

import (
	"sync"
	"sync/atomic"

	"tictactoe-history/internal/game"
)

// Tally counts the games a session has concluded. Time travel lets one
// session finish several games, so every finishing move is counted.
type Tally struct {
	SessionID string
	XWins     int32
	OWins     int32
	Draws     int32
}

// TotalGames returns the total number of concluded games
func (t Tally) TotalGames() int32 {
	return t.XWins + t.OWins + t.Draws
}

// OutcomeStore provides thread-safe storage for per-session tallies
// Uses sharding similar to SessionStore for scalability
type OutcomeStore struct {
	shards    []*outcomeShard
	numShards int
}

type outcomeShard struct {
	mu      sync.RWMutex
	tallies map[string]*Tally
}

// NewOutcomeStore creates a new outcome store with the specified number of shards
func NewOutcomeStore(numShards int) *OutcomeStore {
	if numShards < 1 {
		numShards = DefaultShards
	}

	shards := make([]*outcomeShard, numShards)
	for i := range shards {
		shards[i] = &outcomeShard{
			tallies: make(map[string]*Tally),
		}
	}

	return &OutcomeStore{
		shards:    shards,
		numShards: numShards,
	}
}

func (s *OutcomeStore) getShard(sessionID string) *outcomeShard {
	return s.shards[shardIndex(sessionID, s.numShards)]
}

// getOrCreate returns the existing tally or creates a new one
func (s *OutcomeStore) getOrCreate(sessionID string) *Tally {
	shard := s.getShard(sessionID)

	shard.mu.RLock()
	tally, exists := shard.tallies[sessionID]
	shard.mu.RUnlock()

	if exists {
		return tally
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()

	// Double-check after acquiring write lock
	if tally, exists = shard.tallies[sessionID]; exists {
		return tally
	}

	tally = &Tally{SessionID: sessionID}
	shard.tallies[sessionID] = tally
	return tally
}

// Get returns the tally for a session. Sessions with no concluded games
// get a zero tally and nothing is stored.
func (s *OutcomeStore) Get(sessionID string) Tally {
	shard := s.getShard(sessionID)
	shard.mu.RLock()
	tally, exists := shard.tallies[sessionID]
	shard.mu.RUnlock()

	if !exists {
		return Tally{SessionID: sessionID}
	}
	return Tally{
		SessionID: sessionID,
		XWins:     atomic.LoadInt32(&tally.XWins),
		OWins:     atomic.LoadInt32(&tally.OWins),
		Draws:     atomic.LoadInt32(&tally.Draws),
	}
}

// Record counts a finished status. In-progress statuses are ignored.
func (s *OutcomeStore) Record(sessionID string, status game.Status) {
	switch {
	case status.Outcome == game.OutcomeDraw:
		atomic.AddInt32(&s.getOrCreate(sessionID).Draws, 1)
	case status.Outcome == game.OutcomeWon && status.Winner == game.MarkX:
		atomic.AddInt32(&s.getOrCreate(sessionID).XWins, 1)
	case status.Outcome == game.OutcomeWon && status.Winner == game.MarkO:
		atomic.AddInt32(&s.getOrCreate(sessionID).OWins, 1)
	}
}

// Len returns the number of stored tallies
func (s *OutcomeStore) Len() int {
	count := 0
	for _, shard := range s.shards {
		shard.mu.RLock()
		count += len(shard.tallies)
		shard.mu.RUnlock()
	}
	return count
}

// Delete drops the tally of a session
func (s *OutcomeStore) Delete(sessionID string) {
	shard := s.getShard(sessionID)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	delete(shard.tallies, sessionID)
}
