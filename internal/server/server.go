package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tictactoe-history/internal/game"
	"tictactoe-history/internal/store"
)

const (
	DefaultListLimit    = 50
	MaxListLimit        = 100
	DefaultStreamBuffer = 10
)

// TicTacToeServer implements Service. Each session is driven one event
// at a time; every accepted event replaces the session state and is
// broadcast to the session's subscribers.
type TicTacToeServer struct {
	log          *slog.Logger
	sessions     *store.SessionStore
	outcomes     *store.OutcomeStore
	streamBuffer int

	// Subscribers for session updates (sessionID -> set of channels)
	subscribersMu sync.RWMutex
	subscribers   map[string]map[chan *SessionUpdate]struct{}
}

// NewTicTacToeServer creates a new server instance
func NewTicTacToeServer(logger *slog.Logger, sessions *store.SessionStore, outcomes *store.OutcomeStore, streamBuffer int) *TicTacToeServer {
	if streamBuffer < 1 {
		streamBuffer = DefaultStreamBuffer
	}

	return &TicTacToeServer{
		log:          logger.With("component", "server"),
		sessions:     sessions,
		outcomes:     outcomes,
		streamBuffer: streamBuffer,
		subscribers:  make(map[string]map[chan *SessionUpdate]struct{}),
	}
}

// CreateSession starts a new game at the empty board
func (s *TicTacToeServer) CreateSession(ctx context.Context, req *CreateSessionRequest) (*SessionResponse, error) {
	sess := store.NewSession(uuid.New().String())
	if err := s.sessions.Create(sess); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to store session: %v", err)
	}

	s.log.Info("session created", "session_id", sess.ID)

	return &SessionResponse{
		Session: sessionToView(sess, sess.State()),
	}, nil
}

// GetSession retrieves the current view of a session
func (s *TicTacToeServer) GetSession(ctx context.Context, req *SessionRequest) (*SessionResponse, error) {
	sess, err := s.getSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	return &SessionResponse{
		Session: sessionToView(sess, sess.State()),
	}, nil
}

// ListSessions returns sessions ordered by creation time
func (s *TicTacToeServer) ListSessions(ctx context.Context, req *ListSessionsRequest) (*ListSessionsResponse, error) {
	limit := int(req.Limit)
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	offset := int(req.Offset)
	if offset < 0 {
		offset = 0
	}

	sessions, totalCount := s.sessions.List(limit, offset)

	views := make([]*SessionView, len(sessions))
	for i, sess := range sessions {
		views[i] = sessionToView(sess, sess.State())
	}

	return &ListSessionsResponse{
		Sessions:   views,
		TotalCount: int32(totalCount),
	}, nil
}

// DeleteSession drops a session and ends its update streams
func (s *TicTacToeServer) DeleteSession(ctx context.Context, req *SessionRequest) (*DeleteSessionResponse, error) {
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}

	if err := s.sessions.Delete(req.SessionID); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, status.Error(codes.NotFound, "session not found")
		}
		return nil, status.Errorf(codes.Internal, "failed to delete session: %v", err)
	}
	// Delete has closed the session, so no event can record after this
	s.outcomes.Delete(req.SessionID)

	s.log.Info("session deleted", "session_id", req.SessionID)

	return &DeleteSessionResponse{}, nil
}

// ClickCell plays the player to move on a cell. Clicks on occupied cells
// or decided boards are ignored and reported with Accepted=false.
func (s *TicTacToeServer) ClickCell(ctx context.Context, req *ClickCellRequest) (*ClickCellResponse, error) {
	if err := game.CheckCell(int(req.Cell)); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	sess, err := s.getSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	var (
		accepted bool
		view     *SessionView
	)
	_, _, err = sess.Apply(func(st game.State) game.State {
		return game.ApplyMove(st, int(req.Cell))
	}, func(prev, next game.State) {
		accepted = next.Step() == prev.Step()+1
		view = sessionToView(sess, next)
		if !accepted {
			return
		}
		if st := next.Status(); st.IsFinished() {
			s.outcomes.Record(sess.ID, st)
		}
		s.broadcastUpdate(sess.ID, &SessionUpdate{
			Session: view,
			Message: game.Headline(next),
		})
	})
	if err != nil {
		return nil, sessionError(err)
	}

	return &ClickCellResponse{
		Session:  view,
		Accepted: accepted,
	}, nil
}

// SelectStep jumps to a step of the session history
func (s *TicTacToeServer) SelectStep(ctx context.Context, req *SelectStepRequest) (*SessionResponse, error) {
	sess, err := s.getSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	var (
		stepErr error
		view    *SessionView
	)
	_, _, err = sess.Apply(func(st game.State) game.State {
		if stepErr = st.CheckStep(int(req.Step)); stepErr != nil {
			return st
		}
		return game.JumpTo(st, int(req.Step))
	}, func(_, next game.State) {
		if stepErr != nil {
			return
		}
		view = sessionToView(sess, next)
		s.broadcastUpdate(sess.ID, &SessionUpdate{
			Session: view,
			Message: game.Headline(next),
		})
	})
	if err != nil {
		return nil, sessionError(err)
	}
	if stepErr != nil {
		return nil, status.Error(codes.InvalidArgument, stepErr.Error())
	}

	return &SessionResponse{Session: view}, nil
}

// ToggleSort flips the move list order of a session
func (s *TicTacToeServer) ToggleSort(ctx context.Context, req *SessionRequest) (*SessionResponse, error) {
	sess, err := s.getSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	var view *SessionView
	_, _, err = sess.Apply(game.ToggleSort, func(_, next game.State) {
		view = sessionToView(sess, next)
		s.broadcastUpdate(sess.ID, &SessionUpdate{
			Session: view,
			Message: game.SortLabel(next),
		})
	})
	if err != nil {
		return nil, sessionError(err)
	}

	return &SessionResponse{Session: view}, nil
}

// GetBoard retrieves the current board as a human-readable matrix
func (s *TicTacToeServer) GetBoard(ctx context.Context, req *SessionRequest) (*BoardResponse, error) {
	sess, err := s.getSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	return stateToBoardResponse(sess.ID, sess.State()), nil
}

// GetStats retrieves the tally of games concluded in a session
func (s *TicTacToeServer) GetStats(ctx context.Context, req *SessionRequest) (*StatsResponse, error) {
	sess, err := s.getSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	return tallyToResponse(s.outcomes.Get(sess.ID)), nil
}

// StreamSession streams session views after every accepted event until
// the client goes away or the session is deleted. The stream ends with an
// update carrying no session once the session is deleted.
func (s *TicTacToeServer) StreamSession(req *SessionRequest, stream SessionStream) error {
	sess, err := s.getSession(req.SessionID)
	if err != nil {
		return err
	}

	// Create channel for updates
	updateCh := make(chan *SessionUpdate, s.streamBuffer)
	s.subscribe(sess.ID, updateCh)
	defer s.unsubscribe(sess.ID, updateCh)

	s.log.Debug("stream connected", "session_id", sess.ID)

	// Send initial state
	if err := stream.Send(&SessionUpdate{
		Session: sessionToView(sess, sess.State()),
		Message: "Connected to session",
	}); err != nil {
		return err
	}

	for {
		select {
		case update := <-updateCh:
			if err := stream.Send(update); err != nil {
				return err
			}
		case <-sess.Done():
			return s.endStream(sess.ID, updateCh, stream)
		case <-stream.Context().Done():
			return stream.Context().Err()
		}
	}
}

// getSession validates the id and maps store errors to gRPC codes
func (s *TicTacToeServer) getSession(sessionID string) (*store.Session, error) {
	if sessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionError(err)
	}

	return sess, nil
}

// sessionError maps store errors to gRPC codes. A closed session was
// deleted while the request was in flight.
func sessionError(err error) error {
	if errors.Is(err, store.ErrSessionNotFound) || errors.Is(err, store.ErrSessionClosed) {
		return status.Error(codes.NotFound, "session not found")
	}
	return status.Errorf(codes.Internal, "failed to get session: %v", err)
}

// endStream flushes updates committed before the session closed, then
// sends the final update with no session
func (s *TicTacToeServer) endStream(sessionID string, updateCh <-chan *SessionUpdate, stream SessionStream) error {
	for {
		select {
		case update := <-updateCh:
			if err := stream.Send(update); err != nil {
				return err
			}
		default:
			s.log.Debug("stream closed by session delete", "session_id", sessionID)
			return stream.Send(&SessionUpdate{
				Message: "Session deleted",
			})
		}
	}
}

// subscribe adds a channel to receive updates for a session
func (s *TicTacToeServer) subscribe(sessionID string, ch chan *SessionUpdate) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	if s.subscribers[sessionID] == nil {
		s.subscribers[sessionID] = make(map[chan *SessionUpdate]struct{})
	}
	s.subscribers[sessionID][ch] = struct{}{}
}

// unsubscribe removes a channel from receiving updates
func (s *TicTacToeServer) unsubscribe(sessionID string, ch chan *SessionUpdate) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	if subs, ok := s.subscribers[sessionID]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(s.subscribers, sessionID)
		}
	}
	close(ch)
}

// broadcastUpdate sends an update to all subscribers of a session
func (s *TicTacToeServer) broadcastUpdate(sessionID string, update *SessionUpdate) {
	s.subscribersMu.RLock()
	defer s.subscribersMu.RUnlock()

	for ch := range s.subscribers[sessionID] {
		select {
		case ch <- update:
		default:
			// Channel full, skip (non-blocking)
			s.log.Warn("dropped session update", "session_id", sessionID)
		}
	}
}
