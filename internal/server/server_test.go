package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tictactoe-history/internal/store"
)

// testServer holds the server and client for end-to-end tests
type testServer struct {
	grpcServer *grpc.Server
	client     *Client
	conn       *grpc.ClientConn
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService() *TicTacToeServer {
	return NewTicTacToeServer(discardLogger(), store.NewSessionStore(4), store.NewOutcomeStore(4), 0)
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	grpcServer := grpc.NewServer()
	RegisterService(grpcServer, newTestService())

	// Start listening on random port
	listener, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)

	go grpcServer.Serve(listener)

	conn, err := grpc.NewClient(listener.Addr().String(), DialOptions()...)
	require.NoError(t, err)

	ts := &testServer{
		grpcServer: grpcServer,
		client:     NewClient(conn),
		conn:       conn,
	}
	t.Cleanup(ts.cleanup)
	return ts
}

func (ts *testServer) cleanup() {
	ts.conn.Close()
	ts.grpcServer.Stop()
}

func (ts *testServer) createSession(t *testing.T) *SessionView {
	t.Helper()
	resp, err := ts.client.CreateSession(context.Background(), &CreateSessionRequest{})
	require.NoError(t, err)
	return resp.Session
}

// click plays cells in order and requires each to be accepted
func (ts *testServer) click(t *testing.T, sessionID string, cells ...int32) *SessionView {
	t.Helper()
	var view *SessionView
	for _, cell := range cells {
		resp, err := ts.client.ClickCell(context.Background(), &ClickCellRequest{
			SessionID: sessionID,
			Cell:      cell,
		})
		require.NoError(t, err)
		require.True(t, resp.Accepted, "click on %d was ignored", cell)
		view = resp.Session
	}
	return view
}

func TestService_CreateSession(t *testing.T) {
	ts := setupTestServer(t)

	view := ts.createSession(t)

	assert.NotEmpty(t, view.SessionID)
	assert.Equal(t, []string{"", "", "", "", "", "", "", "", ""}, view.Board)
	assert.Equal(t, "IN_PROGRESS", view.Status)
	assert.Equal(t, "X", view.NextPlayer)
	assert.Equal(t, "Next player: X", view.Headline)
	assert.Equal(t, int32(0), view.CurrentStep)
	assert.Equal(t, int32(1), view.HistoryLength)
	assert.True(t, view.SortAscending)
	assert.Equal(t, "Sort Desc", view.SortLabel)
	assert.Empty(t, view.WinningCells)
	require.Len(t, view.Moves, 1)
	assert.Equal(t, "Go to game start", view.Moves[0].Label)
	assert.Equal(t, int32(-1), view.Moves[0].Cell)
	assert.True(t, view.Moves[0].Current)
}

func TestService_ClickCell(t *testing.T) {
	ts := setupTestServer(t)
	view := ts.createSession(t)

	view = ts.click(t, view.SessionID, 0)

	assert.Equal(t, "X", view.Board[0])
	assert.Equal(t, "IN_PROGRESS", view.Status)
	assert.Equal(t, int32(1), view.CurrentStep)
	assert.Equal(t, "O", view.NextPlayer)
	require.Len(t, view.Moves, 2)
	assert.Equal(t, "Go to move #1 (0, 0)", view.Moves[1].Label)
}

func TestService_ClickCell_OccupiedIsIgnored(t *testing.T) {
	ts := setupTestServer(t)
	view := ts.createSession(t)
	before := ts.click(t, view.SessionID, 4)

	resp, err := ts.client.ClickCell(context.Background(), &ClickCellRequest{
		SessionID: view.SessionID,
		Cell:      4,
	})
	require.NoError(t, err)

	assert.False(t, resp.Accepted)
	assert.Equal(t, before.Board, resp.Session.Board)
	assert.Equal(t, before.CurrentStep, resp.Session.CurrentStep)
	assert.Equal(t, before.HistoryLength, resp.Session.HistoryLength)
}

func TestService_WinCondition(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	view := ts.createSession(t)

	// X X X
	// O O .
	// . . .
	view = ts.click(t, view.SessionID, 0, 3, 1, 4, 2)

	assert.Equal(t, "WON", view.Status)
	assert.Equal(t, "X", view.Winner)
	assert.Equal(t, []int32{0, 1, 2}, view.WinningCells)
	assert.Equal(t, "Winner: X", view.Headline)
	assert.Empty(t, view.NextPlayer)

	// Further clicks are ignored
	resp, err := ts.client.ClickCell(ctx, &ClickCellRequest{SessionID: view.SessionID, Cell: 5})
	require.NoError(t, err)
	assert.False(t, resp.Accepted)
	assert.Equal(t, "", resp.Session.Board[5])
	assert.Equal(t, int32(5), resp.Session.CurrentStep)

	stats, err := ts.client.GetStats(ctx, &SessionRequest{SessionID: view.SessionID})
	require.NoError(t, err)
	assert.Equal(t, int32(1), stats.XWins)
	assert.Equal(t, int32(0), stats.OWins)
	assert.Equal(t, int32(1), stats.TotalGames)
}

func TestService_DrawCondition(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	view := ts.createSession(t)

	// X X O
	// O O X
	// X O X
	view = ts.click(t, view.SessionID, 0, 2, 1, 3, 5, 4, 6, 7, 8)

	assert.Equal(t, "DRAW", view.Status)
	assert.Equal(t, "Draw", view.Headline)
	assert.Empty(t, view.WinningCells)

	stats, err := ts.client.GetStats(ctx, &SessionRequest{SessionID: view.SessionID})
	require.NoError(t, err)
	assert.Equal(t, int32(1), stats.Draws)
}

func TestService_TimeTravel(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	view := ts.createSession(t)
	id := view.SessionID

	ts.click(t, id, 0, 4, 8)

	resp, err := ts.client.SelectStep(ctx, &SelectStepRequest{SessionID: id, Step: 1})
	require.NoError(t, err)
	assert.Equal(t, int32(1), resp.Session.CurrentStep)
	assert.Equal(t, int32(4), resp.Session.HistoryLength)
	assert.Equal(t, "O", resp.Session.NextPlayer)
	assert.Equal(t, "", resp.Session.Board[4])
	assert.True(t, resp.Session.Moves[1].Current)

	// cell 4 was filled at step 2; playing it from step 1 truncates
	view = ts.click(t, id, 4)
	assert.Equal(t, int32(2), view.CurrentStep)
	assert.Equal(t, int32(3), view.HistoryLength)
	assert.Equal(t, "O", view.Board[4])
	assert.Equal(t, "", view.Board[8])
}

func TestService_SelectStep_OutOfRange(t *testing.T) {
	ts := setupTestServer(t)
	view := ts.createSession(t)

	_, err := ts.client.SelectStep(context.Background(), &SelectStepRequest{SessionID: view.SessionID, Step: 3})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = ts.client.SelectStep(context.Background(), &SelectStepRequest{SessionID: view.SessionID, Step: -1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	// state untouched
	resp, err := ts.client.GetSession(context.Background(), &SessionRequest{SessionID: view.SessionID})
	require.NoError(t, err)
	assert.Equal(t, int32(0), resp.Session.CurrentStep)
}

func TestService_InvalidArguments(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	view := ts.createSession(t)

	_, err := ts.client.ClickCell(ctx, &ClickCellRequest{SessionID: view.SessionID, Cell: 9})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = ts.client.ClickCell(ctx, &ClickCellRequest{SessionID: view.SessionID, Cell: -1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = ts.client.GetSession(ctx, &SessionRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = ts.client.DeleteSession(ctx, &SessionRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestService_NotFound(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	_, err := ts.client.GetSession(ctx, &SessionRequest{SessionID: "nonexistent"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = ts.client.ClickCell(ctx, &ClickCellRequest{SessionID: "nonexistent", Cell: 0})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = ts.client.ToggleSort(ctx, &SessionRequest{SessionID: "nonexistent"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = ts.client.DeleteSession(ctx, &SessionRequest{SessionID: "nonexistent"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestService_ToggleSort(t *testing.T) {
	ts := setupTestServer(t)
	view := ts.createSession(t)
	ts.click(t, view.SessionID, 4, 0)

	resp, err := ts.client.ToggleSort(context.Background(), &SessionRequest{SessionID: view.SessionID})
	require.NoError(t, err)

	assert.False(t, resp.Session.SortAscending)
	assert.Equal(t, "Sort Asc", resp.Session.SortLabel)
	require.Len(t, resp.Session.Moves, 3)
	assert.Equal(t, int32(2), resp.Session.Moves[0].Step)
	assert.Equal(t, int32(0), resp.Session.Moves[2].Step)
	assert.Equal(t, int32(2), resp.Session.CurrentStep)
}

func TestService_GetBoard(t *testing.T) {
	ts := setupTestServer(t)
	view := ts.createSession(t)
	ts.click(t, view.SessionID, 0, 3, 1, 4, 2)

	resp, err := ts.client.GetBoard(context.Background(), &SessionRequest{SessionID: view.SessionID})
	require.NoError(t, err)

	assert.Equal(t, []string{"X|X|X", "O|O| ", " | | "}, resp.Rows)
	assert.Equal(t, "Winner: X", resp.Headline)
	assert.Equal(t, []int32{0, 1, 2}, resp.WinningCells)
	assert.Contains(t, resp.BoardDisplay, "|[X]|[X]|[X]|")
	assert.Contains(t, resp.BoardDisplay, "| O | O |   |")
}

func TestService_ListAndDelete(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ts.createSession(t)
	}

	resp, err := ts.client.ListSessions(ctx, &ListSessionsRequest{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int32(3), resp.TotalCount)
	require.Len(t, resp.Sessions, 2)

	_, err = ts.client.DeleteSession(ctx, &SessionRequest{SessionID: resp.Sessions[0].SessionID})
	require.NoError(t, err)

	_, err = ts.client.GetSession(ctx, &SessionRequest{SessionID: resp.Sessions[0].SessionID})
	assert.Equal(t, codes.NotFound, status.Code(err))

	resp, err = ts.client.ListSessions(ctx, &ListSessionsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), resp.TotalCount)
}

func TestService_StreamSession(t *testing.T) {
	ts := setupTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	view := ts.createSession(t)

	stream, err := ts.client.StreamSession(ctx, &SessionRequest{SessionID: view.SessionID})
	require.NoError(t, err)

	update, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Connected to session", update.Message)
	assert.Equal(t, int32(0), update.Session.CurrentStep)

	ts.click(t, view.SessionID, 4)

	update, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Next player: O", update.Message)
	assert.Equal(t, "X", update.Session.Board[4])

	// an ignored click produces no update
	resp, err := ts.client.ClickCell(ctx, &ClickCellRequest{SessionID: view.SessionID, Cell: 4})
	require.NoError(t, err)
	require.False(t, resp.Accepted)

	_, err = ts.client.SelectStep(ctx, &SelectStepRequest{SessionID: view.SessionID, Step: 0})
	require.NoError(t, err)

	update, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, int32(0), update.Session.CurrentStep)

	_, err = ts.client.DeleteSession(ctx, &SessionRequest{SessionID: view.SessionID})
	require.NoError(t, err)

	update, err = stream.Recv()
	require.NoError(t, err)
	assert.Nil(t, update.Session)
	assert.Equal(t, "Session deleted", update.Message)

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestService_StreamSession_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	stream, err := ts.client.StreamSession(context.Background(), &SessionRequest{SessionID: "nonexistent"})
	require.NoError(t, err)

	_, err = stream.Recv()
	assert.Equal(t, codes.NotFound, status.Code(err))
}

// recordingStream is a SessionStream that records updates. Send blocks
// until release is closed.
type recordingStream struct {
	ctx     context.Context
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu      sync.Mutex
	updates []*SessionUpdate
}

func newRecordingStream(ctx context.Context) *recordingStream {
	return &recordingStream{
		ctx:     ctx,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (rs *recordingStream) Send(update *SessionUpdate) error {
	rs.once.Do(func() { close(rs.entered) })
	<-rs.release

	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.updates = append(rs.updates, update)
	return nil
}

func (rs *recordingStream) Context() context.Context {
	return rs.ctx
}

func (rs *recordingStream) received() []*SessionUpdate {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]*SessionUpdate(nil), rs.updates...)
}

// startStream runs StreamSession in the background and waits until the
// stream is subscribed
func startStream(t *testing.T, srv *TicTacToeServer, sessionID string, rs *recordingStream) <-chan error {
	t.Helper()

	done := make(chan error, 1)
	go func() {
		done <- srv.StreamSession(&SessionRequest{SessionID: sessionID}, rs)
	}()

	select {
	case <-rs.entered:
	case err := <-done:
		t.Fatalf("stream ended before the first update: %v", err)
	case <-time.After(time.Second):
		t.Fatal("stream never sent its first update")
	}
	return done
}

func waitStreamEnd(t *testing.T, done <-chan error) {
	t.Helper()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("stream still open 1s after session deleted")
	}
}

func TestStreamSession_EndsOnDeleteWithFullBuffer(t *testing.T) {
	srv := newTestService()
	ctx := context.Background()

	created, err := srv.CreateSession(ctx, &CreateSessionRequest{})
	require.NoError(t, err)
	id := created.Session.SessionID

	rs := newRecordingStream(ctx)
	done := startStream(t, srv, id, rs)

	// the stream is stuck on its first send, so these overflow its buffer
	for i := 0; i < DefaultStreamBuffer+2; i++ {
		_, err := srv.ToggleSort(ctx, &SessionRequest{SessionID: id})
		require.NoError(t, err)
	}

	_, err = srv.DeleteSession(ctx, &SessionRequest{SessionID: id})
	require.NoError(t, err)

	close(rs.release)
	waitStreamEnd(t, done)

	updates := rs.received()
	require.Len(t, updates, DefaultStreamBuffer+2)
	assert.Equal(t, "Connected to session", updates[0].Message)
	for _, update := range updates[1 : len(updates)-1] {
		assert.NotNil(t, update.Session)
	}

	last := updates[len(updates)-1]
	assert.Nil(t, last.Session)
	assert.Equal(t, "Session deleted", last.Message)
}

func TestStreamSession_EndsWhenSessionAlreadyClosed(t *testing.T) {
	sessions := store.NewSessionStore(4)
	srv := NewTicTacToeServer(discardLogger(), sessions, store.NewOutcomeStore(4), 0)
	ctx := context.Background()

	created, err := srv.CreateSession(ctx, &CreateSessionRequest{})
	require.NoError(t, err)

	// closed after the lookup a stream would make, before it subscribes
	sess, err := sessions.Get(created.Session.SessionID)
	require.NoError(t, err)
	sess.Close()

	rs := newRecordingStream(ctx)
	close(rs.release)

	err = srv.StreamSession(&SessionRequest{SessionID: sess.ID}, rs)
	require.NoError(t, err)

	updates := rs.received()
	require.Len(t, updates, 2)
	assert.Nil(t, updates[1].Session)
	assert.Equal(t, "Session deleted", updates[1].Message)
}

func TestStreamSession_UpdatesInApplicationOrder(t *testing.T) {
	const toggles = 50

	srv := NewTicTacToeServer(discardLogger(), store.NewSessionStore(4), store.NewOutcomeStore(4), toggles+1)
	ctx := context.Background()

	created, err := srv.CreateSession(ctx, &CreateSessionRequest{})
	require.NoError(t, err)
	id := created.Session.SessionID

	rs := newRecordingStream(ctx)
	close(rs.release)
	done := startStream(t, srv, id, rs)

	var wg sync.WaitGroup
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := srv.ToggleSort(ctx, &SessionRequest{SessionID: id})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, err = srv.DeleteSession(ctx, &SessionRequest{SessionID: id})
	require.NoError(t, err)
	waitStreamEnd(t, done)

	updates := rs.received()
	require.Len(t, updates, toggles+2)

	// every toggle flips the order seen in the previous update
	ascending := updates[0].Session.SortAscending
	for i, update := range updates[1 : toggles+1] {
		require.Equal(t, !ascending, update.Session.SortAscending, "update %d", i+1)
		ascending = update.Session.SortAscending
	}
}

func TestService_ClosedSessionRejectsEvents(t *testing.T) {
	sessions := store.NewSessionStore(4)
	outcomes := store.NewOutcomeStore(4)
	srv := NewTicTacToeServer(discardLogger(), sessions, outcomes, 0)
	ctx := context.Background()

	created, err := srv.CreateSession(ctx, &CreateSessionRequest{})
	require.NoError(t, err)
	id := created.Session.SessionID

	// reading stats of a session with no finished games stores nothing
	stats, err := srv.GetStats(ctx, &SessionRequest{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, int32(0), stats.TotalGames)
	assert.Equal(t, 0, outcomes.Len())

	// X: 0,1  O: 3,4
	for _, cell := range []int32{0, 3, 1, 4} {
		_, err := srv.ClickCell(ctx, &ClickCellRequest{SessionID: id, Cell: cell})
		require.NoError(t, err)
	}

	// a click that looked the session up before it was deleted
	sess, err := sessions.Get(id)
	require.NoError(t, err)
	sess.Close()

	_, err = srv.ClickCell(ctx, &ClickCellRequest{SessionID: id, Cell: 2})
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, 0, outcomes.Len())
	assert.Equal(t, 4, sess.State().Step())

	_, err = srv.ToggleSort(ctx, &SessionRequest{SessionID: id})
	assert.Equal(t, codes.NotFound, status.Code(err))
	_, err = srv.SelectStep(ctx, &SelectStepRequest{SessionID: id, Step: 0})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestService_DeleteDropsTally(t *testing.T) {
	outcomes := store.NewOutcomeStore(4)
	srv := NewTicTacToeServer(discardLogger(), store.NewSessionStore(4), outcomes, 0)
	ctx := context.Background()

	created, err := srv.CreateSession(ctx, &CreateSessionRequest{})
	require.NoError(t, err)
	id := created.Session.SessionID

	for _, cell := range []int32{0, 3, 1, 4, 2} {
		_, err := srv.ClickCell(ctx, &ClickCellRequest{SessionID: id, Cell: cell})
		require.NoError(t, err)
	}
	require.Equal(t, 1, outcomes.Len())

	_, err = srv.DeleteSession(ctx, &SessionRequest{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, 0, outcomes.Len())
}
