package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DialOptions returns the options a client needs to talk to the service
func DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}
}

// Client is a typed TicTacToeService client
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection created with DialOptions
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, "CreateSession", in, opts...)
}

func (c *Client) GetSession(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, "GetSession", in, opts...)
}

func (c *Client) ListSessions(ctx context.Context, in *ListSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error) {
	return invoke[ListSessionsResponse](ctx, c.cc, "ListSessions", in, opts...)
}

func (c *Client) DeleteSession(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*DeleteSessionResponse, error) {
	return invoke[DeleteSessionResponse](ctx, c.cc, "DeleteSession", in, opts...)
}

func (c *Client) ClickCell(ctx context.Context, in *ClickCellRequest, opts ...grpc.CallOption) (*ClickCellResponse, error) {
	return invoke[ClickCellResponse](ctx, c.cc, "ClickCell", in, opts...)
}

func (c *Client) SelectStep(ctx context.Context, in *SelectStepRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, "SelectStep", in, opts...)
}

func (c *Client) ToggleSort(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, "ToggleSort", in, opts...)
}

func (c *Client) GetBoard(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*BoardResponse, error) {
	return invoke[BoardResponse](ctx, c.cc, "GetBoard", in, opts...)
}

func (c *Client) GetStats(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*StatsResponse, error) {
	return invoke[StatsResponse](ctx, c.cc, "GetStats", in, opts...)
}

// SessionUpdateStream receives the updates of one StreamSession call
type SessionUpdateStream struct {
	grpc.ClientStream
}

func (x *SessionUpdateStream) Recv() (*SessionUpdate, error) {
	m := new(SessionUpdate)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Client) StreamSession(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*SessionUpdateStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("StreamSession"), opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &SessionUpdateStream{stream}, nil
}
