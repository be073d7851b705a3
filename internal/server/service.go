package server

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	// ServiceName is the fully qualified gRPC service name
	ServiceName = "tictactoe.v1.TicTacToeService"

	// CodecName is the gRPC content subtype the service speaks
	CodecName = "json"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec carries the plain Go messages of this package over gRPC
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

// Service is implemented by TicTacToeServer and registered on a grpc.Server
type Service interface {
	CreateSession(context.Context, *CreateSessionRequest) (*SessionResponse, error)
	GetSession(context.Context, *SessionRequest) (*SessionResponse, error)
	ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error)
	DeleteSession(context.Context, *SessionRequest) (*DeleteSessionResponse, error)
	ClickCell(context.Context, *ClickCellRequest) (*ClickCellResponse, error)
	SelectStep(context.Context, *SelectStepRequest) (*SessionResponse, error)
	ToggleSort(context.Context, *SessionRequest) (*SessionResponse, error)
	GetBoard(context.Context, *SessionRequest) (*BoardResponse, error)
	GetStats(context.Context, *SessionRequest) (*StatsResponse, error)
	StreamSession(*SessionRequest, SessionStream) error
}

// SessionStream is the server side of StreamSession
type SessionStream interface {
	Send(*SessionUpdate) error
	Context() context.Context
}

// RegisterService registers srv on a gRPC server
func RegisterService(s grpc.ServiceRegistrar, srv Service) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unaryHandler adapts a typed Service method to a grpc.MethodHandler
func unaryHandler[Req, Resp any](name string, call func(Service, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(Service), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(name),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(Service), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func streamSessionHandler(srv any, stream grpc.ServerStream) error {
	in := new(SessionRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(Service).StreamSession(in, &sessionStreamServer{stream})
}

type sessionStreamServer struct {
	grpc.ServerStream
}

func (x *sessionStreamServer) Send(m *SessionUpdate) error {
	return x.ServerStream.SendMsg(m)
}

// ServiceDesc describes TicTacToeService for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Service)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateSession", Handler: unaryHandler("CreateSession", Service.CreateSession)},
		{MethodName: "GetSession", Handler: unaryHandler("GetSession", Service.GetSession)},
		{MethodName: "ListSessions", Handler: unaryHandler("ListSessions", Service.ListSessions)},
		{MethodName: "DeleteSession", Handler: unaryHandler("DeleteSession", Service.DeleteSession)},
		{MethodName: "ClickCell", Handler: unaryHandler("ClickCell", Service.ClickCell)},
		{MethodName: "SelectStep", Handler: unaryHandler("SelectStep", Service.SelectStep)},
		{MethodName: "ToggleSort", Handler: unaryHandler("ToggleSort", Service.ToggleSort)},
		{MethodName: "GetBoard", Handler: unaryHandler("GetBoard", Service.GetBoard)},
		{MethodName: "GetStats", Handler: unaryHandler("GetStats", Service.GetStats)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamSession",
			Handler:       streamSessionHandler,
			ServerStreams: true,
		},
	},
	Metadata: "tictactoe/v1/tictactoe.json",
}
