package kvpb

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName は完全修飾のgRPCサービス名
const ServiceName = "kv.Node"

// インターセプタから見える完全なメソッド名
const (
	MethodGet              = "/" + ServiceName + "/Get"
	MethodSet              = "/" + ServiceName + "/Set"
	MethodList             = "/" + ServiceName + "/List"
	MethodRegisterWithPeer = "/" + ServiceName + "/RegisterWithPeer"
)

// NodeServer はノードサービスが実装するインターフェース
type NodeServer interface {
	Get(context.Context, *GetRequest) (*GetReply, error)
	Set(context.Context, *SetRequest) (*SetReply, error)
	List(context.Context, *ListRequest) (*StoreReply, error)
	RegisterWithPeer(context.Context, *RegisterRequest) (*StoreReply, error)
}

// RegisterNodeServer は srv を s に登録する
func RegisterNodeServer(s grpc.ServiceRegistrar, srv NodeServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc は grpc.Server 向けのノードサービス定義
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NodeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: getHandler},
		{MethodName: "Set", Handler: setHandler},
		{MethodName: "List", Handler: listHandler},
		{MethodName: "RegisterWithPeer", Handler: registerHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kv.proto",
}

func getHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGet}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(NodeServer).Get(ctx, req.(*GetRequest))
	})
}

func setHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeServer).Set(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodSet}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(NodeServer).Set(ctx, req.(*SetRequest))
	})
}

func listHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeServer).List(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodList}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(NodeServer).List(ctx, req.(*ListRequest))
	})
}

func registerHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RegisterRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeServer).RegisterWithPeer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodRegisterWithPeer}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(NodeServer).RegisterWithPeer(ctx, req.(*RegisterRequest))
	})
}

// NodeClient はノードサービスのクライアント側
type NodeClient interface {
	Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetReply, error)
	Set(ctx context.Context, in *SetRequest, opts ...grpc.CallOption) (*SetReply, error)
	List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*StoreReply, error)
	RegisterWithPeer(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*StoreReply, error)
}

type nodeClient struct {
	cc grpc.ClientConnInterface
}

// NewNodeClient は cc 上で呼び出しを行う NodeClient を返す
func NewNodeClient(cc grpc.ClientConnInterface) NodeClient {
	return &nodeClient{cc: cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *nodeClient) Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetReply, error) {
	out := new(GetReply)
	if err := c.cc.Invoke(ctx, MethodGet, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeClient) Set(ctx context.Context, in *SetRequest, opts ...grpc.CallOption) (*SetReply, error) {
	out := new(SetReply)
	if err := c.cc.Invoke(ctx, MethodSet, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeClient) List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*StoreReply, error) {
	out := new(StoreReply)
	if err := c.cc.Invoke(ctx, MethodList, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeClient) RegisterWithPeer(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*StoreReply, error) {
	out := new(StoreReply)
	if err := c.cc.Invoke(ctx, MethodRegisterWithPeer, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}
