package kvpb

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

type fakeServer struct {
	mu    sync.Mutex
	store map[string]string
	seen  []string
}

func (f *fakeServer) Get(_ context.Context, in *GetRequest) (*GetReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.store[in.Key]
	return &GetReply{Value: v, Defined: ok}, nil
}

func (f *fakeServer) Set(_ context.Context, in *SetRequest) (*SetReply, error) {
	if in.Key == "" {
		return nil, status.Error(codes.InvalidArgument, "empty key")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[in.Key] = in.Value
	return &SetReply{Value: in.Value}, nil
}

func (f *fakeServer) List(context.Context, *ListRequest) (*StoreReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.store))
	for k, v := range f.store {
		out[k] = v
	}
	return &StoreReply{Store: out}, nil
}

func (f *fakeServer) RegisterWithPeer(_ context.Context, in *RegisterRequest) (*StoreReply, error) {
	f.mu.Lock()
	f.seen = append(f.seen, in.IP)
	f.mu.Unlock()
	return f.List(context.Background(), nil)
}

func startFake(t *testing.T, interceptor grpc.UnaryServerInterceptor) (NodeClient, *fakeServer) {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	fake := &fakeServer{store: make(map[string]string)}
	s := grpc.NewServer(grpc.UnaryInterceptor(interceptor))
	RegisterNodeServer(s, fake)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	cc, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	return NewNodeClient(cc), fake
}

func TestNodeServiceRoundTrip(t *testing.T) {
	var mu sync.Mutex
	var methods []string
	interceptor := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		mu.Lock()
		methods = append(methods, info.FullMethod)
		mu.Unlock()
		return handler(ctx, req)
	}
	c, fake := startFake(t, interceptor)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := c.Get(ctx, &GetRequest{Key: "x"})
	require.NoError(t, err)
	assert.False(t, got.Defined)

	set, err := c.Set(ctx, &SetRequest{Key: "x", Value: "1", Broadcast: true})
	require.NoError(t, err)
	assert.Equal(t, "1", set.Value)

	got, err = c.Get(ctx, &GetRequest{Key: "x"})
	require.NoError(t, err)
	assert.True(t, got.Defined)
	assert.Equal(t, "1", got.Value)

	list, err := c.List(ctx, &ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x": "1"}, list.Store)

	reg, err := c.RegisterWithPeer(ctx, &RegisterRequest{IP: "127.0.0.1:4001"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x": "1"}, reg.Store)
	assert.Equal(t, []string{"127.0.0.1:4001"}, fake.seen)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{MethodGet, MethodSet, MethodGet, MethodList, MethodRegisterWithPeer}, methods)
}

func TestNodeServiceErrorStatus(t *testing.T) {
	c, _ := startFake(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.Set(ctx, &SetRequest{Key: ""})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
