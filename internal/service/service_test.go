package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"kv-store/internal/events"
	"kv-store/internal/kvpb"
	"kv-store/internal/node"
)

const self = "127.0.0.1:4000"

type recordingBroadcaster struct {
	calls []string
	err   error
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, key, value string) error {
	r.calls = append(r.calls, key+"="+value)
	return r.err
}

func newService(t *testing.T, b *recordingBroadcaster) (*Service, *node.Node, <-chan events.Event) {
	t.Helper()
	n := node.New(self)
	bus := events.NewBus()
	return New(n, b, WithEvents(bus)), n, bus.Subscribe()
}

func TestGetUndefined(t *testing.T) {
	s, _, _ := newService(t, &recordingBroadcaster{})

	reply, err := s.Get(context.Background(), &kvpb.GetRequest{Key: "missing"})
	require.NoError(t, err)
	assert.False(t, reply.Defined)
	assert.Empty(t, reply.Value)
}

func TestLocalSetDoesNotBroadcast(t *testing.T) {
	b := &recordingBroadcaster{}
	s, _, sub := newService(t, b)
	ctx := context.Background()

	reply, err := s.Set(ctx, &kvpb.SetRequest{Key: "k", Value: "v", Broadcast: false})
	require.NoError(t, err)
	assert.Equal(t, "v", reply.Value)
	assert.Empty(t, b.calls)

	got, err := s.Get(ctx, &kvpb.GetRequest{Key: "k"})
	require.NoError(t, err)
	assert.True(t, got.Defined)
	assert.Equal(t, "v", got.Value)

	ev := <-sub
	assert.Equal(t, events.EventWriteApplied, ev.Type)
	assert.Equal(t, events.OriginPeer, ev.Data.Origin)
}

func TestClientSetBroadcasts(t *testing.T) {
	b := &recordingBroadcaster{}
	s, n, sub := newService(t, b)

	reply, err := s.Set(context.Background(), &kvpb.SetRequest{Key: "k", Value: "v", Broadcast: true})
	require.NoError(t, err)
	assert.Equal(t, "v", reply.Value)
	assert.Equal(t, []string{"k=v"}, b.calls)

	value, _ := n.Get("k")
	assert.Equal(t, "v", value)
	assert.Equal(t, events.OriginClient, (<-sub).Data.Origin)
}

func TestClientSetBroadcastFailureKeepsLocalWrite(t *testing.T) {
	b := &recordingBroadcaster{err: errors.New("peer 127.0.0.1:4003 unreachable")}
	s, n, _ := newService(t, b)

	_, err := s.Set(context.Background(), &kvpb.SetRequest{Key: "k", Value: "v", Broadcast: true})
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "127.0.0.1:4003")

	value, ok := n.Get("k")
	assert.True(t, ok, "local write is not rolled back")
	assert.Equal(t, "v", value)
}

func TestListReturnsSnapshot(t *testing.T) {
	s, n, _ := newService(t, &recordingBroadcaster{})
	n.Set("a", "1")
	n.Set("b", "2")

	reply, err := s.List(context.Background(), &kvpb.ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, reply.Store)

	// the reply is a copy
	reply.Store["a"] = "changed"
	value, _ := n.Get("a")
	assert.Equal(t, "1", value)
}

func TestRegisterWithPeer(t *testing.T) {
	s, n, sub := newService(t, &recordingBroadcaster{})
	n.Set("x", "1")
	ctx := context.Background()

	reply, err := s.RegisterWithPeer(ctx, &kvpb.RegisterRequest{IP: "127.0.0.1:4001"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x": "1"}, reply.Store)

	// idempotent
	_, err = s.RegisterWithPeer(ctx, &kvpb.RegisterRequest{IP: "127.0.0.1:4001"})
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1:4001"}, n.Peers())

	ev := <-sub
	assert.Equal(t, events.EventPeerRegistered, ev.Type)
	assert.Len(t, sub, 0, "second registration emits nothing")
}

func TestRegisterWithPeerIgnoresSelfAndInvalid(t *testing.T) {
	s, n, _ := newService(t, &recordingBroadcaster{})
	ctx := context.Background()

	for _, ip := range []string{self, "not-an-address", "localhost:4001", ""} {
		reply, err := s.RegisterWithPeer(ctx, &kvpb.RegisterRequest{IP: ip})
		require.NoError(t, err, ip)
		assert.NotNil(t, reply.Store, ip)
	}
	assert.Zero(t, n.PeerCount())
}

func TestRegisterWithPeerCanonicalizesAddress(t *testing.T) {
	s, n, _ := newService(t, &recordingBroadcaster{})
	ctx := context.Background()

	for _, ip := range []string{
		"127.0.0.1:04000",
		"127.0.0.1:+4000",
		"127.0.0.1:4001",
		"127.0.0.1:04001",
		"127.0.0.1:+4001",
	} {
		_, err := s.RegisterWithPeer(ctx, &kvpb.RegisterRequest{IP: ip})
		require.NoError(t, err, ip)
	}

	assert.Equal(t, []string{"127.0.0.1:4001"}, n.Peers())
	assert.False(t, n.HasPeer(self))
}
